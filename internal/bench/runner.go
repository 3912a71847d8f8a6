// Package bench runs the benchmark: it fans (parser, document, page,
// trial) units out over a bounded worker pool, invokes adapters through
// the artifact cache, persists run records, and scores against ground
// truth where it exists. A failing page never takes the batch down with
// it.
package bench

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parser-bench/internal/adapter"
	"github.com/sells-group/parser-bench/internal/cache"
	"github.com/sells-group/parser-bench/internal/gtruth"
	"github.com/sells-group/parser-bench/internal/metrics"
	"github.com/sells-group/parser-bench/internal/model"
	"github.com/sells-group/parser-bench/internal/render"
	"github.com/sells-group/parser-bench/internal/store"
)

// Config bounds one benchmark batch.
type Config struct {
	// Phase labels every record written by this batch (e.g. "pilot",
	// "full").
	Phase string `yaml:"phase" mapstructure:"phase"`

	// Trials is how many times each (parser, page) unit runs. Multi-trial
	// batches feed the leaderboard's variance column.
	Trials int `yaml:"trials" mapstructure:"trials"`

	// Concurrency caps in-flight units across all parsers.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`

	// AdapterTimeout bounds a single adapter invocation.
	AdapterTimeout time.Duration `yaml:"adapter_timeout" mapstructure:"adapter_timeout"`
}

// DefaultConfig returns batch defaults.
func DefaultConfig() Config {
	return Config{
		Phase:          "pilot",
		Trials:         1,
		Concurrency:    4,
		AdapterTimeout: 5 * time.Minute,
	}
}

// Unit is one schedulable evaluation: a parser applied to one page of
// one document, once.
type Unit struct {
	Parser  string
	Doc     model.Document
	PDFPath string
	Page    int
	Trial   int
}

// Summary is what a finished batch reports. Scored + Unscored + Failed
// equals the number of units attempted.
type Summary struct {
	Scored    int64 `json:"scored"`
	Unscored  int64 `json:"unscored"`
	Failed    int64 `json:"failed"`
	CacheHits int64 `json:"cache_hits"`
}

// Runner executes batches against a fixed set of collaborators.
type Runner struct {
	registry   *adapter.Registry
	cache      *cache.Store
	store      store.Store
	gtruthRoot string
	scoring    metrics.ScoringConfig
	cfg        Config
}

// New builds a runner.
func New(reg *adapter.Registry, c *cache.Store, st store.Store, gtruthRoot string, scoring metrics.ScoringConfig, cfg Config) *Runner {
	if cfg.Trials < 1 {
		cfg.Trials = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = DefaultConfig().AdapterTimeout
	}
	return &Runner{
		registry:   reg,
		cache:      c,
		store:      st,
		gtruthRoot: gtruthRoot,
		scoring:    scoring,
		cfg:        cfg,
	}
}

// Units expands parsers x documents x pages x trials into the batch
// work list. pages == nil means every page of each document.
func (r *Runner) Units(parsers []string, docs []model.Document, pdfPath func(model.Document) string, pages []int) []Unit {
	var units []Unit
	for _, parser := range parsers {
		for _, doc := range docs {
			pageList := pages
			if pageList == nil {
				pageList = make([]int, 0, doc.PageCount)
				for p := 1; p <= doc.PageCount; p++ {
					pageList = append(pageList, p)
				}
			}
			for _, page := range pageList {
				if page < 1 || page > doc.PageCount {
					continue
				}
				for trial := 1; trial <= r.cfg.Trials; trial++ {
					units = append(units, Unit{
						Parser:  parser,
						Doc:     doc,
						PDFPath: pdfPath(doc),
						Page:    page,
						Trial:   trial,
					})
				}
			}
		}
	}
	return units
}

// Run executes every unit. Page-level problems (adapter failure, missing
// ground truth, cache collision) are absorbed into per-record status; an
// error return means the batch infrastructure itself broke, and no new
// units were scheduled after it surfaced.
func (r *Runner) Run(ctx context.Context, units []Unit) (*Summary, error) {
	var sum Summary
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, unit := range units {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return r.runUnit(ctx, unit, &sum)
		})
	}
	err := g.Wait()

	zap.L().Info("bench: batch complete",
		zap.String("phase", r.cfg.Phase),
		zap.Int("units", len(units)),
		zap.Int64("scored", atomic.LoadInt64(&sum.Scored)),
		zap.Int64("unscored", atomic.LoadInt64(&sum.Unscored)),
		zap.Int64("failed", atomic.LoadInt64(&sum.Failed)),
		zap.Int64("cache_hits", atomic.LoadInt64(&sum.CacheHits)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		return &sum, eris.Wrap(err, "bench: batch aborted")
	}
	return &sum, nil
}

func (r *Runner) runUnit(ctx context.Context, unit Unit, sum *Summary) error {
	parser, err := r.registry.Get(unit.Parser)
	if err != nil {
		return err
	}

	rec, err := r.store.CreateRunRecord(ctx, model.RunRecord{
		Phase:         r.cfg.Phase,
		Parser:        unit.Parser,
		DocumentID:    unit.Doc.ID,
		PDFPageNumber: unit.Page,
		Trial:         unit.Trial,
	})
	if err != nil {
		return err
	}

	key := cache.Key{
		Parser:        unit.Parser,
		DocumentID:    unit.Doc.ID,
		Page:          unit.Page,
		Trial:         unit.Trial,
		AdapterConfig: parser.ConfigFingerprint(),
	}

	pred, parseSecs, costUSD, parseErr := r.parse(ctx, parser, unit, key, sum)
	if parseErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		atomic.AddInt64(&sum.Failed, 1)
		zap.L().Warn("bench: page failed",
			zap.String("parser", unit.Parser),
			zap.String("document", unit.Doc.ID),
			zap.Int("page", unit.Page),
			zap.Int("trial", unit.Trial),
			zap.Error(parseErr),
		)
		if err := r.store.MarkFailed(ctx, rec.ID, parseErr.Error()); err != nil {
			return err
		}
		// A failed page with ground truth still scores, as all zeros.
		return r.scoreFailed(ctx, rec, unit)
	}

	if err := r.store.MarkParsed(ctx, rec.ID, key.Hash(), parseSecs, costUSD); err != nil {
		return err
	}
	return r.score(ctx, rec, unit, pred, sum)
}

// parse returns the canonical page for the unit, going to the adapter
// only on a cache miss. Canonical and Markdown artifacts are derived
// from the raw artifact and cached beside it.
func (r *Runner) parse(ctx context.Context, parser adapter.Parser, unit Unit, key cache.Key, sum *Summary) (*model.CanonicalPage, float64, float64, error) {
	var parseSecs, costUSD float64

	raw, hit, err := r.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.AdapterTimeout)
		defer cancel()

		started := time.Now()
		res, err := parser.Parse(callCtx, unit.PDFPath, unit.Page)
		if err != nil {
			return nil, err
		}
		parseSecs = time.Since(started).Seconds()
		costUSD = res.CostUSD
		return res.Raw, nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	if hit {
		atomic.AddInt64(&sum.CacheHits, 1)
	}

	// Prefer the cached canonical artifact so replays and re-scores do not
	// depend on adapter determinism.
	if data, err := r.cache.Get(key, cache.ArtifactCanonical); err == nil {
		var page model.CanonicalPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, 0, 0, eris.Wrap(err, "bench: corrupt canonical artifact")
		}
		return &page, parseSecs, costUSD, nil
	}

	page, err := parser.ToCanonical(unit.Doc.ID, unit.Page, raw)
	if err != nil {
		return nil, 0, 0, err
	}
	if page.RenderedMarkdown == "" {
		page.RenderedMarkdown = render.Markdown(page)
	}

	data, err := json.Marshal(page)
	if err != nil {
		return nil, 0, 0, eris.Wrap(err, "bench: marshal canonical page")
	}
	if err := r.cache.Put(key, cache.ArtifactCanonical, data); err != nil && !eris.Is(err, cache.ErrCollision) {
		return nil, 0, 0, err
	}
	if err := r.cache.Put(key, cache.ArtifactMarkdown, []byte(page.RenderedMarkdown)); err != nil && !eris.Is(err, cache.ErrCollision) {
		return nil, 0, 0, err
	}
	return &page, parseSecs, costUSD, nil
}

// score attaches metrics when ground truth exists, or marks the record
// unscored when it does not.
func (r *Runner) score(ctx context.Context, rec *model.RunRecord, unit Unit, pred *model.CanonicalPage, sum *Summary) error {
	gt, err := gtruth.LoadPage(r.gtruthRoot, unit.Doc.ID, unit.Page)
	if err != nil {
		return err
	}
	if gt == nil {
		atomic.AddInt64(&sum.Unscored, 1)
		zap.L().Debug("bench: no ground truth, unscored",
			zap.String("document", unit.Doc.ID),
			zap.Int("page", unit.Page),
		)
		return r.store.MarkUnscored(ctx, rec.ID)
	}

	vec := metrics.Score(*pred, *gt, r.scoring)
	if err := r.store.AttachMetrics(ctx, rec.ID, &vec); err != nil {
		return err
	}
	atomic.AddInt64(&sum.Scored, 1)
	return nil
}

// scoreFailed gives a failed page its zero-score when ground truth
// exists, keeping it in every scoring denominator.
func (r *Runner) scoreFailed(ctx context.Context, rec *model.RunRecord, unit Unit) error {
	gt, err := gtruth.LoadPage(r.gtruthRoot, unit.Doc.ID, unit.Page)
	if err != nil {
		return err
	}
	if gt == nil {
		return nil
	}
	failed := model.FailedPage(unit.Doc.ID, unit.Page)
	vec := metrics.Score(failed, *gt, r.scoring)
	return r.store.AttachMetrics(ctx, rec.ID, &vec)
}
