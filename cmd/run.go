package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parser-bench/internal/bench"
	"github.com/sells-group/parser-bench/internal/manifest"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run parsers over the document corpus",
	Long: `Invokes every selected parser on every selected page, caches raw and
canonical output, persists run records, and scores pages that have
ground truth.

Parser output is content-addressed: a page that was already parsed under
the same adapter configuration is served from cache and never re-invokes
the parser.

Examples:
  # Pilot phase: every registered parser, pages 1-20 of each document
  run --phase pilot --pages 1-20

  # Full phase, two parsers, three trials per page
  run --phase full --parsers claude,marker --trials 3`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.String("parsers", "", "comma-separated parser names (default: all registered)")
	f.String("documents", "", "comma-separated document ids (default: all in manifest)")
	f.String("pages", "", "page selection, e.g. 5 or 1-20 (default: all pages)")
	f.String("phase", "", "phase label for this batch (overrides config)")
	f.Int("trials", 0, "trials per (parser, page) unit (overrides config)")
	f.Int("concurrency", 0, "max in-flight units (overrides config)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := manifest.Load(cfg.Manifest.Path)
	if err != nil {
		return err
	}

	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	parsers := reg.Names()
	if v, _ := cmd.Flags().GetString("parsers"); v != "" {
		parsers = splitAndTrim(v)
		for _, name := range parsers {
			if _, err := reg.Get(name); err != nil {
				return err
			}
		}
	}
	if len(parsers) == 0 {
		return eris.New("run: no parsers registered")
	}

	docs := m.Documents
	if v, _ := cmd.Flags().GetString("documents"); v != "" {
		docs = nil
		for _, id := range splitAndTrim(v) {
			doc, err := m.Get(id)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
	}

	pages, err := parsePageRange(cmd)
	if err != nil {
		return err
	}

	// Cross-check every document against its actual PDF before scheduling
	// work, so bad manifests fail fast instead of mid-batch.
	for _, doc := range docs {
		probe, err := manifest.Probe(m.PDFPath(doc))
		if err != nil {
			return err
		}
		if err := manifest.Verify(doc, probe); err != nil {
			return err
		}
	}

	benchCfg := cfg.Bench
	if v, _ := cmd.Flags().GetString("phase"); v != "" {
		benchCfg.Phase = v
	}
	if v, _ := cmd.Flags().GetInt("trials"); v > 0 {
		benchCfg.Trials = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		benchCfg.Concurrency = v
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := openCache()
	if err != nil {
		return err
	}

	runner := bench.New(reg, c, st, cfg.GroundTruth.Root, cfg.Scoring, benchCfg)
	units := runner.Units(parsers, docs, m.PDFPath, pages)

	zap.L().Info("run: starting batch",
		zap.String("phase", benchCfg.Phase),
		zap.Strings("parsers", parsers),
		zap.Int("documents", len(docs)),
		zap.Int("units", len(units)),
	)

	sum, err := runner.Run(ctx, units)
	if sum != nil {
		fmt.Printf("scored:     %d\n", sum.Scored)
		fmt.Printf("unscored:   %d\n", sum.Unscored)
		fmt.Printf("failed:     %d\n", sum.Failed)
		fmt.Printf("cache hits: %d\n", sum.CacheHits)
	}
	return err
}

// parsePageRange reads --pages as either a single page ("5") or an
// inclusive range ("1-20"). Empty means all pages.
func parsePageRange(cmd *cobra.Command) ([]int, error) {
	v, _ := cmd.Flags().GetString("pages")
	if v == "" {
		return nil, nil
	}

	lo, hi := 0, 0
	if first, second, found := strings.Cut(v, "-"); found {
		var err error
		if lo, err = strconv.Atoi(strings.TrimSpace(first)); err != nil {
			return nil, eris.Errorf("run: bad --pages value %q", v)
		}
		if hi, err = strconv.Atoi(strings.TrimSpace(second)); err != nil {
			return nil, eris.Errorf("run: bad --pages value %q", v)
		}
	} else {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, eris.Errorf("run: bad --pages value %q", v)
		}
		lo, hi = n, n
	}
	if lo < 1 || hi < lo {
		return nil, eris.Errorf("run: bad --pages range %q", v)
	}

	pages := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		pages = append(pages, p)
	}
	return pages, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
