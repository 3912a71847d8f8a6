package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parser-bench/internal/cache"
	"github.com/sells-group/parser-bench/internal/gtruth"
	"github.com/sells-group/parser-bench/internal/metrics"
	"github.com/sells-group/parser-bench/internal/model"
	"github.com/sells-group/parser-bench/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score cached parser output against ground truth",
	Long: `Scores run records that do not have metrics yet, reading canonical
pages from the artifact cache. Parsers are never re-invoked: scoring is
a pure replay over cached output, so it is safe to run after new ground
truth lands or after an interrupted batch.

Records whose metrics are already attached are left untouched; a
reweighing or a changed ground truth calls for a fresh run phase, not an
in-place rewrite.

Examples:
  # Score everything outstanding in the pilot phase
  score --phase pilot

  # Restrict to one parser
  score --phase full --parser claude`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("phase", "", "restrict to one phase")
	f.String("parser", "", "restrict to one parser")
	f.String("document", "", "restrict to one document id")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := openCache()
	if err != nil {
		return err
	}

	phase, _ := cmd.Flags().GetString("phase")
	parser, _ := cmd.Flags().GetString("parser")
	document, _ := cmd.Flags().GetString("document")

	records, err := st.ListRunRecords(ctx, store.RunFilter{
		Phase:      phase,
		Parser:     parser,
		DocumentID: document,
	})
	if err != nil {
		return err
	}

	var scored, skipped, stillUnscored int
	for _, rec := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if rec.Metrics != nil || rec.Status == model.RunStatusScored {
			skipped++
			continue
		}

		gt, err := gtruth.LoadPage(cfg.GroundTruth.Root, rec.DocumentID, rec.PDFPageNumber)
		if err != nil {
			return err
		}
		if gt == nil {
			stillUnscored++
			continue
		}

		pred, err := scorablePage(c, rec)
		if err != nil {
			return err
		}

		vec := metrics.Score(*pred, *gt, cfg.Scoring)
		if err := st.AttachMetrics(ctx, rec.ID, &vec); err != nil {
			return err
		}
		scored++
	}

	zap.L().Info("score: replay complete",
		zap.Int("scored", scored),
		zap.Int("already_scored", skipped),
		zap.Int("no_ground_truth", stillUnscored),
	)
	fmt.Printf("scored:          %d\n", scored)
	fmt.Printf("already scored:  %d\n", skipped)
	fmt.Printf("no ground truth: %d\n", stillUnscored)
	return nil
}

// scorablePage resolves the prediction for a record: the cached
// canonical page for parsed records, the failure sentinel for failed
// ones.
func scorablePage(c *cache.Store, rec model.RunRecord) (*model.CanonicalPage, error) {
	if rec.Status == model.RunStatusFailed {
		page := model.FailedPage(rec.DocumentID, rec.PDFPageNumber)
		return &page, nil
	}
	if rec.CacheKey == "" {
		return nil, eris.Errorf("score: record %s has no cache key", rec.ID)
	}
	data, err := c.GetByHash(rec.CacheKey, cache.ArtifactCanonical)
	if err != nil {
		return nil, eris.Wrapf(err, "score: record %s", rec.ID)
	}
	var page model.CanonicalPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, eris.Wrapf(err, "score: record %s canonical artifact", rec.ID)
	}
	return &page, nil
}
