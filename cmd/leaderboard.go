package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parser-bench/internal/gtruth"
	"github.com/sells-group/parser-bench/internal/leaderboard"
	"github.com/sells-group/parser-bench/internal/model"
	"github.com/sells-group/parser-bench/internal/store"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Aggregate a phase and rank parsers",
	Long: `Aggregates every scored run record of a phase into per-parser
leaderboard entries, ranks them by composite score, and applies the
tolerance-band tie-break cascade to pick a winner.

Examples:
  # Print the pilot phase table
  leaderboard --phase pilot

  # Write full phase results (entries + per-page records) to JSON
  leaderboard --phase full --format json --output results.json`,
	RunE: runLeaderboard,
}

func init() {
	f := leaderboardCmd.Flags()
	f.String("phase", "pilot", "phase to aggregate")
	f.String("format", "table", "output format: table or json")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(leaderboardCmd)
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	phase, _ := cmd.Flags().GetString("phase")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	if format != "table" && format != "json" {
		return eris.Errorf("leaderboard: --format must be table or json (got %q)", format)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListRunRecords(ctx, store.RunFilter{Phase: phase})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No records for phase %q.\n", phase)
		return nil
	}

	complexity, err := loadComplexityMap(cfg.GroundTruth.Root)
	if err != nil {
		return err
	}

	entries := leaderboard.Aggregate(phase, records, complexity)
	sel, err := leaderboard.SelectWinner(entries, cfg.Scoring)
	if err != nil {
		return err
	}

	w := os.Stdout
	if outputPath != "" {
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "leaderboard: create output file %s", outputPath)
		}
		defer w.Close()
	}

	if format == "json" {
		results := model.PhaseResults{
			Phase:          phase,
			ScoringVersion: cfg.Scoring.Version,
			Entries:        entries,
			Records:        records,
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(results), "leaderboard: encode json")
	}

	printLeaderboard(w, entries, sel)
	return nil
}

// loadComplexityMap indexes ground-truth layout complexity by page, for
// bucketed aggregates.
func loadComplexityMap(root string) (map[leaderboard.PageKey]model.LayoutComplexity, error) {
	out := make(map[leaderboard.PageKey]model.LayoutComplexity)

	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "leaderboard: read ground truth root %s", root)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pages, err := gtruth.Load(root, entry.Name())
		if err != nil {
			return nil, err
		}
		for _, p := range pages {
			if p.Attributes.LayoutComplexity.Valid() {
				out[leaderboard.PageKey{DocumentID: p.DocumentID, Page: p.PDFPageNumber}] = p.Attributes.LayoutComplexity
			}
		}
	}
	return out, nil
}

func printLeaderboard(w *os.File, entries []model.LeaderboardEntry, sel *leaderboard.Selection) {
	fmt.Fprintf(w, "%-4s %-20s %8s %8s %8s %8s %7s %7s %9s %10s\n",
		"Rank", "Parser", "Overall", "Text", "Struct", "Trace", "Scored", "Failed", "Secs/Pg", "USD/Pg")
	fmt.Fprintln(w, strings.Repeat("-", 98))

	for i, e := range entries {
		marker := ""
		if sel != nil && e.Parser == sel.Winner.Parser {
			marker = " *"
		}
		fmt.Fprintf(w, "%-4d %-20s %8.4f %8.4f %8.4f %8.4f %7d %7d %9.2f %10.4f%s\n",
			i+1,
			e.Parser,
			e.Mean.Overall,
			e.Mean.TextAccuracy,
			e.Mean.StructuralFidelity,
			e.Mean.Traceability.PageLabelExact,
			e.PagesScored,
			e.PagesFailed,
			e.MeanSecsPerPage,
			e.MeanCostPerPage,
			marker,
		)
	}

	if sel != nil {
		fmt.Fprintf(w, "\nWinner: %s\n", sel.Winner.Parser)
		for _, line := range sel.Rationale {
			fmt.Fprintf(w, "  - %s\n", line)
		}
	}
}
