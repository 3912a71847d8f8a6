package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parser-bench/internal/gtruth"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Sanity-check the ground-truth corpus",
	Long: `Runs the ground-truth validator over one or all documents: duplicate
book page labels, label monotonicity, and page-offset stability.
Findings are advisory and never block scoring.

Examples:
  # Validate every document under the ground truth root
  validate

  # Validate one document
  validate --document fieldguide-vol1`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.String("document", "", "validate a single document id")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	root := cfg.GroundTruth.Root

	var docIDs []string
	if v, _ := cmd.Flags().GetString("document"); v != "" {
		docIDs = []string{v}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return eris.Wrapf(err, "validate: read ground truth root %s", root)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				docIDs = append(docIDs, entry.Name())
			}
		}
	}
	if len(docIDs) == 0 {
		fmt.Println("No ground truth documents found.")
		return nil
	}

	total := 0
	for _, docID := range docIDs {
		pages, err := gtruth.Load(root, docID)
		if err != nil {
			return err
		}
		if pages == nil {
			return eris.Errorf("validate: no ground truth for document %q", docID)
		}

		warnings := gtruth.Validate(pages, cfg.Validator)
		total += len(warnings)

		fmt.Printf("%s: %d page(s), %d warning(s)\n", docID, len(pages), len(warnings))
		for _, w := range warnings {
			fmt.Printf("  page %4d  %-20s %s\n", w.PDFPageNumber, w.Reason, w.Detail)
		}
	}

	if total == 0 {
		fmt.Println("All clean.")
	}
	return nil
}
