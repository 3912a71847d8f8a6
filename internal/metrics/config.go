// Package metrics implements the pairwise page scoring engine: text
// accuracy, structural fidelity, and traceability sub-scores for one
// predicted canonical page against its ground-truth page.
package metrics

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// ScoringConfig pins every knob of the scoring algorithms. It is passed
// explicitly into Score and the winner selector so runs with different
// configurations can execute side by side. Changing any value is a new
// Version: leaderboards produced under different versions are not
// comparable.
type ScoringConfig struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Composite weights. Structural fidelity dominates because retrieval
	// chunking depends more on structure than verbatim text.
	TextWeight      float64 `yaml:"text_weight" mapstructure:"text_weight"`
	StructureWeight float64 `yaml:"structure_weight" mapstructure:"structure_weight"`

	// BLEUOrder is the maximum n-gram order (word tokens).
	BLEUOrder int `yaml:"bleu_order" mapstructure:"bleu_order"`

	// HeadingSimilarityThreshold is the minimum text edit-similarity for a
	// predicted heading to count as a true positive.
	HeadingSimilarityThreshold float64 `yaml:"heading_similarity_threshold" mapstructure:"heading_similarity_threshold"`

	// WinnerToleranceBand is the relative band below the leader within
	// which entries enter the tie-break cascade.
	WinnerToleranceBand float64 `yaml:"winner_tolerance_band" mapstructure:"winner_tolerance_band"`
}

// DefaultScoringConfig returns the versioned default configuration.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Version:                    "2026.1",
		TextWeight:                 0.40,
		StructureWeight:            0.60,
		BLEUOrder:                  4,
		HeadingSimilarityThreshold: 0.8,
		WinnerToleranceBand:        0.02,
	}
}

// Validate checks that the config is internally consistent.
func (c ScoringConfig) Validate() error {
	var errs []string

	if c.Version == "" {
		errs = append(errs, "version must be set")
	}
	if c.TextWeight < 0 {
		errs = append(errs, "text_weight must be >= 0")
	}
	if c.StructureWeight < 0 {
		errs = append(errs, "structure_weight must be >= 0")
	}
	if sum := c.TextWeight + c.StructureWeight; math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Sprintf("text_weight + structure_weight must equal 1, got %.4f", sum))
	}
	if c.BLEUOrder < 1 || c.BLEUOrder > 9 {
		errs = append(errs, fmt.Sprintf("bleu_order must be between 1 and 9, got %d", c.BLEUOrder))
	}
	if c.HeadingSimilarityThreshold < 0 || c.HeadingSimilarityThreshold > 1 {
		errs = append(errs, "heading_similarity_threshold must be between 0 and 1")
	}
	if c.WinnerToleranceBand < 0 || c.WinnerToleranceBand >= 1 {
		errs = append(errs, "winner_tolerance_band must be in [0, 1)")
	}

	if len(errs) > 0 {
		return eris.Errorf("metrics: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
