package gtruth

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/parser-bench/internal/model"
)

// Warning reasons.
const (
	ReasonDuplicateLabel    = "duplicate_label"
	ReasonMonotonicity      = "monotonicity"
	ReasonOffsetInstability = "offset_instability"
)

// Warning is one validator finding. Warnings are advisory: they never
// block scoring and never mutate ground truth.
type Warning struct {
	PDFPageNumber int    `json:"pdf_page_number"`
	Reason        string `json:"reason"`
	Detail        string `json:"detail"`
}

// ValidatorConfig holds the validator thresholds.
type ValidatorConfig struct {
	// MaxLabelJump is the largest tolerated excess of the numeric-label
	// delta over the page-number delta between adjacent pages.
	MaxLabelJump int `yaml:"max_label_jump" mapstructure:"max_label_jump"`
}

// DefaultValidatorConfig returns the default thresholds.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{MaxLabelJump: 3}
}

// Validate runs the three independent sanity checks over one document's
// ground-truth pages (ordered by pdf_page_number). An empty result is
// success; the validator never fails on a clean document.
func Validate(pages []model.CanonicalPage, cfg ValidatorConfig) []Warning {
	var warnings []Warning
	warnings = append(warnings, checkDuplicateLabels(pages)...)
	warnings = append(warnings, checkMonotonicity(pages, cfg.MaxLabelJump)...)
	warnings = append(warnings, checkOffsetStability(pages)...)

	if len(warnings) > 0 && len(pages) > 0 {
		zap.L().Warn("gtruth: validator findings",
			zap.String("document", pages[0].DocumentID),
			zap.Int("warnings", len(warnings)),
		)
	}
	return warnings
}

// checkDuplicateLabels flags distinct pages sharing an identical
// non-empty book page label.
func checkDuplicateLabels(pages []model.CanonicalPage) []Warning {
	byLabel := make(map[string][]int)
	for _, p := range pages {
		if p.BookPageLabel == "" {
			continue
		}
		byLabel[p.BookPageLabel] = append(byLabel[p.BookPageLabel], p.PDFPageNumber)
	}

	var warnings []Warning
	for label, pageNums := range byLabel {
		if len(pageNums) < 2 {
			continue
		}
		sort.Ints(pageNums)
		for _, n := range pageNums {
			warnings = append(warnings, Warning{
				PDFPageNumber: n,
				Reason:        ReasonDuplicateLabel,
				Detail:        fmt.Sprintf("label %q appears on pdf pages %v", label, pageNums),
			})
		}
	}

	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].PDFPageNumber < warnings[j].PDFPageNumber
	})
	return warnings
}

// checkMonotonicity flags adjacent pages whose numeric labels decrease or
// jump by more than maxJump beyond the page-number delta.
func checkMonotonicity(pages []model.CanonicalPage, maxJump int) []Warning {
	var warnings []Warning
	prevNum, prevPage := 0, 0
	havePrev := false

	for _, p := range pages {
		num, ok := numericLabel(p.BookPageLabel)
		if !ok {
			continue
		}
		if havePrev {
			labelDelta := num - prevNum
			pageDelta := p.PDFPageNumber - prevPage
			switch {
			case labelDelta < 0:
				warnings = append(warnings, Warning{
					PDFPageNumber: p.PDFPageNumber,
					Reason:        ReasonMonotonicity,
					Detail:        fmt.Sprintf("label decreases from %d (pdf %d) to %d", prevNum, prevPage, num),
				})
			case labelDelta-pageDelta > maxJump:
				warnings = append(warnings, Warning{
					PDFPageNumber: p.PDFPageNumber,
					Reason:        ReasonMonotonicity,
					Detail:        fmt.Sprintf("label jumps from %d to %d over %d pdf page(s)", prevNum, num, pageDelta),
				})
			}
		}
		prevNum, prevPage = num, p.PDFPageNumber
		havePrev = true
	}
	return warnings
}

// checkOffsetStability flags pages whose pdf-page-to-label offset
// deviates from the document-wide mode by more than one.
func checkOffsetStability(pages []model.CanonicalPage) []Warning {
	type numbered struct {
		page   int
		offset int
	}
	var offsets []numbered
	counts := make(map[int]int)

	for _, p := range pages {
		num, ok := numericLabel(p.BookPageLabel)
		if !ok {
			continue
		}
		off := p.PDFPageNumber - num
		offsets = append(offsets, numbered{page: p.PDFPageNumber, offset: off})
		counts[off]++
	}
	if len(offsets) == 0 {
		return nil
	}

	mode, modeCount := 0, 0
	for off, n := range counts {
		if n > modeCount || (n == modeCount && off < mode) {
			mode, modeCount = off, n
		}
	}

	var warnings []Warning
	for _, o := range offsets {
		dev := o.offset - mode
		if dev < 0 {
			dev = -dev
		}
		if dev > 1 {
			warnings = append(warnings, Warning{
				PDFPageNumber: o.page,
				Reason:        ReasonOffsetInstability,
				Detail:        fmt.Sprintf("offset %d deviates from document mode %d", o.offset, mode),
			})
		}
	}
	return warnings
}

func numericLabel(label string) (int, bool) {
	n, err := strconv.Atoi(label)
	if err != nil {
		return 0, false
	}
	return n, true
}
