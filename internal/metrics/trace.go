package metrics

import (
	"strings"

	"github.com/sells-group/parser-bench/internal/model"
)

// NormalizeLabel applies value-preserving normalization to a printed page
// label: whitespace collapse plus leading-zero stripping on all-decimal
// labels. Case is untouched, so lowercase roman numerals stay as-is:
// this is normalization, never semantic reinterpretation.
func NormalizeLabel(label string) string {
	s := strings.Join(strings.Fields(label), " ")
	if s == "" {
		return s
	}
	if isDecimal(s) {
		trimmed := strings.TrimLeft(s, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		return trimmed
	}
	return s
}

func isDecimal(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// traceability computes the label and section-path preservation metrics.
// Both labels absent counts as an exact match.
func traceability(pred, gt model.CanonicalPage) model.Traceability {
	var t model.Traceability

	if pred.BookPageLabel == gt.BookPageLabel {
		t.PageLabelExact = 1
	}
	if NormalizeLabel(pred.BookPageLabel) == NormalizeLabel(gt.BookPageLabel) {
		t.PageLabelNormalized = 1
	}

	t.SectionPathExact = sectionPathExact(pred.SectionPath, gt.SectionPath)
	t.SectionPathPartial = sectionPathPartial(pred.SectionPath, gt.SectionPath)
	return t
}

func sectionPathExact(pred, gt []string) float64 {
	if len(pred) != len(gt) {
		return 0
	}
	for i := range pred {
		if pred[i] != gt[i] {
			return 0
		}
	}
	return 1
}

// sectionPathPartial is the longest common prefix length over the longer
// path length; 1 when both paths are empty.
func sectionPathPartial(pred, gt []string) float64 {
	if len(pred) == 0 && len(gt) == 0 {
		return 1
	}

	var lcp int
	for lcp < len(pred) && lcp < len(gt) && pred[lcp] == gt[lcp] {
		lcp++
	}

	denom := len(pred)
	if len(gt) > denom {
		denom = len(gt)
	}
	return float64(lcp) / float64(denom)
}
