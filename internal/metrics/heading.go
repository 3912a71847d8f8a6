package metrics

import (
	"sort"

	"github.com/sells-group/parser-bench/internal/model"
)

type headingRef struct {
	index int
	level int
	text  string
}

func collectHeadings(elements []model.Element) []headingRef {
	var hs []headingRef
	for i, el := range elements {
		if el.Kind == model.ElementHeading {
			hs = append(hs, headingRef{index: i, level: el.Level, text: el.Text})
		}
	}
	return hs
}

// HeadingF1 scores heading detection. A predicted heading is a true
// positive when its level matches a ground-truth heading exactly and the
// text edit-similarity exceeds threshold; matches are consumed greedily,
// highest similarity first. Pages where neither side has headings score 1.
func HeadingF1(pred, gt []model.Element, threshold float64) float64 {
	predHs := collectHeadings(pred)
	gtHs := collectHeadings(gt)

	if len(predHs) == 0 && len(gtHs) == 0 {
		return 1
	}
	if len(predHs) == 0 || len(gtHs) == 0 {
		return 0
	}

	type match struct {
		pred, gt int
		sim      float64
	}
	var candidates []match
	for i, p := range predHs {
		for j, g := range gtHs {
			if p.level != g.level {
				continue
			}
			sim := EditSimilarity(p.text, g.text)
			if sim <= threshold {
				continue
			}
			candidates = append(candidates, match{pred: i, gt: j, sim: sim})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.sim != cb.sim {
			return ca.sim > cb.sim
		}
		if ca.pred != cb.pred {
			return ca.pred < cb.pred
		}
		return ca.gt < cb.gt
	})

	usedPred := make(map[int]bool)
	usedGT := make(map[int]bool)
	var truePositives int
	for _, c := range candidates {
		if usedPred[c.pred] || usedGT[c.gt] {
			continue
		}
		usedPred[c.pred] = true
		usedGT[c.gt] = true
		truePositives++
	}

	precision := float64(truePositives) / float64(len(predHs))
	recall := float64(truePositives) / float64(len(gtHs))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
