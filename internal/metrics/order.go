package metrics

import (
	"sort"

	"github.com/sells-group/parser-bench/internal/model"
)

// elementPair is one candidate alignment between a predicted and a
// ground-truth element.
type elementPair struct {
	pred, gt int
	cost     float64
}

// matchElements aligns predicted to ground-truth elements one-to-one,
// greedily by ascending relabel cost. Only pairs of the same kind with
// some text similarity (cost < 1) are eligible; everything else stays
// unmatched. Ties break on position so the matching is deterministic.
func matchElements(pred, gt []model.Element) []elementPair {
	var candidates []elementPair
	for i, p := range pred {
		for j, g := range gt {
			if p.Kind != g.Kind {
				continue
			}
			cost := 1 - EditSimilarity(p.PlainText(), g.PlainText())
			if cost >= 1 {
				continue
			}
			candidates = append(candidates, elementPair{pred: i, gt: j, cost: cost})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.cost != cb.cost {
			return ca.cost < cb.cost
		}
		if ca.pred != cb.pred {
			return ca.pred < cb.pred
		}
		return ca.gt < cb.gt
	})

	usedPred := make(map[int]bool)
	usedGT := make(map[int]bool)
	var matched []elementPair
	for _, c := range candidates {
		if usedPred[c.pred] || usedGT[c.gt] {
			continue
		}
		usedPred[c.pred] = true
		usedGT[c.gt] = true
		matched = append(matched, c)
	}
	return matched
}

// ReadingOrderAccuracy scores how well the prediction preserves reading
// order: the Kendall-tau-style fraction of non-inverted pairs among the
// matched elements. A page with at most one matched element scores 1.
func ReadingOrderAccuracy(pred, gt []model.Element) float64 {
	matched := matchElements(pred, gt)
	if len(matched) <= 1 {
		return 1
	}

	sort.Slice(matched, func(a, b int) bool {
		return matched[a].pred < matched[b].pred
	})

	var inversions int
	for a := 0; a < len(matched); a++ {
		for b := a + 1; b < len(matched); b++ {
			if matched[a].gt > matched[b].gt {
				inversions++
			}
		}
	}

	maxInversions := len(matched) * (len(matched) - 1) / 2
	return 1 - float64(inversions)/float64(maxInversions)
}
