package metrics

import (
	"github.com/sells-group/parser-bench/internal/model"
)

// Score compares a predicted canonical page against its ground-truth page
// and returns the full metric vector. It is a pure function of its
// arguments: no shared state, safe to call from any number of goroutines.
//
// The arguments are not interchangeable: BLEU treats the prediction as
// the hypothesis and the ground truth as the single reference, so
// Score(a, b) and Score(b, a) generally differ.
//
// If either page is the parse-failure sentinel, text accuracy and
// structural fidelity are zero; the page still counts toward every
// denominator, since dropping failures would bias the leaderboard.
func Score(pred, gt model.CanonicalPage, cfg ScoringConfig) model.MetricVector {
	mv := model.MetricVector{
		Traceability: traceability(pred, gt),
	}

	if pred.ParseFailed || gt.ParseFailed {
		return mv
	}

	predText := ExtractText(pred.Elements)
	gtText := ExtractText(gt.Elements)
	predTokens := Tokens(predText)
	gtTokens := Tokens(gtText)

	mv.EditSimilarity = EditSimilarity(predText, gtText)
	mv.BLEU = BLEU(predTokens, gtTokens, cfg.BLEUOrder)
	mv.TokenF1 = TokenF1(predTokens, gtTokens)
	mv.TextAccuracy = (mv.EditSimilarity + mv.BLEU + mv.TokenF1) / 3

	mv.TreeSimilarity = TreeSimilarity(pred.Elements, gt.Elements)
	mv.ReadingOrderAccuracy = ReadingOrderAccuracy(pred.Elements, gt.Elements)
	mv.HeadingF1 = HeadingF1(pred.Elements, gt.Elements, cfg.HeadingSimilarityThreshold)
	mv.StructuralFidelity = (mv.TreeSimilarity + mv.ReadingOrderAccuracy + mv.HeadingF1) / 3

	mv.Overall = cfg.TextWeight*mv.TextAccuracy + cfg.StructureWeight*mv.StructuralFidelity
	return mv
}
