package metrics

import (
	"math"
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/parser-bench/internal/model"
)

// ExtractText concatenates every heading, paragraph, list item, and table
// cell text in document order, NFC- and whitespace-normalized. Figures
// contribute their caption. This is the text both sides of every text
// metric see.
func ExtractText(elements []model.Element) string {
	var parts []string
	for _, el := range elements {
		if t := el.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	joined := norm.NFC.String(strings.Join(parts, " "))
	return strings.Join(strings.Fields(joined), " ")
}

// Tokens splits normalized text into word tokens.
func Tokens(text string) []string {
	return strings.Fields(text)
}

// EditSimilarity is 1 − levenshtein(a, b) / max(len(a), len(b), 1),
// character-level over runes.
func EditSimilarity(a, b string) float64 {
	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 && lb == 0 {
		return 1
	}
	denom := la
	if lb > denom {
		denom = lb
	}
	dist := levenshtein.Distance(a, b, nil)
	return 1 - float64(dist)/float64(denom)
}

// BLEU computes word-level BLEU with brevity penalty, hypothesis against a
// single reference, no smoothing. The n-gram order is capped at the
// shorter token count so a text compared with itself always scores 1.
// Without the cap, any text under maxOrder words would have zero
// higher-order n-grams and score 0 against an identical reference.
func BLEU(hypothesis, reference []string, maxOrder int) float64 {
	if len(hypothesis) == 0 && len(reference) == 0 {
		return 1
	}
	if len(hypothesis) == 0 || len(reference) == 0 {
		return 0
	}

	order := maxOrder
	if len(hypothesis) < order {
		order = len(hypothesis)
	}
	if len(reference) < order {
		order = len(reference)
	}

	logSum := 0.0
	for n := 1; n <= order; n++ {
		p := clippedPrecision(hypothesis, reference, n)
		if p == 0 {
			return 0
		}
		logSum += math.Log(p)
	}
	score := math.Exp(logSum / float64(order))

	// Brevity penalty.
	if len(hypothesis) < len(reference) {
		score *= math.Exp(1 - float64(len(reference))/float64(len(hypothesis)))
	}

	if score > 1 {
		score = 1
	}
	return score
}

// clippedPrecision is the modified n-gram precision: hypothesis n-gram
// counts clipped by the reference counts.
func clippedPrecision(hypothesis, reference []string, n int) float64 {
	hypGrams := countNgrams(hypothesis, n)
	if len(hypGrams) == 0 {
		return 0
	}
	refGrams := countNgrams(reference, n)

	var matched, total int
	for gram, count := range hypGrams {
		total += count
		if refCount := refGrams[gram]; refCount < count {
			matched += refCount
		} else {
			matched += count
		}
	}
	return float64(matched) / float64(total)
}

func countNgrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

// TokenF1 is the F1 over the multisets of lowercased word tokens: 1 when
// both texts are token-empty, 0 when exactly one side is.
func TokenF1(hypothesis, reference []string) float64 {
	if len(hypothesis) == 0 && len(reference) == 0 {
		return 1
	}
	if len(hypothesis) == 0 || len(reference) == 0 {
		return 0
	}

	refBag := make(map[string]int, len(reference))
	for _, tok := range reference {
		refBag[strings.ToLower(tok)]++
	}

	var overlap int
	for _, tok := range hypothesis {
		key := strings.ToLower(tok)
		if refBag[key] > 0 {
			refBag[key]--
			overlap++
		}
	}

	precision := float64(overlap) / float64(len(hypothesis))
	recall := float64(overlap) / float64(len(reference))
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
