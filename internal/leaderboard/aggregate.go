// Package leaderboard aggregates per-page metric vectors into per-parser
// entries and selects a winner via the tie-break cascade. Aggregates are
// derived views: always recomputable from the underlying run records.
package leaderboard

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/parser-bench/internal/model"
)

// PageKey identifies one page of one document.
type PageKey struct {
	DocumentID string
	Page       int
}

// metricFields enumerates every scalar field of a MetricVector so mean
// and standard deviation can be computed uniformly. The metrics engine
// owns the semantics; this list only has to stay exhaustive.
var metricFields = []struct {
	get func(model.MetricVector) float64
	set func(*model.MetricVector, float64)
}{
	{func(m model.MetricVector) float64 { return m.TextAccuracy }, func(m *model.MetricVector, v float64) { m.TextAccuracy = v }},
	{func(m model.MetricVector) float64 { return m.EditSimilarity }, func(m *model.MetricVector, v float64) { m.EditSimilarity = v }},
	{func(m model.MetricVector) float64 { return m.BLEU }, func(m *model.MetricVector, v float64) { m.BLEU = v }},
	{func(m model.MetricVector) float64 { return m.TokenF1 }, func(m *model.MetricVector, v float64) { m.TokenF1 = v }},
	{func(m model.MetricVector) float64 { return m.StructuralFidelity }, func(m *model.MetricVector, v float64) { m.StructuralFidelity = v }},
	{func(m model.MetricVector) float64 { return m.TreeSimilarity }, func(m *model.MetricVector, v float64) { m.TreeSimilarity = v }},
	{func(m model.MetricVector) float64 { return m.ReadingOrderAccuracy }, func(m *model.MetricVector, v float64) { m.ReadingOrderAccuracy = v }},
	{func(m model.MetricVector) float64 { return m.HeadingF1 }, func(m *model.MetricVector, v float64) { m.HeadingF1 = v }},
	{func(m model.MetricVector) float64 { return m.Traceability.PageLabelExact }, func(m *model.MetricVector, v float64) { m.Traceability.PageLabelExact = v }},
	{func(m model.MetricVector) float64 { return m.Traceability.PageLabelNormalized }, func(m *model.MetricVector, v float64) { m.Traceability.PageLabelNormalized = v }},
	{func(m model.MetricVector) float64 { return m.Traceability.SectionPathExact }, func(m *model.MetricVector, v float64) { m.Traceability.SectionPathExact = v }},
	{func(m model.MetricVector) float64 { return m.Traceability.SectionPathPartial }, func(m *model.MetricVector, v float64) { m.Traceability.SectionPathPartial = v }},
	{func(m model.MetricVector) float64 { return m.Overall }, func(m *model.MetricVector, v float64) { m.Overall = v }},
}

func meanVector(vectors []model.MetricVector) model.MetricVector {
	var mean model.MetricVector
	if len(vectors) == 0 {
		return mean
	}
	for _, f := range metricFields {
		var sum float64
		for _, v := range vectors {
			sum += f.get(v)
		}
		f.set(&mean, sum/float64(len(vectors)))
	}
	return mean
}

func stdDevVector(vectors []model.MetricVector, mean model.MetricVector) model.MetricVector {
	var sd model.MetricVector
	if len(vectors) < 2 {
		return sd
	}
	for _, f := range metricFields {
		var sumSq float64
		m := f.get(mean)
		for _, v := range vectors {
			d := f.get(v) - m
			sumSq += d * d
		}
		f.set(&sd, math.Sqrt(sumSq/float64(len(vectors)-1)))
	}
	return sd
}

// Aggregate folds scored run records into one LeaderboardEntry per
// parser. complexity maps ground-truth pages to their layout bucket;
// pages without a bucket stay in the overall view only. Records without
// metrics (missing ground truth) are excluded from every mean and
// reported as unscored, never silently dropped.
func Aggregate(phase string, records []model.RunRecord, complexity map[PageKey]model.LayoutComplexity) []model.LeaderboardEntry {
	type parserAcc struct {
		vectors   []model.MetricVector
		buckets   map[model.LayoutComplexity][]model.MetricVector
		trials    map[PageKey]int
		unscored  int
		failed    int
		totalSecs float64
		totalCost float64
		timed     int
	}

	accs := make(map[string]*parserAcc)
	acc := func(parser string) *parserAcc {
		a, ok := accs[parser]
		if !ok {
			a = &parserAcc{
				buckets: make(map[model.LayoutComplexity][]model.MetricVector),
				trials:  make(map[PageKey]int),
			}
			accs[parser] = a
		}
		return a
	}

	for _, rec := range records {
		a := acc(rec.Parser)
		key := PageKey{DocumentID: rec.DocumentID, Page: rec.PDFPageNumber}

		if rec.Status == model.RunStatusFailed {
			a.failed++
		}
		if rec.Metrics == nil {
			a.unscored++
			zap.L().Debug("leaderboard: unscored record",
				zap.String("parser", rec.Parser),
				zap.String("document", rec.DocumentID),
				zap.Int("page", rec.PDFPageNumber),
			)
			continue
		}

		a.vectors = append(a.vectors, *rec.Metrics)
		a.trials[key]++
		if bucket, ok := complexity[key]; ok && bucket.Valid() {
			a.buckets[bucket] = append(a.buckets[bucket], *rec.Metrics)
		}
		if rec.ParseSecs > 0 || rec.CostUSD > 0 {
			a.totalSecs += rec.ParseSecs
			a.totalCost += rec.CostUSD
			a.timed++
		}
	}

	entries := make([]model.LeaderboardEntry, 0, len(accs))
	for parser, a := range accs {
		entry := model.LeaderboardEntry{
			Parser:        parser,
			Phase:         phase,
			PagesScored:   len(a.vectors),
			PagesUnscored: a.unscored,
			PagesFailed:   a.failed,
			Mean:          meanVector(a.vectors),
		}

		for _, n := range a.trials {
			if n > entry.MaxTrials {
				entry.MaxTrials = n
			}
		}
		if entry.MaxTrials > 1 {
			sd := stdDevVector(a.vectors, entry.Mean)
			entry.StdDev = &sd
		}

		if len(a.buckets) > 0 {
			entry.Buckets = make(map[model.LayoutComplexity]model.BucketAggregate, len(a.buckets))
			for bucket, vectors := range a.buckets {
				entry.Buckets[bucket] = model.BucketAggregate{
					Pages: len(vectors),
					Mean:  meanVector(vectors),
				}
			}
		}

		if a.timed > 0 {
			entry.MeanSecsPerPage = a.totalSecs / float64(a.timed)
			entry.MeanCostPerPage = a.totalCost / float64(a.timed)
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Mean.Overall != entries[j].Mean.Overall {
			return entries[i].Mean.Overall > entries[j].Mean.Overall
		}
		return entries[i].Parser < entries[j].Parser
	})
	return entries
}
