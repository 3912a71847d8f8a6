package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parser-bench/internal/model"
)

func vec(overall float64) *model.MetricVector {
	return &model.MetricVector{
		TextAccuracy:       overall,
		StructuralFidelity: overall,
		Overall:            overall,
	}
}

func scoredRec(parser, doc string, page, trial int, overall float64) model.RunRecord {
	return model.RunRecord{
		Parser:        parser,
		DocumentID:    doc,
		PDFPageNumber: page,
		Trial:         trial,
		Status:        model.RunStatusScored,
		Metrics:       vec(overall),
		ParseSecs:     2.0,
		CostUSD:       0.01,
	}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	records := []model.RunRecord{
		scoredRec("alpha", "doc1", 1, 1, 0.9),
		scoredRec("alpha", "doc1", 2, 1, 0.7),
		scoredRec("beta", "doc1", 1, 1, 0.6),
		{
			Parser: "beta", DocumentID: "doc1", PDFPageNumber: 2,
			Trial: 1, Status: model.RunStatusUnscored,
		},
		{
			Parser: "beta", DocumentID: "doc1", PDFPageNumber: 3,
			Trial: 1, Status: model.RunStatusFailed, Metrics: &model.MetricVector{},
		},
	}

	entries := Aggregate("pilot", records, nil)
	require.Len(t, entries, 2)

	// Sorted descending by mean overall.
	alpha, beta := entries[0], entries[1]
	assert.Equal(t, "alpha", alpha.Parser)
	assert.Equal(t, "pilot", alpha.Phase)
	assert.Equal(t, 2, alpha.PagesScored)
	assert.InDelta(t, 0.8, alpha.Mean.Overall, 1e-9)
	assert.Nil(t, alpha.StdDev)
	assert.InDelta(t, 2.0, alpha.MeanSecsPerPage, 1e-9)
	assert.InDelta(t, 0.01, alpha.MeanCostPerPage, 1e-9)

	// The failed record has a zero vector attached: it drags the mean.
	assert.Equal(t, "beta", beta.Parser)
	assert.Equal(t, 2, beta.PagesScored)
	assert.Equal(t, 1, beta.PagesUnscored)
	assert.Equal(t, 1, beta.PagesFailed)
	assert.InDelta(t, 0.3, beta.Mean.Overall, 1e-9)
}

func TestAggregateMultiTrialStdDev(t *testing.T) {
	t.Parallel()

	records := []model.RunRecord{
		scoredRec("alpha", "doc1", 1, 1, 0.6),
		scoredRec("alpha", "doc1", 1, 2, 0.8),
	}

	entries := Aggregate("full", records, nil)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, 2, e.MaxTrials)
	require.NotNil(t, e.StdDev)
	// Sample std-dev of {0.6, 0.8}.
	assert.InDelta(t, 0.1414, e.StdDev.Overall, 1e-3)
}

func TestAggregateBuckets(t *testing.T) {
	t.Parallel()

	records := []model.RunRecord{
		scoredRec("alpha", "doc1", 1, 1, 0.9),
		scoredRec("alpha", "doc1", 2, 1, 0.5),
		scoredRec("alpha", "doc1", 3, 1, 0.7),
	}
	complexity := map[PageKey]model.LayoutComplexity{
		{DocumentID: "doc1", Page: 1}: model.ComplexitySimple,
		{DocumentID: "doc1", Page: 2}: model.ComplexityComplex,
		// Page 3 deliberately unlabeled.
	}

	entries := Aggregate("pilot", records, complexity)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, 3, e.PagesScored)
	require.Len(t, e.Buckets, 2)
	assert.Equal(t, 1, e.Buckets[model.ComplexitySimple].Pages)
	assert.InDelta(t, 0.9, e.Buckets[model.ComplexitySimple].Mean.Overall, 1e-9)
	assert.Equal(t, 1, e.Buckets[model.ComplexityComplex].Pages)
	assert.InDelta(t, 0.5, e.Buckets[model.ComplexityComplex].Mean.Overall, 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Aggregate("pilot", nil, nil))
}
