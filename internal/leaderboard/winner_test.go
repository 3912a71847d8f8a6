package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parser-bench/internal/metrics"
	"github.com/sells-group/parser-bench/internal/model"
)

func entry(parser string, overall, structural, secs, cost float64) model.LeaderboardEntry {
	return model.LeaderboardEntry{
		Parser: parser,
		Phase:  "pilot",
		Mean: model.MetricVector{
			Overall:            overall,
			StructuralFidelity: structural,
		},
		MeanSecsPerPage: secs,
		MeanCostPerPage: cost,
		PagesScored:     10,
		MaxTrials:       1,
	}
}

func TestSelectWinnerNoEntries(t *testing.T) {
	t.Parallel()

	_, err := SelectWinner(nil, metrics.DefaultScoringConfig())
	require.Error(t, err)
}

func TestSelectWinnerClearLeader(t *testing.T) {
	t.Parallel()

	entries := []model.LeaderboardEntry{
		entry("slowhand", 0.95, 0.9, 10, 0.05),
		entry("quickdraw", 0.80, 0.99, 1, 0.001),
	}
	sel, err := SelectWinner(entries, metrics.DefaultScoringConfig())
	require.NoError(t, err)

	// 0.80 is far outside the 2% band of 0.95: no cascade needed.
	assert.Equal(t, "slowhand", sel.Winner.Parser)
	assert.Len(t, sel.Ranked, 2)
}

func TestSelectWinnerWithinBandStructureDecides(t *testing.T) {
	t.Parallel()

	// 0.89 is within 2% of 0.90 (floor 0.882): the structural subscore
	// breaks the near-tie in favor of the nominally lower entry.
	entries := []model.LeaderboardEntry{
		entry("textish", 0.90, 0.80, 5, 0.01),
		entry("structish", 0.89, 0.92, 5, 0.01),
	}
	sel, err := SelectWinner(entries, metrics.DefaultScoringConfig())
	require.NoError(t, err)

	assert.Equal(t, "structish", sel.Winner.Parser)
	assert.NotEmpty(t, sel.Rationale)
}

func TestSelectWinnerCascadeFallsToSpeedAndCost(t *testing.T) {
	t.Parallel()

	entries := []model.LeaderboardEntry{
		entry("a", 0.90, 0.85, 8, 0.02),
		entry("b", 0.90, 0.85, 3, 0.02),
		entry("c", 0.90, 0.85, 3, 0.005),
	}
	sel, err := SelectWinner(entries, metrics.DefaultScoringConfig())
	require.NoError(t, err)

	// Structure ties, speed eliminates a, cost picks c over b.
	assert.Equal(t, "c", sel.Winner.Parser)
}

func TestSelectWinnerSkipsSpeedAndCostWithoutData(t *testing.T) {
	t.Parallel()

	// "unmeasured" has no timing or cost data; zero must not beat real
	// measurements on the lower-is-better criteria.
	entries := []model.LeaderboardEntry{
		entry("measured", 0.90, 0.85, 3, 0.01),
		entry("unmeasured", 0.90, 0.85, 0, 0),
	}
	sel, err := SelectWinner(entries, metrics.DefaultScoringConfig())
	require.NoError(t, err)

	assert.Equal(t, "measured", sel.Winner.Parser)
	assert.Contains(t, sel.Rationale, "speed criterion skipped: not all candidates have timing data")
	assert.Contains(t, sel.Rationale, "cost criterion skipped: not all candidates have cost data")
}

func TestSelectWinnerStdDevRequiresMultiTrial(t *testing.T) {
	t.Parallel()

	a := entry("a", 0.90, 0.85, 3, 0.01)
	b := entry("b", 0.90, 0.85, 3, 0.01)
	sel, err := SelectWinner([]model.LeaderboardEntry{a, b}, metrics.DefaultScoringConfig())
	require.NoError(t, err)

	// Full tie with single-trial entries: std-dev step is skipped and the
	// higher-ranked candidate survives.
	assert.Equal(t, "a", sel.Winner.Parser)
	assert.Contains(t, sel.Rationale[len(sel.Rationale)-2], "skipped")
}

func TestSelectWinnerStdDevBreaksTie(t *testing.T) {
	t.Parallel()

	steady := entry("steady", 0.90, 0.85, 3, 0.01)
	steady.MaxTrials = 3
	steady.StdDev = &model.MetricVector{Overall: 0.01}

	jittery := entry("jittery", 0.90, 0.85, 3, 0.01)
	jittery.MaxTrials = 3
	jittery.StdDev = &model.MetricVector{Overall: 0.08}

	sel, err := SelectWinner([]model.LeaderboardEntry{jittery, steady}, metrics.DefaultScoringConfig())
	require.NoError(t, err)
	assert.Equal(t, "steady", sel.Winner.Parser)
}
