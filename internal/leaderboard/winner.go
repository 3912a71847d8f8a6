package leaderboard

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parser-bench/internal/metrics"
	"github.com/sells-group/parser-bench/internal/model"
)

// Selection is the outcome of winner selection: the winner, the full
// ranking, and the tie-break cascade taken to reach the decision.
type Selection struct {
	Winner    model.LeaderboardEntry   `json:"winner"`
	Ranked    []model.LeaderboardEntry `json:"ranked"`
	Rationale []string                 `json:"rationale"`
}

// SelectWinner ranks entries by mean overall score and resolves the
// leader through a tolerance band plus tie-break cascade. The band is a
// fixed relative tolerance, not a statistical test: anything within
// cfg.WinnerToleranceBand of the top overall is still a candidate.
//
// Cascade order among candidates: higher structural subscore, lower mean
// seconds per page, lower mean cost per page, lower overall std-dev.
// Each measured criterion applies only when every remaining candidate
// carries data for it (timing, cost, or >= 2 trials).
func SelectWinner(entries []model.LeaderboardEntry, cfg metrics.ScoringConfig) (*Selection, error) {
	if len(entries) == 0 {
		return nil, eris.New("leaderboard: no entries to rank")
	}

	ranked := make([]model.LeaderboardEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Mean.Overall != ranked[j].Mean.Overall {
			return ranked[i].Mean.Overall > ranked[j].Mean.Overall
		}
		return ranked[i].Parser < ranked[j].Parser
	})

	sel := &Selection{Ranked: ranked}

	top := ranked[0].Mean.Overall
	floor := top * (1 - cfg.WinnerToleranceBand)
	var candidates []model.LeaderboardEntry
	for _, e := range ranked {
		if e.Mean.Overall >= floor {
			candidates = append(candidates, e)
		}
	}
	sel.Rationale = append(sel.Rationale, fmt.Sprintf(
		"tolerance band: %d of %d entries within %.1f%% of leader (overall >= %.4f)",
		len(candidates), len(ranked), cfg.WinnerToleranceBand*100, floor,
	))

	if len(candidates) > 1 {
		candidates = keepBest(candidates, func(e model.LeaderboardEntry) float64 {
			return e.Mean.StructuralFidelity
		}, true)
		sel.Rationale = append(sel.Rationale, fmt.Sprintf(
			"structural subscore: %s leads at %.4f",
			names(candidates), candidates[0].Mean.StructuralFidelity,
		))
	}

	// Speed and cost are lower-is-better, so a candidate with no
	// measurement (zero) would win by default; both criteria apply only
	// when every candidate carries data.
	if len(candidates) > 1 {
		if allMeasured(candidates, func(e model.LeaderboardEntry) float64 { return e.MeanSecsPerPage }) {
			candidates = keepBest(candidates, func(e model.LeaderboardEntry) float64 {
				return e.MeanSecsPerPage
			}, false)
			sel.Rationale = append(sel.Rationale, fmt.Sprintf(
				"speed per page: %s leads at %.2fs",
				names(candidates), candidates[0].MeanSecsPerPage,
			))
		} else {
			sel.Rationale = append(sel.Rationale, "speed criterion skipped: not all candidates have timing data")
		}
	}

	if len(candidates) > 1 {
		if allMeasured(candidates, func(e model.LeaderboardEntry) float64 { return e.MeanCostPerPage }) {
			candidates = keepBest(candidates, func(e model.LeaderboardEntry) float64 {
				return e.MeanCostPerPage
			}, false)
			sel.Rationale = append(sel.Rationale, fmt.Sprintf(
				"cost per page: %s leads at $%.4f",
				names(candidates), candidates[0].MeanCostPerPage,
			))
		} else {
			sel.Rationale = append(sel.Rationale, "cost criterion skipped: not all candidates have cost data")
		}
	}

	if len(candidates) > 1 {
		if allMultiTrial(candidates) {
			candidates = keepBest(candidates, func(e model.LeaderboardEntry) float64 {
				return e.StdDev.Overall
			}, false)
			sel.Rationale = append(sel.Rationale, fmt.Sprintf(
				"overall std-dev across trials: %s leads at %.4f",
				names(candidates), candidates[0].StdDev.Overall,
			))
		} else {
			sel.Rationale = append(sel.Rationale, "std-dev criterion skipped: not all candidates ran >= 2 trials")
		}
	}

	// Candidates preserve ranked order, so the first survivor is the
	// highest-overall of the remaining tie.
	sel.Winner = candidates[0]
	sel.Rationale = append(sel.Rationale, fmt.Sprintf("winner: %s (overall %.4f)", sel.Winner.Parser, sel.Winner.Mean.Overall))
	return sel, nil
}

// keepBest retains every candidate sharing the extreme value of the
// criterion, preserving input order.
func keepBest(candidates []model.LeaderboardEntry, criterion func(model.LeaderboardEntry) float64, higher bool) []model.LeaderboardEntry {
	best := criterion(candidates[0])
	for _, c := range candidates[1:] {
		v := criterion(c)
		if (higher && v > best) || (!higher && v < best) {
			best = v
		}
	}
	var kept []model.LeaderboardEntry
	for _, c := range candidates {
		if criterion(c) == best {
			kept = append(kept, c)
		}
	}
	return kept
}

func allMeasured(candidates []model.LeaderboardEntry, value func(model.LeaderboardEntry) float64) bool {
	for _, c := range candidates {
		if value(c) <= 0 {
			return false
		}
	}
	return true
}

func allMultiTrial(candidates []model.LeaderboardEntry) bool {
	for _, c := range candidates {
		if c.MaxTrials < 2 || c.StdDev == nil {
			return false
		}
	}
	return true
}

func names(candidates []model.LeaderboardEntry) string {
	if len(candidates) == 1 {
		return candidates[0].Parser
	}
	s := candidates[0].Parser
	for _, c := range candidates[1:] {
		s += ", " + c.Parser
	}
	return s
}
