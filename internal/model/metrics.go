package model

// Traceability measures preservation of printed page labels and section
// paths. Reported alongside the composite but never folded into it.
type Traceability struct {
	PageLabelExact      float64 `json:"page_label_exact"`
	PageLabelNormalized float64 `json:"page_label_normalized"`
	SectionPathExact    float64 `json:"section_path_exact"`
	SectionPathPartial  float64 `json:"section_path_partial"`
}

// MetricVector is the per-page scoring result. Every field except Overall
// lies in [0,1]; Overall is the weighted composite of text accuracy and
// structural fidelity.
type MetricVector struct {
	TextAccuracy   float64 `json:"text_accuracy"`
	EditSimilarity float64 `json:"edit_similarity"`
	BLEU           float64 `json:"bleu"`
	TokenF1        float64 `json:"token_f1"`

	StructuralFidelity   float64 `json:"structural_fidelity"`
	TreeSimilarity       float64 `json:"tree_similarity"`
	ReadingOrderAccuracy float64 `json:"reading_order_accuracy"`
	HeadingF1            float64 `json:"heading_f1"`

	Traceability Traceability `json:"traceability"`

	Overall float64 `json:"overall"`
}

// BucketAggregate is the per-complexity-bucket slice of a leaderboard entry.
type BucketAggregate struct {
	Pages int          `json:"pages"`
	Mean  MetricVector `json:"mean"`
}

// LeaderboardEntry aggregates one parser's results for one phase. Speed
// and cost are measured by the run harness, not by the metrics engine.
type LeaderboardEntry struct {
	Parser string `json:"parser"`
	Phase  string `json:"phase"`

	PagesScored   int `json:"pages_scored"`
	PagesUnscored int `json:"pages_unscored"`
	PagesFailed   int `json:"pages_failed"`
	MaxTrials     int `json:"max_trials"`

	Mean MetricVector `json:"mean"`

	// StdDev is present only when at least one page ran multiple trials.
	StdDev *MetricVector `json:"std_dev,omitempty"`

	Buckets map[LayoutComplexity]BucketAggregate `json:"buckets,omitempty"`

	MeanSecsPerPage float64 `json:"mean_secs_per_page"`
	MeanCostPerPage float64 `json:"mean_cost_per_page"`
}

// PhaseResults is the combined artifact for one benchmark phase: every
// per-page vector plus the per-parser aggregates, in one serializable
// shape for external reporting.
type PhaseResults struct {
	Phase          string             `json:"phase"`
	ScoringVersion string             `json:"scoring_version"`
	Entries        []LeaderboardEntry `json:"entries"`
	Records        []RunRecord        `json:"records"`
}
