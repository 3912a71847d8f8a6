package model

import "time"

// RunStatus tracks the lifecycle of one (parser, document, page, trial)
// evaluation unit.
type RunStatus string

const (
	// RunStatusPending: record created, adapter not yet invoked.
	RunStatusPending RunStatus = "pending"
	// RunStatusParsed: raw output and canonical page cached, not yet scored.
	RunStatusParsed RunStatus = "parsed"
	// RunStatusScored: metrics attached; immutable from here on.
	RunStatusScored RunStatus = "scored"
	// RunStatusUnscored: parsed but no ground truth exists for the page.
	RunStatusUnscored RunStatus = "unscored"
	// RunStatusFailed: the adapter failed to produce output for the page.
	RunStatusFailed RunStatus = "failed"
)

// RunRecord is one (parser, document, page, trial) evaluation unit. Raw
// output and the canonical page are write-once under CacheKey; Metrics are
// attached once and never mutated. A changed ground truth or reweighing
// requires a new scoring pass, not an in-place update.
type RunRecord struct {
	ID            string    `json:"id"`
	Phase         string    `json:"phase"`
	Parser        string    `json:"parser"`
	DocumentID    string    `json:"document_id"`
	PDFPageNumber int       `json:"pdf_page_number"`
	Trial         int       `json:"trial"`
	Status        RunStatus `json:"status"`
	CacheKey      string    `json:"cache_key,omitempty"`
	Error         string    `json:"error,omitempty"`

	// Harness-measured, consumed by the leaderboard as speed/cost fields.
	ParseSecs float64 `json:"parse_secs,omitempty"`
	CostUSD   float64 `json:"cost_usd,omitempty"`

	Metrics *MetricVector `json:"metrics,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is one entry of the benchmark document manifest.
type Document struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Authors     []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	PDFFilename string   `json:"pdf_filename" yaml:"pdf_filename"`
	PageCount   int      `json:"page_count" yaml:"page_count"`
}
