package store

import (
	"context"

	"github.com/sells-group/parser-bench/internal/model"
)

// RunFilter specifies criteria for listing run records.
type RunFilter struct {
	Phase      string          `json:"phase,omitempty"`
	Parser     string          `json:"parser,omitempty"`
	DocumentID string          `json:"document_id,omitempty"`
	Status     model.RunStatus `json:"status,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines persistence for run records. Metric vectors are
// write-once: once attached they are never mutated. A changed ground
// truth or reweighing requires a fresh scoring pass producing new
// records.
type Store interface {
	CreateRunRecord(ctx context.Context, rec model.RunRecord) (*model.RunRecord, error)
	MarkParsed(ctx context.Context, recordID, cacheKey string, parseSecs, costUSD float64) error
	MarkFailed(ctx context.Context, recordID, reason string) error
	MarkUnscored(ctx context.Context, recordID string) error
	AttachMetrics(ctx context.Context, recordID string, metrics *model.MetricVector) error
	GetRunRecord(ctx context.Context, recordID string) (*model.RunRecord, error)
	ListRunRecords(ctx context.Context, filter RunFilter) ([]model.RunRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
