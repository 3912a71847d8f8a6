package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/parser-bench/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS run_records (
	id              TEXT PRIMARY KEY,
	phase           TEXT NOT NULL,
	parser          TEXT NOT NULL,
	document_id     TEXT NOT NULL,
	pdf_page_number INTEGER NOT NULL,
	trial           INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'pending',
	cache_key       TEXT,
	error           TEXT,
	parse_secs      REAL NOT NULL DEFAULT 0,
	cost_usd        REAL NOT NULL DEFAULT 0,
	metrics         TEXT,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (phase, parser, document_id, pdf_page_number, trial)
);

CREATE INDEX IF NOT EXISTS idx_run_records_phase_parser ON run_records(phase, parser);
CREATE INDEX IF NOT EXISTS idx_run_records_document ON run_records(document_id, pdf_page_number);
CREATE INDEX IF NOT EXISTS idx_run_records_status ON run_records(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRunRecord(ctx context.Context, rec model.RunRecord) (*model.RunRecord, error) {
	rec.ID = uuid.New().String()
	rec.Status = model.RunStatusPending
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_records (id, phase, parser, document_id, pdf_page_number, trial, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Phase, rec.Parser, rec.DocumentID, rec.PDFPageNumber, rec.Trial, string(rec.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run record %s/%s p%d t%d", rec.Parser, rec.DocumentID, rec.PDFPageNumber, rec.Trial)
	}
	return &rec, nil
}

func (s *SQLiteStore) MarkParsed(ctx context.Context, recordID, cacheKey string, parseSecs, costUSD float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_records SET status = ?, cache_key = ?, parse_secs = ?, cost_usd = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusParsed), cacheKey, parseSecs, costUSD, time.Now().UTC(), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark parsed %s", recordID)
	}
	return checkRowsAffected(res, "run record", recordID)
}

func (s *SQLiteStore) MarkFailed(ctx context.Context, recordID, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_records SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), reason, time.Now().UTC(), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark failed %s", recordID)
	}
	return checkRowsAffected(res, "run record", recordID)
}

func (s *SQLiteStore) MarkUnscored(ctx context.Context, recordID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_records SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusUnscored), time.Now().UTC(), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark unscored %s", recordID)
	}
	return checkRowsAffected(res, "run record", recordID)
}

// AttachMetrics writes the metric vector exactly once. Attaching to a
// record that already has metrics is a logic error.
func (s *SQLiteStore) AttachMetrics(ctx context.Context, recordID string, metrics *model.MetricVector) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metrics")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_records SET metrics = ?, status = CASE status WHEN 'failed' THEN 'failed' ELSE ? END, updated_at = ?
		 WHERE id = ? AND metrics IS NULL`,
		string(metricsJSON), string(model.RunStatusScored), time.Now().UTC(), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: attach metrics %s", recordID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run record %s not found or already scored", recordID)
	}
	return nil
}

func (s *SQLiteStore) GetRunRecord(ctx context.Context, recordID string) (*model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, phase, parser, document_id, pdf_page_number, trial, status, cache_key, error, parse_secs, cost_usd, metrics, created_at, updated_at
		 FROM run_records WHERE id = ?`,
		recordID,
	)
	return scanRunRecord(row)
}

func (s *SQLiteStore) ListRunRecords(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	query := `SELECT id, phase, parser, document_id, pdf_page_number, trial, status, cache_key, error, parse_secs, cost_usd, metrics, created_at, updated_at
	          FROM run_records WHERE 1=1`
	var args []any

	if filter.Phase != "" {
		query += ` AND phase = ?`
		args = append(args, filter.Phase)
	}
	if filter.Parser != "" {
		query += ` AND parser = ?`
		args = append(args, filter.Parser)
	}
	if filter.DocumentID != "" {
		query += ` AND document_id = ?`
		args = append(args, filter.DocumentID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY document_id, pdf_page_number, parser, trial`

	limit := filter.Limit
	if limit <= 0 {
		limit = 10000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list run records")
	}
	defer rows.Close()

	var records []model.RunRecord
	for rows.Next() {
		r, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list run records iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRunRecord(row scannable) (*model.RunRecord, error) {
	var r model.RunRecord
	var status string
	var cacheKey, errMsg, metricsJSON sql.NullString

	err := row.Scan(
		&r.ID, &r.Phase, &r.Parser, &r.DocumentID, &r.PDFPageNumber, &r.Trial,
		&status, &cacheKey, &errMsg, &r.ParseSecs, &r.CostUSD, &metricsJSON,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.New("run record not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run record")
	}

	r.Status = model.RunStatus(status)
	r.CacheKey = cacheKey.String
	r.Error = errMsg.String
	if metricsJSON.Valid {
		r.Metrics = &model.MetricVector{}
		if err := json.Unmarshal([]byte(metricsJSON.String), r.Metrics); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metrics")
		}
	}
	return &r, nil
}
