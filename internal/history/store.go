// Package history persists per-call dispatch outcomes to a local sqlite
// database so past assistant turns can be inspected and replayed.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/orchestrator"
)

// Row is one recorded call outcome
type Row struct {
	ID         int64
	BatchID    string
	CallIndex  int
	ToolName   string
	Status     string
	SourceID   string
	ErrorKind  string
	ErrorMsg   string
	DurationMS int64
	CreatedAt  time.Time
	Value      string // JSON-encoded result value
}

// Store is a sqlite-backed call log
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore opens (or creates) the history database at path
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("path", path).Msg("Call history store opened")
	return s, nil
}

// initSchema creates database tables
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			call_index INTEGER NOT NULL,
			tool_name TEXT NOT NULL,
			status TEXT NOT NULL,
			source_id TEXT,
			error_kind TEXT,
			error_message TEXT,
			value TEXT,
			duration_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_calls_batch ON calls(batch_id);
		CREATE INDEX IF NOT EXISTS idx_calls_tool ON calls(tool_name);
		CREATE INDEX IF NOT EXISTS idx_calls_created ON calls(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Record persists one call outcome. Implements orchestrator.Recorder.
func (s *Store) Record(ctx context.Context, batchID string, index int, result orchestrator.CallResult, duration time.Duration) error {
	var errorKind, errorMsg string
	if result.Error != nil {
		errorKind = string(result.Error.Kind)
		errorMsg = result.Error.Message
	}

	var value string
	if result.Value != nil {
		encoded, err := json.Marshal(result.Value)
		if err == nil {
			value = string(encoded)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (batch_id, call_index, tool_name, status, source_id, error_kind, error_message, value, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batchID, index, result.ToolName, string(result.Status), result.SourceID,
		errorKind, errorMsg, value, duration.Milliseconds(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	return nil
}

// Batch returns all recorded calls of one batch in call order
func (s *Store) Batch(ctx context.Context, batchID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, call_index, tool_name, status, source_id, error_kind, error_message, value, duration_ms, created_at
		FROM calls WHERE batch_id = ? ORDER BY call_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Recent returns the most recent calls, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, call_index, tool_name, status, source_id, error_kind, error_message, value, duration_ms, created_at
		FROM calls ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent calls: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// FailureCounts returns per-kind failure totals since the given time
func (s *Store) FailureCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT error_kind, COUNT(*) FROM calls
		WHERE status = 'failure' AND created_at >= ?
		GROUP BY error_kind`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query failure counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// Prune deletes calls older than the given time and returns how many rows
// were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calls WHERE created_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var r Row
		var createdAt int64
		var sourceID, errorKind, errorMsg, value sql.NullString
		if err := rows.Scan(&r.ID, &r.BatchID, &r.CallIndex, &r.ToolName, &r.Status,
			&sourceID, &errorKind, &errorMsg, &value, &r.DurationMS, &createdAt); err != nil {
			return nil, err
		}
		r.SourceID = sourceID.String
		r.ErrorKind = errorKind.String
		r.ErrorMsg = errorMsg.String
		r.Value = value.String
		r.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
