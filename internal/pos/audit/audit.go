// internal/pos/audit/audit.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pos-interpreter/internal/models"
)

var ErrAuditWriteFailed = errors.New("AUDIT_WRITE_FAILED")

const createTableSQL = `CREATE TABLE IF NOT EXISTS interpret_audit (
	id              BIGSERIAL PRIMARY KEY,
	trace_id        TEXT NOT NULL,
	text            TEXT NOT NULL,
	normalized_text TEXT NOT NULL,
	actions         JSONB NOT NULL,
	fast_path       BOOLEAN NOT NULL DEFAULT FALSE,
	prompt_fp       TEXT,
	duration_ms     BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const insertSQL = `INSERT INTO interpret_audit
	(trace_id, text, normalized_text, actions, fast_path, prompt_fp, duration_ms, created_at)
	VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8)`

// Entry is one interpreted command.
type Entry struct {
	TraceID        string
	Text           string
	NormalizedText string
	Actions        []models.Action
	FastPath       bool
	PromptFP       string
	Duration       time.Duration
	CreatedAt      time.Time
}

// Store writes entries to Postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("%w: create table: %v", ErrAuditWriteFailed, err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	actions := e.Actions
	if actions == nil {
		actions = []models.Action{}
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("%w: encode actions: %v", ErrAuditWriteFailed, err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var fp sql.NullString
	if e.PromptFP != "" {
		fp = sql.NullString{String: e.PromptFP, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, insertSQL,
		e.TraceID,
		e.Text,
		e.NormalizedText,
		string(raw),
		e.FastPath,
		fp,
		e.Duration.Milliseconds(),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuditWriteFailed, err)
	}
	return nil
}
