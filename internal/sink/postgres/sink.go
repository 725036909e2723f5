// Package postgres provides a document sink backed by PostgreSQL.
package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/searchops/serp-harvester/internal/serp"
)

// DB is the subset of pgxpool.Pool the sink needs. It is satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const upsertDocument = `
INSERT INTO serp_documents (key, query, document, record_count, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (key) DO UPDATE
SET query = EXCLUDED.query,
    document = EXCLUDED.document,
    record_count = EXCLUDED.record_count,
    updated_at = NOW()
`

const createSchema = `
CREATE TABLE IF NOT EXISTS serp_documents (
    key TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    document JSONB NOT NULL,
    record_count INT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)
`

// Sink upserts one row per query document, keyed by the sanitized query
// identifier so re-runs overwrite prior output.
type Sink struct {
	db     DB
	logger *zap.Logger
}

// New constructs a Postgres sink over an existing connection pool.
func New(db DB, logger *zap.Logger) (*Sink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{db: db, logger: logger}, nil
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createSchema); err != nil {
		return fmt.Errorf("create serp_documents table: %w", err)
	}
	return nil
}

// Store upserts the document and returns the number of records written.
func (s *Sink) Store(ctx context.Context, key string, doc serp.Document) (int, error) {
	if strings.TrimSpace(key) == "" {
		return 0, fmt.Errorf("document key is required")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}

	records := doc.RecordCount()
	if _, err := s.db.Exec(ctx, upsertDocument, key, doc.Query, buf.Bytes(), records); err != nil {
		return 0, fmt.Errorf("upsert document %q: %w", key, err)
	}

	s.logger.Info("document upserted",
		zap.String("key", key),
		zap.Int("records", records),
	)
	return records, nil
}
