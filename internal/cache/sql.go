package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/goscrape/internal/logger"
)

// SQL schema for the two cache namespaces. TEXT columns keep the schema
// portable between sqlite and postgres.
const sqlSchema = `
CREATE TABLE IF NOT EXISTS raw_cache (
	cache_key TEXT PRIMARY KEY,
	body      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS value_cache (
	cache_key TEXT PRIMARY KEY,
	records   TEXT NOT NULL
);`

// SQLBackend persists entries in a relational database via sqlx. It works
// against any driver whose placeholder style sqlx can rebind; the CLI
// wires it to sqlite and postgres.
type SQLBackend struct {
	db  *sqlx.DB
	log logger.Interface
}

// NewSQL creates a SQL backend on top of an open database handle and
// ensures the cache tables exist.
func NewSQL(ctx context.Context, db *sqlx.DB, log logger.Interface) (*SQLBackend, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		return nil, fmt.Errorf("create cache tables: %w", err)
	}

	return &SQLBackend{db: db, log: log.WithComponent("sql-cache")}, nil
}

// LoadRaw returns the cached raw body for key, if present.
func (s *SQLBackend) LoadRaw(ctx context.Context, key string) (string, bool) {
	var body string
	query := s.db.Rebind("SELECT body FROM raw_cache WHERE cache_key = ?")

	err := s.db.GetContext(ctx, &body, query, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("cache read failed", "key", key, "error", err.Error())
		}
		return "", false
	}
	return body, true
}

// SaveRaw stores the raw body under key, replacing any previous entry.
func (s *SQLBackend) SaveRaw(ctx context.Context, key, body string) {
	s.upsert(ctx, "raw_cache", "body", key, body)
}

// LoadValue returns the cached processed records for key, if present.
func (s *SQLBackend) LoadValue(ctx context.Context, key string) ([]Record, bool) {
	var encoded string
	query := s.db.Rebind("SELECT records FROM value_cache WHERE cache_key = ?")

	err := s.db.GetContext(ctx, &encoded, query, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("cache read failed", "key", key, "error", err.Error())
		}
		return nil, false
	}

	var records []Record
	if unmarshalErr := json.Unmarshal([]byte(encoded), &records); unmarshalErr != nil {
		s.log.Warn("cache entry corrupt", "key", key, "error", unmarshalErr.Error())
		return nil, false
	}
	return records, true
}

// SaveValue stores the processed records under key, replacing any
// previous entry.
func (s *SQLBackend) SaveValue(ctx context.Context, key string, records []Record) {
	encoded, err := json.Marshal(records)
	if err != nil {
		s.log.Warn("cache encode failed", "key", key, "error", err.Error())
		return
	}
	s.upsert(ctx, "value_cache", "records", key, string(encoded))
}

// upsert writes one cache row. ON CONFLICT upsert syntax is shared by
// sqlite and postgres.
func (s *SQLBackend) upsert(ctx context.Context, table, column, key, value string) {
	query := s.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (cache_key, %s) VALUES (?, ?) ON CONFLICT (cache_key) DO UPDATE SET %s = excluded.%s",
		table, column, column, column,
	))

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err.Error())
	}
}
