package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marchdb/march/internal/dialect"
	"github.com/marchdb/march/internal/merr"
)

// RecorderTable is the bookkeeping table that tracks applied migrations.
const RecorderTable = "march_migrations"

// AppliedMigration is one recorder row.
type AppliedMigration struct {
	Name       string
	AppliedAt  time.Time
	ExecTimeMs int64
}

// Execer is the statement surface shared by *sql.DB and *sql.Tx, letting
// recorder mutations join the migration's own transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Recorder reads and writes the applied-migrations table.
type Recorder struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// NewRecorder returns a recorder bound to a database and dialect.
func NewRecorder(db *sql.DB, d dialect.Dialect) *Recorder {
	return &Recorder{db: db, dialect: d}
}

// EnsureTable creates the recorder table if it does not exist.
func (r *Recorder) EnsureTable(ctx context.Context) error {
	var ddl string
	switch r.dialect.Name() {
	case "postgres":
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  name TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  exec_time_ms BIGINT NOT NULL DEFAULT 0
)`, r.dialect.QuoteIdent(RecorderTable))
	default:
		ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  name TEXT PRIMARY KEY,
  applied_at TEXT NOT NULL DEFAULT (datetime('now')),
  exec_time_ms INTEGER NOT NULL DEFAULT 0
)`, r.dialect.QuoteIdent(RecorderTable))
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return merr.Wrap(err, merr.ErrBackend, "cannot create the migration bookkeeping table").
			WithSQL(ddl)
	}
	return nil
}

// TableExists reports whether the recorder table has been created.
func (r *Recorder) TableExists(ctx context.Context) (bool, error) {
	var query string
	switch r.dialect.Name() {
	case "postgres":
		query = "SELECT 1 FROM information_schema.tables WHERE table_name = $1"
	default:
		query = "SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	var one int
	err := r.db.QueryRowContext(ctx, query, RecorderTable).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, merr.Wrap(err, merr.ErrBackend, "cannot check for the migration bookkeeping table").
			WithSQL(query)
	}
	return true, nil
}

// AppliedIfExists is Applied on a database that may predate the
// recorder: a missing table reads as nothing applied, while a genuine
// backend failure is still an error.
func (r *Recorder) AppliedIfExists(ctx context.Context) ([]AppliedMigration, error) {
	exists, err := r.TableExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return r.Applied(ctx)
}

// Applied returns the recorded migrations ordered by name, which sorts
// by sequence number because names are zero-padded.
func (r *Recorder) Applied(ctx context.Context) ([]AppliedMigration, error) {
	query := fmt.Sprintf("SELECT name, applied_at, exec_time_ms FROM %s ORDER BY name",
		r.dialect.QuoteIdent(RecorderTable))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, merr.Wrap(err, merr.ErrBackend, "cannot read the migration bookkeeping table").
			WithSQL(query)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		var appliedAt any
		if err := rows.Scan(&m.Name, &appliedAt, &m.ExecTimeMs); err != nil {
			return nil, merr.Wrap(err, merr.ErrBackend, "cannot scan a bookkeeping row")
		}
		m.AppliedAt = parseAppliedAt(appliedAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, merr.Wrap(err, merr.ErrBackend, "cannot read the migration bookkeeping table")
	}
	return out, nil
}

// IsApplied reports whether the named migration is recorded.
func (r *Recorder) IsApplied(ctx context.Context, name string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE name = %s",
		r.dialect.QuoteIdent(RecorderTable), r.dialect.Placeholder(1))
	var one int
	err := r.db.QueryRowContext(ctx, query, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, merr.Wrap(err, merr.ErrBackend, "cannot read the migration bookkeeping table").
			WithMigration(name)
	}
	return true, nil
}

// MarkApplied records a migration. Idempotent: re-marking an already
// recorded migration is a no-op.
func (r *Recorder) MarkApplied(ctx context.Context, q Execer, name string, execTime time.Duration) error {
	var stmt string
	switch r.dialect.Name() {
	case "postgres":
		stmt = fmt.Sprintf("INSERT INTO %s (name, exec_time_ms) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING",
			r.dialect.QuoteIdent(RecorderTable))
	default:
		stmt = fmt.Sprintf("INSERT OR IGNORE INTO %s (name, exec_time_ms) VALUES (?, ?)",
			r.dialect.QuoteIdent(RecorderTable))
	}
	if _, err := q.ExecContext(ctx, stmt, name, execTime.Milliseconds()); err != nil {
		return merr.Wrap(err, merr.ErrBackend, "cannot record the migration as applied").
			WithMigration(name)
	}
	return nil
}

// MarkUnapplied removes a migration's record. Idempotent: removing an
// absent record is a no-op.
func (r *Recorder) MarkUnapplied(ctx context.Context, q Execer, name string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE name = %s",
		r.dialect.QuoteIdent(RecorderTable), r.dialect.Placeholder(1))
	if _, err := q.ExecContext(ctx, stmt, name); err != nil {
		return merr.Wrap(err, merr.ErrBackend, "cannot remove the migration record").
			WithMigration(name)
	}
	return nil
}

// parseAppliedAt tolerates both native timestamps (postgres) and the
// string forms SQLite drivers return.
func parseAppliedAt(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return parseTimeString(string(t))
	case string:
		return parseTimeString(t)
	default:
		return time.Time{}
	}
}

func parseTimeString(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
