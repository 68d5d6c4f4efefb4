package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
	CREATE TABLE IF NOT EXISTS posted_history (
		id SERIAL PRIMARY KEY,
		text TEXT UNIQUE NOT NULL,
		post TEXT NOT NULL DEFAULT '',
		posted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_posted_history_posted_at ON posted_history(posted_at);
	`

// PostgresHistory stores the posted history in PostgreSQL.
type PostgresHistory struct {
	db        *sql.DB
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	entries *ledger
}

// OpenPostgres connects to the database and loads the history.
func OpenPostgres(ctx context.Context, dsn string, retention time.Duration, logger *slog.Logger) (*PostgresHistory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	ph, err := NewPostgresHistory(ctx, db, retention, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return ph, nil
}

// NewPostgresHistory initializes the schema on an open database and
// loads the records.
func NewPostgresHistory(ctx context.Context, db *sql.DB, retention time.Duration, logger *slog.Logger) (*PostgresHistory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ph := &PostgresHistory{
		db:        db,
		retention: retention,
		logger:    logger.With("component", "history", "backend", "postgres"),
		now:       time.Now,
		entries:   newLedger(),
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := ph.cleanup(ctx); err != nil {
		return nil, err
	}
	if err := ph.load(ctx); err != nil {
		return nil, err
	}

	ph.logger.Info("history loaded", "records", ph.entries.len())
	return ph, nil
}

// cleanup removes records outside the retention window.
func (ph *PostgresHistory) cleanup(ctx context.Context) error {
	if ph.retention <= 0 {
		return nil
	}

	cutoff := ph.now().Add(-ph.retention)
	result, err := ph.db.ExecContext(ctx, `DELETE FROM posted_history WHERE posted_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		ph.logger.Info("dropped records outside retention window", "dropped", rows)
	}
	return nil
}

func (ph *PostgresHistory) load(ctx context.Context) error {
	rows, err := ph.db.QueryContext(ctx, `SELECT text, post, posted_at FROM posted_history ORDER BY posted_at, id`)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Text, &r.Post, &r.PostedAt); err != nil {
			return fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read history rows: %w", err)
	}

	ph.entries.reset(records)
	return nil
}

// Contains reports whether text was already posted.
func (ph *PostgresHistory) Contains(text string) bool {
	return ph.entries.contains(text)
}

// Record inserts text. A concurrent insert of the same text by another
// process is absorbed by ON CONFLICT.
func (ph *PostgresHistory) Record(ctx context.Context, text, post string) error {
	r := Record{Text: text, Post: post, PostedAt: ph.now().UTC()}
	if !ph.entries.add(r) {
		return nil
	}

	query := `
		INSERT INTO posted_history (text, post, posted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (text) DO NOTHING
	`
	if _, err := ph.db.ExecContext(ctx, query, r.Text, r.Post, r.PostedAt); err != nil {
		return fmt.Errorf("failed to record post: %w", err)
	}
	return nil
}

// Records returns the history, newest first.
func (ph *PostgresHistory) Records() []Record {
	return newestFirst(ph.entries.snapshot())
}

// Len returns the number of records.
func (ph *PostgresHistory) Len() int {
	return ph.entries.len()
}

// Close closes the database connection.
func (ph *PostgresHistory) Close() error {
	if ph.db != nil {
		return ph.db.Close()
	}
	return nil
}
