package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"localcron/internal/domain"
)

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
PRAGMA journal_mode=WAL;
CREATE TABLE IF NOT EXISTS cron_events (
  run_at INTEGER NOT NULL,
  hook TEXT NOT NULL,
  signature TEXT NOT NULL,
  schedule TEXT NOT NULL DEFAULT '',
  interval_seconds INTEGER NOT NULL DEFAULT 0,
  args BLOB NOT NULL,
  PRIMARY KEY (run_at, hook, signature)
);
CREATE INDEX IF NOT EXISTS idx_cron_events_hook ON cron_events(hook);
`
	_, err := db.Exec(schema)
	return err
}

type sqliteStore struct{ db *sql.DB }

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return NewSQLite(db), nil
}

// NewSQLite wraps an already migrated database.
func NewSQLite(db *sql.DB) Store { return &sqliteStore{db: db} }

func (r *sqliteStore) Close() error { return r.db.Close() }

func (r *sqliteStore) ReadAll(ctx context.Context) (domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT run_at,hook,signature,schedule,interval_seconds,args
FROM cron_events ORDER BY run_at, hook, signature`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := domain.Schedule{}
	for rows.Next() {
		var (
			ts        int64
			hook, sig string
			ev        domain.Event
			args      []byte
		)
		if err := rows.Scan(&ts, &hook, &sig, &ev.Schedule, &ev.Interval, &args); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(args, &ev.Args); err != nil {
			return nil, fmt.Errorf("decoding args of %s at %d: %w", hook, ts, err)
		}
		s.Put(ts, hook, sig, ev)
	}
	return s, rows.Err()
}

// WriteAll replaces every row in a single transaction.
func (r *sqliteStore) WriteAll(ctx context.Context, s domain.Schedule) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = replaceRows(ctx, tx, s); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceRows(ctx context.Context, tx *sql.Tx, s domain.Schedule) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cron_events`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO cron_events (run_at,hook,signature,schedule,interval_seconds,args)
VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ts := range s.Timestamps() {
		b := s[ts]
		for _, hook := range b.Hooks() {
			inv := b[hook]
			for _, sig := range inv.Signatures() {
				ev := inv[sig]
				args, err := json.Marshal(ev.Args)
				if err != nil {
					return fmt.Errorf("encoding args of %s at %d: %w", hook, ts, err)
				}
				if _, err := stmt.ExecContext(ctx, ts, hook, sig, ev.Schedule, ev.Interval, args); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
