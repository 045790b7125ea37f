// Package history records op build runs in a local SQLite database so an
// agent can look back at what was built, where, and whether it worked.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the database file name inside the data directory.
const DBFile = "history.db"

const defaultLimit = 10

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Build statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ─── Types ───────────────────────────────────────────────────────────────────

// Record is one build run.
type Record struct {
	ID         string         `json:"id"`
	Workspace  string         `json:"workspace"`
	Registry   string         `json:"registry"`
	Platforms  string         `json:"platforms"`
	Push       bool           `json:"push"`
	Mode       string         `json:"mode"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Result     map[string]any `json:"result,omitempty"`
}

// Duration is how long the build ran.
func (r Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Config holds history store configuration.
type Config struct {
	DataDir string
}

// Store is the build history backed by SQLite.
type Store struct {
	db *sql.DB
}

// New creates the data directory if needed, opens the database in WAL mode
// and runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("history: data dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS builds (
			id          TEXT PRIMARY KEY,
			workspace   TEXT NOT NULL,
			registry    TEXT NOT NULL,
			platforms   TEXT NOT NULL,
			push        INTEGER NOT NULL DEFAULT 0,
			mode        TEXT NOT NULL,
			status      TEXT NOT NULL,
			error       TEXT NOT NULL DEFAULT '',
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			result      TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_builds_workspace ON builds(workspace);
		CREATE INDEX IF NOT EXISTS idx_builds_started   ON builds(started_at DESC);
	`)
	return err
}

// ─── Builds ──────────────────────────────────────────────────────────────────

// Add stores rec and returns its id. An empty ID is filled with a new UUID.
func (s *Store) Add(rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	var result sql.NullString
	if rec.Result != nil {
		data, err := json.Marshal(rec.Result)
		if err != nil {
			return "", fmt.Errorf("history: encoding result: %w", err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO builds (id, workspace, registry, platforms, push, mode, status, error,
		                    started_at, finished_at, duration_ms, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Workspace, rec.Registry, rec.Platforms, rec.Push, rec.Mode, rec.Status, rec.Error,
		rec.StartedAt.UTC().Format(timeLayout), rec.FinishedAt.UTC().Format(timeLayout),
		rec.Duration().Milliseconds(), result,
	)
	if err != nil {
		return "", fmt.Errorf("history: insert build: %w", err)
	}
	return rec.ID, nil
}

// Recent returns up to limit builds, newest first. An empty workspace lists
// builds for every workspace; limit <= 0 means 10.
func (s *Store) Recent(workspace string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	query := `
		SELECT id, workspace, registry, platforms, push, mode, status, error,
		       started_at, finished_at, result
		FROM builds
		WHERE 1=1
	`
	args := []any{}

	if workspace != "" {
		query += " AND workspace = ?"
		args = append(args, workspace)
	}

	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			rec               Record
			started, finished string
			result            sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Workspace, &rec.Registry, &rec.Platforms, &rec.Push,
			&rec.Mode, &rec.Status, &rec.Error, &started, &finished, &result); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("history: build %s started_at: %w", rec.ID, err)
		}
		if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("history: build %s finished_at: %w", rec.ID, err)
		}
		if result.Valid {
			if err := json.Unmarshal([]byte(result.String), &rec.Result); err != nil {
				return nil, fmt.Errorf("history: build %s result: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
