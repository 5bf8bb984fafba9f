// Package sqlite provides a SQLite-backed storycore storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/xtding233/storycore/internal/state"
	"github.com/xtding233/storycore/internal/storage"
	"github.com/xtding233/storycore/internal/storage/sqlite/migrations"
)

const (
	// DefaultListLimit applies when ListEventRuns is called with limit <= 0.
	DefaultListLimit = 50
	// MaxListLimit caps one ListEventRuns page.
	MaxListLimit = 500
)

// Store persists character snapshots and event runs in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database handle is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

// LatestSnapshot returns the newest stored snapshot, or an empty one when
// nothing has been saved. A malformed row yields a *state.ParseError.
func (s *Store) LatestSnapshot(ctx context.Context) (state.CharacterStateSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return state.CharacterStateSnapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return state.CharacterStateSnapshot{}, fmt.Errorf("storage is not configured")
	}

	var (
		seq  int64
		body string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT seq, snapshot_json FROM character_snapshots ORDER BY seq DESC LIMIT 1`,
	).Scan(&seq, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return state.CharacterStateSnapshot{
			Characters:    map[string]state.CharacterAttributes{},
			Relationships: []state.RelationshipState{},
		}, nil
	}
	if err != nil {
		return state.CharacterStateSnapshot{}, fmt.Errorf("get latest snapshot: %w", err)
	}

	snapshot, err := state.DecodeSnapshot([]byte(body))
	if err != nil {
		return state.CharacterStateSnapshot{}, fmt.Errorf("decode snapshot %d: %w", seq, err)
	}
	return snapshot, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveSnapshot appends snapshot as the new current state.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot state.CharacterStateSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return insertSnapshot(ctx, s.sqlDB, snapshot)
}

// RecordEventRun inserts one event run. A repeated run ID returns
// storage.ErrAlreadyExists.
func (s *Store) RecordEventRun(ctx context.Context, run storage.EventRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return insertEventRun(ctx, s.sqlDB, run)
}

// SaveRun appends snapshot and records run in one transaction. Either both
// are stored or neither is.
func (s *Store) SaveRun(ctx context.Context, snapshot state.CharacterStateSnapshot, run storage.EventRun) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertSnapshot(ctx, tx, snapshot); err != nil {
		return err
	}
	if err = insertEventRun(ctx, tx, run); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, db execer, snapshot state.CharacterStateSnapshot) error {
	body, err := state.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO character_snapshots (snapshot_json, created_at) VALUES (?, ?)`,
		string(body), toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func insertEventRun(ctx context.Context, db execer, run storage.EventRun) error {
	runID := strings.TrimSpace(run.RunID)
	actorID := strings.TrimSpace(run.ActorID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if actorID == "" {
		return fmt.Errorf("actor id is required")
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	resolution, err := json.Marshal(run.Resolution)
	if err != nil {
		return fmt.Errorf("encode resolution: %w", err)
	}
	attrs := run.UpdatedAttrs
	if attrs == nil {
		attrs = state.ActorAttrs{}
	}
	updated, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode updated attrs: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO event_runs (
		   run_id,
		   actor_id,
		   story,
		   event,
		   success,
		   successes,
		   required_successes,
		   outcome_tier,
		   resolution_json,
		   updated_attrs_json,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		actorID,
		run.Story,
		run.Event,
		run.Resolution.Check.Success,
		int64(run.Resolution.Check.Successes),
		int64(run.Resolution.Check.RequiredSuccesses),
		string(run.Resolution.OutcomeTier),
		string(resolution),
		string(updated),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("record event run: %w", err)
	}
	return nil
}

// ListEventRuns returns the newest runs first. An empty actorID lists runs
// for every actor.
func (s *Store) ListEventRuns(ctx context.Context, actorID string, limit int) ([]storage.EventRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	query := `SELECT run_id, actor_id, story, event, resolution_json, updated_attrs_json, created_at
		 FROM event_runs`
	args := []any{}
	if actorID = strings.TrimSpace(actorID); actorID != "" {
		query += ` WHERE actor_id = ?`
		args = append(args, actorID)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list event runs: %w", err)
	}
	defer rows.Close()

	runs := []storage.EventRun{}
	for rows.Next() {
		var (
			run                 storage.EventRun
			resolution, updated string
			createdAt           int64
		)
		if err := rows.Scan(&run.RunID, &run.ActorID, &run.Story, &run.Event, &resolution, &updated, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event run: %w", err)
		}
		if err := json.Unmarshal([]byte(resolution), &run.Resolution); err != nil {
			return nil, fmt.Errorf("event run %s: %w", run.RunID, &state.ParseError{Kind: "event_run", Err: err})
		}
		if err := json.Unmarshal([]byte(updated), &run.UpdatedAttrs); err != nil {
			return nil, fmt.Errorf("event run %s: %w", run.RunID, &state.ParseError{Kind: "event_run", Err: err})
		}
		run.CreatedAt = fromMillis(createdAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event runs: %w", err)
	}
	return runs, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
