// Package storage defines persistence contracts for character state and
// event-run history.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xtding233/storycore/internal/check"
	"github.com/xtding233/storycore/internal/state"
)

var (
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// EventRun is one recorded check resolution and the attributes it produced.
type EventRun struct {
	RunID        string                      `json:"run_id"`
	ActorID      string                      `json:"actor_id"`
	Story        string                      `json:"story,omitempty"`
	Event        string                      `json:"event,omitempty"`
	Resolution   check.EventResolutionResult `json:"resolution"`
	UpdatedAttrs state.ActorAttrs            `json:"updated_attrs"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// SnapshotStore keeps an append-only history of character state; the newest
// snapshot is the current one.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context) (state.CharacterStateSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot state.CharacterStateSnapshot) error
}

// EventRunStore persists event-run history.
type EventRunStore interface {
	RecordEventRun(ctx context.Context, run EventRun) error
	ListEventRuns(ctx context.Context, actorID string, limit int) ([]EventRun, error)
}

// Store is the full persistence surface used by the event runner.
type Store interface {
	SnapshotStore
	EventRunStore

	// SaveRun appends snapshot and records run atomically.
	SaveRun(ctx context.Context, snapshot state.CharacterStateSnapshot, run EventRun) error
}
