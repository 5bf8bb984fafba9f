// Package eventrun loads an actor from stored state, resolves a check against
// it, applies the resulting drift and records the run.
package eventrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xtding233/storycore/internal/check"
	"github.com/xtding233/storycore/internal/impact"
	"github.com/xtding233/storycore/internal/metrics"
	"github.com/xtding233/storycore/internal/state"
	"github.com/xtding233/storycore/internal/storage"
)

var ErrNoStore = errors.New("event runner has no store")

// EventRunResult is what one run produced.
type EventRunResult struct {
	RunID        string                      `json:"run_id"`
	Resolution   check.EventResolutionResult `json:"resolution"`
	UpdatedAttrs state.ActorAttrs            `json:"updated_attrs"`
}

// RunRequest is one event to resolve. Story and Event are recorded with the
// run when set. RNG overrides the runner's source for this run only.
type RunRequest struct {
	Config check.EventCheckConfig
	Rules  check.AttrUpdateRuleMap
	Story  string
	Event  string
	RNG    check.RandomSource
}

// Runner orchestrates event runs over a Store. Runs and commits are
// serialized so concurrent callers never lose each other's snapshot writes.
type Runner struct {
	Store   storage.Store
	RNG     check.RandomSource // nil: a fresh crypto-seeded source per run
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Now   func() time.Time
	NewID func() string

	mu sync.Mutex
}

// New returns a Runner over store.
func New(store storage.Store, logger *slog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{Store: store, Logger: logger, Metrics: m}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now()
}

func (r *Runner) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

// LoadActorAttrs returns the stored attributes for actorID. An actor with no
// record reads as all zeros.
func (r *Runner) LoadActorAttrs(ctx context.Context, actorID string) (state.ActorAttrs, error) {
	if r.Store == nil {
		return nil, ErrNoStore
	}
	snapshot, err := r.Store.LatestSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snapshot.Character(actorID).ActorAttrs(), nil
}

// SaveActorAttrs writes attrs over the stored record for actorID and saves a
// new snapshot. Flags and attributes absent from attrs are kept.
func (r *Runner) SaveActorAttrs(ctx context.Context, actorID string, attrs state.ActorAttrs) error {
	if r.Store == nil {
		return ErrNoStore
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, err := r.Store.LatestSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return r.saveActor(ctx, snapshot, actorID, attrs)
}

func (r *Runner) saveActor(ctx context.Context, snapshot state.CharacterStateSnapshot, actorID string, attrs state.ActorAttrs) error {
	updated := snapshot.WithCharacter(actorID, snapshot.Character(actorID).WithActorAttrs(attrs))
	if err := r.Store.SaveSnapshot(ctx, updated); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Run resolves config against the stored actor, applies the drift from rules
// and records the run.
func (r *Runner) Run(ctx context.Context, config check.EventCheckConfig, rules check.AttrUpdateRuleMap) (EventRunResult, error) {
	return r.RunEvent(ctx, RunRequest{Config: config, Rules: rules})
}

// RunEvent is Run with story/event labels and a per-run RNG.
func (r *Runner) RunEvent(ctx context.Context, req RunRequest) (result EventRunResult, err error) {
	defer func() {
		if err != nil {
			r.Metrics.ObserveEventRun("error")
		} else {
			r.Metrics.ObserveEventRun("ok")
		}
	}()

	if r.Store == nil {
		return EventRunResult{}, ErrNoStore
	}
	if err := check.ValidateConfig(req.Config); err != nil {
		return EventRunResult{}, err
	}
	rng := req.RNG
	if rng == nil {
		rng = r.RNG
	}
	if rng == nil {
		rng = check.DefaultRNG()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, err := r.Store.LatestSnapshot(ctx)
	if err != nil {
		return EventRunResult{}, fmt.Errorf("load snapshot: %w", err)
	}
	actorID := req.Config.ActorID
	attrs := snapshot.Character(actorID).ActorAttrs()

	resolution := check.ResolveEvent(req.Config, attrs, req.Rules, rng)
	updated := attrs.ApplyDeltas(resolution.Deltas)

	result = EventRunResult{
		RunID:        r.newID(),
		Resolution:   resolution,
		UpdatedAttrs: updated,
	}
	next := snapshot.WithCharacter(actorID, snapshot.Character(actorID).WithActorAttrs(updated))
	if err := r.Store.SaveRun(ctx, next, storage.EventRun{
		RunID:        result.RunID,
		ActorID:      actorID,
		Story:        req.Story,
		Event:        req.Event,
		Resolution:   resolution,
		UpdatedAttrs: updated,
		CreatedAt:    r.now(),
	}); err != nil {
		return EventRunResult{}, fmt.Errorf("save event run: %w", err)
	}

	r.Metrics.ObserveCheck(string(resolution.OutcomeTier), resolution.Check.DiceRolled())
	r.logger().Info("event run",
		slog.String("run_id", result.RunID),
		slog.String("actor_id", actorID),
		slog.Bool("success", resolution.Check.Success),
		slog.Uint64("successes", uint64(resolution.Check.Successes)),
		slog.Uint64("required", uint64(resolution.Check.RequiredSuccesses)),
		slog.String("tier", string(resolution.OutcomeTier)),
	)
	return result, nil
}

// CommitImpacts applies impacts to the latest stored snapshot and saves the
// result as the new current state.
func (r *Runner) CommitImpacts(ctx context.Context, impacts []impact.Impact) (state.CharacterStateSnapshot, error) {
	if r.Store == nil {
		return state.CharacterStateSnapshot{}, ErrNoStore
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, err := r.Store.LatestSnapshot(ctx)
	if err != nil {
		return state.CharacterStateSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	next := impact.ApplyToSnapshot(snapshot, impacts)
	if err := r.Store.SaveSnapshot(ctx, next); err != nil {
		return state.CharacterStateSnapshot{}, fmt.Errorf("save snapshot: %w", err)
	}

	for typ, n := range impact.Summarize(impacts) {
		r.Metrics.ObserveImpacts(string(typ), "commit", n)
	}
	r.logger().Info("impacts committed",
		slog.Int("impacts", len(impacts)),
		slog.Int("characters", len(next.Characters)),
		slog.Int("relationships", len(next.Relationships)),
	)
	return next, nil
}

// History lists recorded runs, newest first.
func (r *Runner) History(ctx context.Context, actorID string, limit int) ([]storage.EventRun, error) {
	if r.Store == nil {
		return nil, ErrNoStore
	}
	return r.Store.ListEventRuns(ctx, actorID, limit)
}
