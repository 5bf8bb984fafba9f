package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/storycore/internal/check"
	"github.com/xtding233/storycore/internal/eventrun"
	"github.com/xtding233/storycore/internal/game"
	"github.com/xtding233/storycore/internal/metrics"
	"github.com/xtding233/storycore/internal/platform/logging"
	"github.com/xtding233/storycore/internal/state"
	"github.com/xtding233/storycore/internal/storage/sqlite"
)

const duelPreset = `
check:
  actor_id: spain
  base_required: 1
  success_threshold: 1
  influences:
    - {key: courage, kind: support, die_sides: 6, count_factor: 1.0}
rules:
  - {key: courage, base_scale: 2}
`

const configJSON = `{
	"actor_id": "spain",
	"influences": [
		{"key": "courage", "kind": "support", "die_sides": 6, "count_factor": 1.0},
		{"key": "fear", "kind": "resist", "die_sides": 6, "count_factor": 0.5}
	],
	"base_required": 2,
	"resist_to_extra_required": 0.5,
	"success_threshold": 5
}`

type fixture struct {
	handler http.Handler
	runner  *eventrun.Runner
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := sqlite.Open(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	loader := game.NewLoader(dir)
	path := loader.Paths().EventPath("hetalia", "duel")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(duelPreset), 0o644))

	m := metrics.New()
	runner := eventrun.New(store, logging.Discard(), m)
	srv := New(Options{
		Runner:  runner,
		Presets: loader,
		Metrics: m,
		Logger:  logging.Discard(),
	})
	return fixture{handler: srv.Handler(), runner: runner}
}

func (f fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPreviewImpacts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/impacts/preview", `{
		"snapshot": {"characters": {"spain": {"courage": 10}}, "relationships": []},
		"impacts": [
			{"type": "character_attribute", "character_id": "spain", "field": "courage", "op": "add", "value": 5},
			{"type": "character_attribute", "character_id": "spain", "field": "courage", "op": "scale", "value": 50}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[state.CharacterStateSnapshot](t, rec)
	assert.Equal(t, 8, got.Characters["spain"].Courage)
}

func TestPreviewImpactsWithoutSnapshot(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/impacts/preview", `{
		"impacts": [{"type": "flag", "character_id": "romano", "path": ["met"], "value": true}]
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[state.CharacterStateSnapshot](t, rec)
	assert.Equal(t, true, got.Characters["romano"].TraitsFlags["met"])
}

func TestPreviewImpactsBadInput(t *testing.T) {
	f := newFixture(t)

	tcs := map[string]string{
		"unknown type": `{"impacts": [{"type": "teleport"}]}`,
		"bad field":    `{"impacts": [{"type": "character_attribute", "character_id": "a", "field": "luck", "op": "add", "value": 1}]}`,
		"bad flags":    `{"snapshot": {"characters": {"a": {"traits_flags": 3}}}, "impacts": []}`,
		"not json":     `{"impacts": [`,
		"empty":        ``,
	}
	for name, body := range tcs {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/impacts/preview", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[errorResp](t, rec).Error)
		})
	}
}

func TestCommitImpactsPersists(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/impacts/commit", `{
		"impacts": [{"type": "relationship", "from_id": "spain", "to_id": "romano", "field": "trust", "op": "set", "value": 250}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[state.CharacterStateSnapshot](t, rec)
	require.Len(t, got.Relationships, 1)
	assert.Equal(t, 100, got.Relationships[0].Metrics.Trust)

	rec = f.do(t, http.MethodPost, "/v1/impacts/commit", `{
		"impacts": [{"type": "relationship", "from_id": "spain", "to_id": "romano", "field": "trust", "op": "add", "value": -30}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[state.CharacterStateSnapshot](t, rec)
	assert.Equal(t, 70, got.Relationships[0].Metrics.Trust)
}

func TestResolveCheckSeeded(t *testing.T) {
	f := newFixture(t)
	body := `{"config": ` + configJSON + `, "attrs": {"courage": 7, "fear": 3}, "seed": 42}`

	first := f.do(t, http.MethodPost, "/v1/checks/resolve", body)
	second := f.do(t, http.MethodPost, "/v1/checks/resolve", body)

	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	got := decode[check.EventResolutionResult](t, first)
	assert.Equal(t, uint32(3), got.Check.RequiredSuccesses)
	require.Len(t, got.Check.Rolls, 2)
	assert.Len(t, got.Check.Rolls[0].Rolled, 7)
	assert.NotEmpty(t, got.OutcomeTier)
}

func TestResolveCheckInvalidConfig(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/checks/resolve", `{"config": {"influences": [{"key": "x", "kind": "support", "die_sides": 0}]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	msg := decode[errorResp](t, rec).Error
	assert.Contains(t, msg, "actor_id is required")
	assert.Contains(t, msg, "influences[0].die_sides must be >= 1")

	rec = f.do(t, http.MethodPost, "/v1/checks/resolve", `{"config": {"actor_id": "a", "influences": [{"key": "x", "kind": "hinder", "die_sides": 6}]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOdds(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/checks/odds", `{"config": `+configJSON+`, "attrs": {"courage": 7, "fear": 3}, "trials": 200, "seed": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[check.Odds](t, rec)
	assert.Equal(t, 200, got.Trials)
	assert.True(t, got.SuccessRate >= 0 && got.SuccessRate <= 1)

	rec = f.do(t, http.MethodPost, "/v1/checks/odds", `{"config": `+configJSON+`, "trials": 1000000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunEventFromPreset(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.runner.SaveActorAttrs(t.Context(), "spain", state.ActorAttrs{"courage": 10}))

	rec := f.do(t, http.MethodPost, "/v1/events/run", `{"story": "hetalia", "event": "duel", "seed": 9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[eventrun.EventRunResult](t, rec)
	assert.NotEmpty(t, got.RunID)
	// threshold 1: all 10 dice succeed against 1 required
	assert.Equal(t, uint32(10), got.Resolution.Check.Successes)
	assert.Equal(t, 13, got.UpdatedAttrs["courage"])

	rec = f.do(t, http.MethodGet, "/v1/events/runs?actor_id=spain&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[runsResp](t, rec)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, got.RunID, runs.Runs[0].RunID)
	assert.Equal(t, "hetalia", runs.Runs[0].Story)
}

func TestRunEventErrors(t *testing.T) {
	f := newFixture(t)

	tcs := []struct {
		name string
		body string
		code int
	}{
		{name: "missing preset", body: `{"story": "hetalia", "event": "nope"}`, code: http.StatusNotFound},
		{name: "bad name", body: `{"story": "../x"}`, code: http.StatusBadRequest},
		{name: "nothing", body: `{}`, code: http.StatusBadRequest},
		{name: "bad config", body: `{"config": {"influences": []}}`, code: http.StatusBadRequest},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/events/run", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestListRunsBadLimit(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/events/runs?limit=many", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[healthResp](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storycore_http_request_duration_seconds")
}

func TestStorelessServer(t *testing.T) {
	h := New(Options{Logger: logging.Discard()}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/impacts/commit", strings.NewReader(`{"impacts": []}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyTooLarge(t *testing.T) {
	h := New(Options{Logger: logging.Discard(), MaxBodyBytes: 16}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/impacts/preview",
		strings.NewReader(`{"impacts": [], "snapshot": {"characters": {}}}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
