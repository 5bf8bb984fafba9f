package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xtding233/storycore/internal/check"
	"github.com/xtding233/storycore/internal/eventrun"
	"github.com/xtding233/storycore/internal/game"
	"github.com/xtding233/storycore/internal/impact"
	"github.com/xtding233/storycore/internal/state"
	"github.com/xtding233/storycore/internal/storage"
)

// DefaultOddsTrials is used when an odds request omits trials.
const DefaultOddsTrials = 10_000

type previewReq struct {
	Snapshot json.RawMessage `json:"snapshot"`
	Impacts  impact.List     `json:"impacts"`
}

type commitReq struct {
	Impacts impact.List `json:"impacts"`
}

type resolveReq struct {
	Config check.EventCheckConfig  `json:"config"`
	Attrs  state.ActorAttrs        `json:"attrs"`
	Rules  check.AttrUpdateRuleMap `json:"rules"`
	Seed   *uint64                 `json:"seed,omitempty"`
}

type oddsReq struct {
	Config check.EventCheckConfig `json:"config"`
	Attrs  state.ActorAttrs       `json:"attrs"`
	Trials int                    `json:"trials"`
	Seed   *uint64                `json:"seed,omitempty"`
}

type runReq struct {
	Config  *check.EventCheckConfig `json:"config,omitempty"`
	Story   string                  `json:"story,omitempty"`
	Event   string                  `json:"event,omitempty"`
	ActorID *string                 `json:"actor_id,omitempty"`
	Rules   check.AttrUpdateRuleMap `json:"rules,omitempty"`
	Seed    *uint64                 `json:"seed,omitempty"`
}

type runsResp struct {
	Runs []storage.EventRun `json:"runs"`
}

type healthResp struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// rngFor builds a fresh source for one request; *rand.Rand is not safe to
// share between goroutines.
func rngFor(seed *uint64) check.RandomSource {
	if seed != nil {
		return check.NewSeededRNG(*seed)
	}
	return check.DefaultRNG()
}

func decodeSnapshot(raw json.RawMessage) (state.CharacterStateSnapshot, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return state.CharacterStateSnapshot{}, nil
	}
	return state.DecodeSnapshot(raw)
}

func (s *Server) handlePreviewImpacts(w http.ResponseWriter, r *http.Request) {
	var req previewReq
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	snapshot, err := decodeSnapshot(req.Snapshot)
	if err != nil {
		s.writeError(w, err)
		return
	}

	next := impact.ApplyToSnapshot(snapshot, req.Impacts)
	for typ, n := range impact.Summarize(req.Impacts) {
		s.metrics.ObserveImpacts(string(typ), "preview", n)
	}
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleCommitImpacts(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, eventrun.ErrNoStore)
		return
	}
	var req commitReq
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	next, err := s.runner.CommitImpacts(r.Context(), req.Impacts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// loadAttrs returns attrs, or the stored values for actorID when attrs is
// absent and a store is configured.
func (s *Server) loadAttrs(ctx context.Context, attrs state.ActorAttrs, actorID string) (state.ActorAttrs, error) {
	if attrs != nil || s.runner == nil {
		return attrs, nil
	}
	return s.runner.LoadActorAttrs(ctx, actorID)
}

func (s *Server) handleResolveCheck(w http.ResponseWriter, r *http.Request) {
	var req resolveReq
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := check.ValidateConfig(req.Config); err != nil {
		s.writeError(w, err)
		return
	}
	attrs, err := s.loadAttrs(r.Context(), req.Attrs, req.Config.ActorID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res := check.ResolveEvent(req.Config, attrs, req.Rules, rngFor(req.Seed))
	s.metrics.ObserveCheck(string(res.OutcomeTier), res.Check.DiceRolled())
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOdds(w http.ResponseWriter, r *http.Request) {
	var req oddsReq
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := check.ValidateConfig(req.Config); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Trials <= 0 {
		req.Trials = DefaultOddsTrials
	}
	attrs, err := s.loadAttrs(r.Context(), req.Attrs, req.Config.ActorID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	odds, err := check.EstimateOdds(req.Config, attrs, req.Trials, rngFor(req.Seed))
	if err != nil {
		s.writeError(w, fmt.Errorf("trials %d: %w", req.Trials, err))
		return
	}
	writeJSON(w, http.StatusOK, odds)
}

func (s *Server) handleRunEvent(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, eventrun.ErrNoStore)
		return
	}
	var req runReq
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	run := eventrun.RunRequest{
		Story: req.Story,
		Event: req.Event,
		RNG:   rngFor(req.Seed),
	}
	switch {
	case req.Config != nil:
		run.Config = *req.Config
		if req.ActorID != nil {
			run.Config.ActorID = *req.ActorID
		}
	case req.Story != "":
		if s.presets == nil {
			s.writeError(w, badRequest{errors.New("presets are not configured")})
			return
		}
		_, preset, err := s.presets.Resolve(req.Story, req.Event, game.Overrides{ActorID: req.ActorID})
		if err != nil {
			s.writeError(w, err)
			return
		}
		run.Config = preset.Config
		run.Rules = preset.Rules
	default:
		s.writeError(w, badRequest{errors.New("config or story is required")})
		return
	}
	if len(req.Rules) > 0 {
		run.Rules = req.Rules
	}

	res, err := s.runner.RunEvent(r.Context(), run)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		s.writeError(w, eventrun.ErrNoStore)
		return
	}
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, badRequest{fmt.Errorf("invalid limit %q", v)})
			return
		}
		limit = n
	}
	runs, err := s.runner.History(r.Context(), q.Get("actor_id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runsResp{Runs: runs})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.runner != nil {
		if p, ok := s.runner.Store.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, healthResp{Status: "unavailable", Error: err.Error()})
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, healthResp{Status: "ok"})
}
