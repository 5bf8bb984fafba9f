// Package httpapi serves the impact engine and check resolver over JSON/HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xtding233/storycore/internal/eventrun"
	"github.com/xtding233/storycore/internal/game"
	"github.com/xtding233/storycore/internal/metrics"
)

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is 0.
const DefaultMaxBodyBytes = 1 << 20

// Options wires the server's collaborators. Runner and Presets may be nil;
// endpoints that need them then answer 503 or 400.
type Options struct {
	Runner       *eventrun.Runner
	Presets      game.Resolver
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// Server holds the HTTP handlers.
type Server struct {
	runner  *eventrun.Runner
	presets game.Resolver
	metrics *metrics.Metrics
	logger  *slog.Logger
	maxBody int64
}

// New builds a Server from opts.
func New(opts Options) *Server {
	s := &Server{
		runner:  opts.Runner,
		presets: opts.Presets,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "POST /v1/impacts/preview", s.handlePreviewImpacts)
	s.handle(mux, "POST /v1/impacts/commit", s.handleCommitImpacts)
	s.handle(mux, "POST /v1/checks/resolve", s.handleResolveCheck)
	s.handle(mux, "POST /v1/checks/odds", s.handleOdds)
	s.handle(mux, "POST /v1/events/run", s.handleRunEvent)
	s.handle(mux, "GET /v1/events/runs", s.handleListRuns)
	s.handle(mux, "GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// handle wraps h with request logging and latency metrics.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(rec, r.Body, s.maxBody)
		}

		h(rec, r)

		elapsed := time.Since(start)
		s.metrics.ObserveRequest(pattern, strconv.Itoa(rec.status), elapsed)
		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.LogAttrs(r.Context(), level, "http request",
			slog.String("route", pattern),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
