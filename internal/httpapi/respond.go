package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/xtding233/storycore/internal/check"
	"github.com/xtding233/storycore/internal/eventrun"
	"github.com/xtding233/storycore/internal/game"
	"github.com/xtding233/storycore/internal/state"
)

var errEmptyBody = errors.New("request body is required")

// badRequest marks errors caused by the caller's input.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

type errorResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorResp{Error: err.Error()})
}

func statusFor(err error) int {
	var (
		br       badRequest
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &br),
		state.IsParseError(err),
		errors.Is(err, check.ErrInvalidConfig),
		errors.Is(err, check.ErrTooManyTrials),
		errors.Is(err, game.ErrInvalidName),
		errors.Is(err, game.ErrInvalidPreset):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, eventrun.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads one JSON document into dst. Unknown fields are ignored.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return badRequest{errEmptyBody}
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return badRequest{errEmptyBody}
		case state.IsParseError(err):
			return err
		default:
			return badRequest{fmt.Errorf("decode body: %w", err)}
		}
	}
	return nil
}
