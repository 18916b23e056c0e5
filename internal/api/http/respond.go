package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-readiness/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sessionStatus maps session errors to HTTP status codes. Anything it does
// not recognise is treated as a bad request.
func sessionStatus(err error) int {
	var te *session.TransitionError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrFinalized),
		errors.Is(err, session.ErrContextIncomplete),
		errors.Is(err, session.ErrNotQuestioning),
		errors.As(err, &te):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
