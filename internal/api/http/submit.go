package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-readiness/internal/assessment"
)

// SubmitHandler scores the session and runs its side effects. Persistence and
// narrative failures are part of the 200 response body.
func SubmitHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.Submit(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /api/assessments
// {"config_id": "...", "context": {...}, "answers": {"question_id": "option_value"}}
func EvaluateHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ConfigID string            `json:"config_id"`
			Context  map[string]string `json:"context"`
			Answers  map[string]string `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		out, err := svc.Evaluate(r.Context(), req.ConfigID, req.Context, req.Answers)
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
