package http

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/metrics"
	"github.com/mind-engage/mindengage-readiness/internal/scoring"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

const maxSnapshotBytes = 1 << 20

// sessionView adds the navigation hints a client needs to the stored session.
type sessionView struct {
	*session.Session
	Next           int      `json:"next_question"`
	MissingContext []string `json:"missing_context,omitempty"`
}

func viewOf(reg *catalog.Registry, s *session.Session) sessionView {
	return sessionView{Session: s, Next: s.Next(), MissingContext: s.MissingContext(reg.Get(s.ConfigID))}
}

// POST /api/sessions {"config_id": "..."}
func CreateSessionHandler(reg *catalog.Registry, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ConfigID string `json:"config_id"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}
		cfg := reg.Get(req.ConfigID)
		s := session.New(cfg)
		if err := store.Put(s); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.ActiveSessions.Set(float64(store.Len()))
		writeJSON(w, http.StatusCreated, viewOf(reg, s))
	}
}

func GetSessionHandler(reg *catalog.Registry, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, viewOf(reg, s))
	}
}

// PUT /api/sessions/{sessionID}/context {"field_id": "value", ...}
// All fields are applied or none are.
func SetContextHandler(reg *catalog.Registry, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]string
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s, err := store.Update(chi.URLParam(r, "sessionID"), func(s *session.Session) error {
			cfg := reg.Get(s.ConfigID)
			for field, value := range fields {
				if err := s.SetContext(cfg, field, value); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, viewOf(reg, s))
	}
}

func StartSessionHandler(reg *catalog.Registry, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.Update(chi.URLParam(r, "sessionID"), func(s *session.Session) error {
			return s.BeginQuestioning(reg.Get(s.ConfigID))
		})
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, viewOf(reg, s))
	}
}

// PUT /api/sessions/{sessionID}/answers/{questionID} {"option_value": "..."}
// An option that does not resolve is stored as unanswered; the response says so.
func AnswerHandler(reg *catalog.Registry, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OptionValue string `json:"option_value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var answer scoring.Answer
		s, err := store.Update(chi.URLParam(r, "sessionID"), func(s *session.Session) error {
			a, err := s.Answer(reg.Get(s.ConfigID), chi.URLParam(r, "questionID"), req.OptionValue)
			answer = a
			return err
		})
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Answer   scoring.Answer `json:"answer"`
			Resolved bool           `json:"resolved"`
			Session  sessionView    `json:"session"`
		}{answer, answer.Answered() || req.OptionValue == "", viewOf(reg, s)})
	}
}

func SnapshotHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		data, err := s.Snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

// POST /api/sessions/restore with a snapshot body starts a new session from it.
func RestoreHandler(reg *catalog.Registry, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		configID, err := session.ConfigIDOf(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cfg, ok := reg.Lookup(configID)
		if !ok {
			log.Printf("WARN: [API] snapshot configuration %q not found, restoring onto %q", configID, reg.DefaultID())
			cfg = reg.Default()
		}
		s, err := session.FromSnapshot(cfg, data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.Put(s); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.ActiveSessions.Set(float64(store.Len()))
		log.Printf("INFO: [API] restored session %s (%s, %s)", s.ID, s.ConfigID, s.State)
		writeJSON(w, http.StatusCreated, viewOf(reg, s))
	}
}

// DELETE /api/sessions/{sessionID} drops a session the client has abandoned.
func DeleteSessionHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(chi.URLParam(r, "sessionID")); err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		metrics.ActiveSessions.Set(float64(store.Len()))
		w.WriteHeader(http.StatusNoContent)
	}
}
