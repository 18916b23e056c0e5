package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
)

type configSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CardTitle     string `json:"card_title,omitempty"`
	CardSubtitle  string `json:"card_subtitle,omitempty"`
	QuestionCount int    `json:"question_count"`
	Default       bool   `json:"default,omitempty"`
}

func ListConfigsHandler(reg *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := reg.List()
		out := make([]configSummary, 0, len(list))
		for _, c := range list {
			out = append(out, configSummary{
				ID:            c.ID,
				Name:          c.Name,
				CardTitle:     c.CardTitle,
				CardSubtitle:  c.CardSubtitle,
				QuestionCount: len(c.Questions),
				Default:       c.ID == reg.DefaultID(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GetConfigHandler serves the full configuration. Unknown ids resolve to the
// default configuration, as the registry does.
func GetConfigHandler(reg *catalog.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg.Get(chi.URLParam(r, "configID")))
	}
}
