package http

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/report"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

// ReportHandler serves the finished session as an HTML download. With an
// archive configured the first download is rendered and stored (its URL goes
// in the X-Report-URL header) and later downloads serve the archived copy.
// Archive failures fall back to rendering and never block the download.
func ReportHandler(reg *catalog.Registry, store session.Store, archive *report.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			http.Error(w, err.Error(), sessionStatus(err))
			return
		}
		if s.Result == nil || !s.State.Terminal() {
			http.Error(w, "session has no completed result", http.StatusConflict)
			return
		}
		name := report.FileName(s.Result)
		if archive != nil {
			doc, ok, err := archive.Latest(r.Context(), s.ID)
			if err != nil {
				log.Printf("WARN: [API] read archived report for %s: %v", s.ID, err)
			}
			if ok {
				w.Header().Set("X-Report-Source", "archive")
				writeReport(w, name, doc)
				return
			}
		}

		doc, err := report.Render(reg.Get(s.ConfigID), s.Result, s.Narrative, s.NarrativeError)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if archive != nil {
			if _, url, err := archive.Save(r.Context(), s.ID, s.ConfigID, name, doc); err != nil {
				log.Printf("WARN: [API] archive report for %s: %v", s.ID, err)
			} else if url != "" {
				w.Header().Set("X-Report-URL", url)
			}
		}
		writeReport(w, name, doc)
	}
}

func writeReport(w http.ResponseWriter, name string, doc []byte) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(doc)
}
