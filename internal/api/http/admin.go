package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/persist"
	syncx "github.com/mind-engage/mindengage-readiness/internal/sync"
)

type ResultLister interface {
	List(ctx context.Context, configID string, opts persist.ListOpts) ([]persist.Record, error)
}

type EventReader interface {
	Since(ctx context.Context, seq int64, limit int) ([]syncx.Event, error)
}

// GET /admin/results?config_id=&limit=&offset=
func ListResultsHandler(reg *catalog.Registry, results ResultLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configID := strings.TrimSpace(r.URL.Query().Get("config_id"))
		if configID == "" {
			configID = reg.DefaultID()
		}
		if _, ok := reg.PersistenceMapping(configID); !ok {
			http.Error(w, "no persistence mapping for "+configID, http.StatusNotFound)
			return
		}
		list, err := results.List(r.Context(), configID, persist.ListOpts{
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, persist.AsFailure(err))
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /admin/events?since=&limit=
func ListEventsHandler(events EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since int64
		if s := r.URL.Query().Get("since"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				http.Error(w, "since must be a non-negative integer", http.StatusBadRequest)
				return
			}
			since = v
		}
		list, err := events.Since(r.Context(), since, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
