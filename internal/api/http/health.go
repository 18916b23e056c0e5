package http

import (
	"context"
	"log"
	"net/http"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyzHandler checks the row store. A nil pinger means persistence is off,
// which is still ready.
func ReadyzHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "persistence": "disabled"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.Printf("WARN: [API] readiness check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "persistence": "connected"})
	}
}
