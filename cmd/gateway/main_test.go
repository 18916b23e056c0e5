package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/mind-engage/mindengage-readiness/internal/api/http"
	"github.com/mind-engage/mindengage-readiness/internal/config"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyProbeFollowsPersistence(t *testing.T) {
	cases := []struct {
		name        string
		enabled     bool
		code        int
		persistence string
	}{
		{"enabled checks the store", true, http.StatusServiceUnavailable, ""},
		{"disabled skips the store", false, http.StatusOK, "disabled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			probe := readyProbe(config.Config{PersistEnabled: tc.enabled}, downStore{})
			rec := httptest.NewRecorder()
			api.ReadyzHandler(probe)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tc.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.persistence, body["persistence"])
		})
	}
}
