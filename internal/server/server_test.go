package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Fi44er/deposit_bot/utils"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		probe  error
		code   int
		status string
	}{
		{"healthy", nil, http.StatusOK, "ok"},
		{"storage down", errors.New("ledger unreadable"), http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(ProberFunc(func(context.Context) error { return tt.probe }), utils.NopLogger())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["status"] != tt.status {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(ProberFunc(func(context.Context) error { return nil }), utils.NopLogger())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected metrics to be served, got %d", rec.Code)
	}
}
