package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(&config.Config{App: config.AppConfig{Env: "dev"}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Storefront-Env") != "dev" {
		t.Fatalf("unexpected response %d %v", rec.Code, rec.Header())
	}
}

func TestHealthReadyCombinesFailures(t *testing.T) {
	cfg := &config.Config{}
	handler := HealthReady(cfg, nil,
		ReadinessCheck{Name: "db", Pinger: stubPinger{err: errors.New("db down")}},
		ReadinessCheck{Name: "redis", Pinger: stubPinger{err: errors.New("redis down")}},
		ReadinessCheck{Name: "skipped"},
	)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	details, ok := body.Error.Details.(map[string]any)
	if !ok || details["db"] != "db down" || details["redis"] != "redis down" {
		t.Fatalf("unexpected details %v", body.Error.Details)
	}
}

func TestHealthReadyOK(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReady(&config.Config{}, nil, ReadinessCheck{Name: "db", Pinger: stubPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
