package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil, zerolog.Nop())

	rec, env := serve(t, h.Liveness, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp 10.0.0.7:6379: connection refused") })

	rec, env := serve(t, NewHealthHandler(map[string]Pinger{"store": ok, "redis": ok}, zerolog.Nop()).Readiness,
		httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var logs bytes.Buffer
	rec, env = serve(t, NewHealthHandler(map[string]Pinger{"store": ok, "redis": down}, zerolog.New(&logs)).Readiness,
		httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || env.Success {
		t.Fatalf("expected 503 failure, got %d", rec.Code)
	}
	var data readinessResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("invalid data: %v", err)
	}
	if data.Status != "degraded" || data.Dependencies["redis"].Status != "unhealthy" || data.Dependencies["store"].Status != "ok" {
		t.Fatalf("unexpected readiness: %+v", data)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.7") || strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("dependency error leaked into response: %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "connection refused") || !strings.Contains(logs.String(), `"dependency":"redis"`) {
		t.Fatalf("dependency error not logged: %s", logs.String())
	}
}
