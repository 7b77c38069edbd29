package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func testRegistry(status Status) *Registry {
	reg := NewRegistry()
	reg.Register(NewChecker("traces", func(context.Context) Result {
		switch status {
		case StatusDegraded:
			return Degraded("shedding")
		case StatusUnhealthy:
			return Unhealthy("circuit open", nil)
		default:
			return Healthy("ok")
		}
	}))
	return reg
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		status   Status
		wantCode int
		wantBody string
	}{
		{StatusHealthy, http.StatusOK, "OK"},
		{StatusDegraded, http.StatusOK, "DEGRADED"},
		{StatusUnhealthy, http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		ReadinessHandler(testRegistry(tt.status))(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != tt.wantCode {
			t.Errorf("%v: code = %d, want %d", tt.status, rec.Code, tt.wantCode)
		}
		if rec.Body.String() != tt.wantBody {
			t.Errorf("%v: body = %q, want %q", tt.status, rec.Body.String(), tt.wantBody)
		}
	}
}

func TestDetailedHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	DetailedHandler(testRegistry(StatusDegraded))(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q", resp.Status)
	}
	check, ok := resp.Checks["traces"]
	if !ok {
		t.Fatalf("checks = %v", resp.Checks)
	}
	if check.Status != "degraded" || check.Message != "shedding" {
		t.Errorf("check = %+v", check)
	}
}

func TestSingleCheckHandler(t *testing.T) {
	reg := testRegistry(StatusHealthy)

	rec := httptest.NewRecorder()
	SingleCheckHandler(reg, "traces")(rec, httptest.NewRequest(http.MethodGet, "/health/traces", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	SingleCheckHandler(reg, "missing")(rec, httptest.NewRequest(http.MethodGet, "/health/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing checker code = %d", rec.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total"})
	registry.MustRegister(counter)
	counter.Inc()

	rec := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_total 1") {
		t.Errorf("scrape output missing counter:\n%s", rec.Body.String())
	}
}

func TestMetricsHandlerNilRegistry(t *testing.T) {
	rec := httptest.NewRecorder()
	MetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux, testRegistry(StatusHealthy))

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: code = %d", path, rec.Code)
		}
	}
}
