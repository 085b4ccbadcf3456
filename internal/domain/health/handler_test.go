package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckReportsDegradedWithoutDependencies(t *testing.T) {
	h := NewHandler(nil, nil)
	rec := httptest.NewRecorder()

	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if report.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", report.Status)
	}
	if report.Database.Healthy || report.Cache.Healthy {
		t.Fatal("unconfigured dependencies must not report healthy")
	}
	if report.Database.Error != "not configured" {
		t.Fatalf("unexpected database error %q", report.Database.Error)
	}
}

func TestCheckDoesNotCacheFailures(t *testing.T) {
	h := NewHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	first := h.lastReport

	rec = httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if h.lastReport == first {
		t.Fatal("a degraded report must be re-probed, not served from cache")
	}
}
