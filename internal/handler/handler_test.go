package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tallybook/tally/internal/handler/dto"
	"github.com/tallybook/tally/internal/metrics"
)

func TestHandler_Hello(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Hello(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["version"] != Version {
		t.Errorf("unexpected version: %s", response["version"])
	}
}

func TestHandler_ErrorEnvelopes(t *testing.T) {
	h := New()

	tests := []struct {
		name     string
		handle   http.HandlerFunc
		method   string
		wantCode int
		wantMsg  string
	}{
		{"not_found", h.NotFound, http.MethodGet, http.StatusNotFound, "Resource not found"},
		{"method_not_allowed", h.MethodNotAllowed, http.MethodPut, http.StatusMethodNotAllowed, "Method not allowed"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(test.method, "/nonexistent", nil)
			rec := httptest.NewRecorder()

			test.handle(rec, req)

			if rec.Code != test.wantCode {
				t.Errorf("expected status %d, got %d", test.wantCode, rec.Code)
			}

			var response dto.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Success {
				t.Error("expected success=false")
			}
			if response.Message != test.wantMsg {
				t.Errorf("unexpected message: %s", response.Message)
			}
		})
	}
}

func TestMetricsHandler_Exposition(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncTransactionCreated()
	recorder.IncLogin(metrics.LoginFailed)

	h := NewMetricsHandler(recorder)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	h.Metrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, line := range []string{
		"tally_transactions_created_total 1",
		`tally_logins_total{status="failed"} 1`,
		"tally_ledger_cache_hits_total 0",
	} {
		if !strings.Contains(body, line) {
			t.Errorf("expected %q in metrics output:\n%s", line, body)
		}
	}
}

func TestMetricsHandler_NoSnapshotter(t *testing.T) {
	h := NewMetricsHandler(nil)
	rec := httptest.NewRecorder()

	h.Metrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}
