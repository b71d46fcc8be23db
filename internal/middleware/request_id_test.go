package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"generated when absent", "", false},
		{"reused when valid", "req-123", true},
		{"replaced when too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"replaced when it has spaces", "bad id", false},
		{"replaced when it has control chars", "bad\x01id", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			headerID := rec.Header().Get(RequestIDHeader)
			if headerID != ctxID {
				t.Errorf("header id %q != context id %q", headerID, ctxID)
			}
			if tt.reuse {
				if ctxID != tt.incoming {
					t.Errorf("id = %q, want %q", ctxID, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(ctxID); err != nil {
				t.Errorf("id %q is not a UUID: %v", ctxID, err)
			}
		})
	}
}

func TestRequestID_TraceID(t *testing.T) {
	var traceID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = GetTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "trace-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if traceID != "trace-abc" {
		t.Errorf("trace id = %q, want %q", traceID, "trace-abc")
	}
	if got := rec.Header().Get(TraceIDHeader); got != "trace-abc" {
		t.Errorf("trace header = %q, want %q", got, "trace-abc")
	}
}
