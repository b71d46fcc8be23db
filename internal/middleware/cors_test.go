package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const appOrigin = "https://app.tally.test"

func corsHandler(origins ...string) http.Handler {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func preflight(path, origin, method string) *http.Request {
	req := httptest.NewRequest(http.MethodOptions, path, nil)
	req.Header.Set("Origin", origin)
	if method != "" {
		req.Header.Set("Access-Control-Request-Method", method)
	}
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	return req
}

func TestCORS_PreflightLedgerRoutes(t *testing.T) {
	h := corsHandler(appOrigin)

	tests := []struct {
		name       string
		path       string
		origin     string
		method     string
		wantStatus int
		wantOrigin string
	}{
		{"delete expense", "/expenses/01HZX3", appOrigin, http.MethodDelete, http.StatusNoContent, appOrigin},
		{"create expense", "/expenses", appOrigin, http.MethodPost, http.StatusNoContent, appOrigin},
		{"login", "/auth/login", appOrigin, http.MethodPost, http.StatusNoContent, appOrigin},
		{"origin case differs", "/expenses", "HTTPS://APP.TALLY.TEST", http.MethodGet, http.StatusNoContent, "HTTPS://APP.TALLY.TEST"},
		{"put is not served", "/expenses/01HZX3", appOrigin, http.MethodPut, http.StatusForbidden, appOrigin},
		{"patch is not served", "/expenses/01HZX3", appOrigin, http.MethodPatch, http.StatusForbidden, appOrigin},
		{"unknown origin", "/expenses", "https://evil.test", http.MethodGet, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, preflight(tt.path, tt.origin, tt.method))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORS_DefaultsAdvertiseLedgerVerbsOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	corsHandler(appOrigin).ServeHTTP(rec, preflight("/expenses", appOrigin, http.MethodGet))

	methods := rec.Header().Get("Access-Control-Allow-Methods")
	for _, m := range []string{"GET", "POST", "DELETE", "OPTIONS"} {
		if !strings.Contains(methods, m) {
			t.Errorf("Allow-Methods %q missing %s", methods, m)
		}
	}
	for _, m := range []string{"PUT", "PATCH"} {
		if strings.Contains(methods, m) {
			t.Errorf("Allow-Methods %q should not include %s", methods, m)
		}
	}

	headers := rec.Header().Get("Access-Control-Allow-Headers")
	if !strings.Contains(headers, "Authorization") {
		t.Errorf("Allow-Headers %q missing Authorization", headers)
	}
	if strings.Contains(headers, "X-API-Key") {
		t.Errorf("Allow-Headers %q should not include X-API-Key", headers)
	}

	exposed := rec.Header().Get("Access-Control-Expose-Headers")
	for _, want := range []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"} {
		if !strings.Contains(exposed, want) {
			t.Errorf("Expose-Headers %q missing %s", exposed, want)
		}
	}

	if got := rec.Header().Get("Access-Control-Max-Age"); got != "86400" {
		t.Errorf("Max-Age = %q, want 86400", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("Allow-Credentials = %q, want unset", got)
	}
}

func TestCORS_SimpleRequests(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantOrigin string
	}{
		{"no origins configured", nil, appOrigin, ""},
		{"allowed origin", []string{appOrigin}, appOrigin, appOrigin},
		{"unknown origin passes without headers", []string{appOrigin}, "https://evil.test", ""},
		{"same origin request", []string{appOrigin}, "", ""},
		{"wildcard subdomain", []string{"*.tally.test"}, "https://web.tally.test", "https://web.tally.test"},
		{"wildcard does not match apex", []string{"*.tally.test"}, "https://tally.test", ""},
		{"wildcard does not match lookalike", []string{"*.tally.test"}, "https://nottally.test", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			corsHandler(tt.origins...).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin != "" && rec.Header().Get("Vary") != "Origin" {
				t.Errorf("Vary = %q, want Origin", rec.Header().Get("Vary"))
			}
		})
	}
}
