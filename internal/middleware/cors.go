package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
// Origins are matched case-insensitively; "*.example.com" matches any
// subdomain of example.com but not example.com itself.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds; 0 omits the header.
	MaxAge int
}

// DefaultCORSConfig returns the ledger API's CORS policy with no origins
// allowed. Only the verbs the API routes use are advertised.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID", "Accept", "Accept-Language"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         86400,
	}
}

type corsPolicy struct {
	exact     map[string]bool
	suffixes  []string
	methods   map[string]bool
	methodStr string
	headerStr string
	exposeStr string
	maxAge    string
	creds     bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		exact:     make(map[string]bool, len(cfg.AllowedOrigins)),
		methods:   make(map[string]bool, len(cfg.AllowedMethods)),
		methodStr: strings.Join(cfg.AllowedMethods, ", "),
		headerStr: strings.Join(cfg.AllowedHeaders, ", "),
		exposeStr: strings.Join(cfg.ExposedHeaders, ", "),
		creds:     cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		o = strings.ToLower(strings.TrimSpace(o))
		if strings.HasPrefix(o, "*.") {
			p.suffixes = append(p.suffixes, o[1:])
			continue
		}
		p.exact[o] = true
	}
	for _, m := range cfg.AllowedMethods {
		p.methods[strings.ToUpper(m)] = true
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

func (p *corsPolicy) allowsOrigin(origin string) bool {
	origin = strings.ToLower(origin)
	if p.exact[origin] {
		return true
	}
	for _, suffix := range p.suffixes {
		host, ok := strings.CutSuffix(origin, suffix)
		if !ok {
			continue
		}
		// host is "scheme://sub" or "scheme://a.b"; reject "scheme://" alone
		// and partial labels like "https://notexample.com".
		if i := strings.Index(host, "://"); i >= 0 && len(host) > i+3 {
			return true
		}
	}
	return false
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Preflights from unknown origins, or asking for a method the API does not
// serve, are answered 403. Simple requests from unknown origins pass through
// without CORS headers and the browser blocks the response.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	p := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			preflight := r.Method == http.MethodOptions
			if !p.allowsOrigin(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if p.creds {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if p.exposeStr != "" {
				h.Set("Access-Control-Expose-Headers", p.exposeStr)
			}

			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			if m := r.Header.Get("Access-Control-Request-Method"); m != "" && !p.methods[strings.ToUpper(m)] {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			h.Set("Access-Control-Allow-Methods", p.methodStr)
			h.Set("Access-Control-Allow-Headers", p.headerStr)
			if p.maxAge != "" {
				h.Set("Access-Control-Max-Age", p.maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
