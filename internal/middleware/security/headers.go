package security

import (
	"net/http"
	"strconv"
)

// Policy is the fixed set of response headers sent by the API.
type Policy struct {
	// Static headers sent on every response.
	Static map[string]string

	// HSTSMaxAge is sent as Strict-Transport-Security on TLS requests only.
	// Zero disables it.
	HSTSMaxAge     int
	HSTSSubdomains bool
}

// APIPolicy suits a JSON API that serves no documents of its own.
func APIPolicy() Policy {
	return Policy{
		Static: map[string]string{
			"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "no-referrer",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
		HSTSMaxAge:     365 * 24 * 60 * 60,
		HSTSSubdomains: true,
	}
}

// Headers returns middleware that applies p to every response.
func Headers(p Policy) func(http.Handler) http.Handler {
	static := make(map[string]string, len(p.Static))
	for k, v := range p.Static {
		if v != "" {
			static[http.CanonicalHeaderKey(k)] = v
		}
	}
	var hsts string
	if p.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(p.HSTSMaxAge)
		if p.HSTSSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range static {
				h.Set(k, v)
			}
			if hsts != "" && r.TLS != nil {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStoreMiddleware marks responses as private and uncacheable; summaries
// are per user.
func NoStoreMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
