// internal/middleware/security.go
//
// Security-header middleware for the JSON API.
//
// Injects hardening headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years)
//   • Content-Security-Policy   –  nothing may load; the API serves no HTML
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Cache-Control             –  responses can carry one-time login links
//   • Referrer-Policy           –  no Referer at all
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP because anything added after
//   the first Write is dropped.  Handlers may still override a value.
// • If wpmanager runs behind a TLS-terminating proxy, HSTS is still useful
//   because the billing platform sees the proxy's domain as HTTPS.
// • Two spaces after periods.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains"
		csp   = "default-src 'none'; frame-ancestors 'none'"
		nosn  = "nosniff"
		cache = "no-store"
		refer = "no-referrer"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header() // shorthand

		h.Set("Strict-Transport-Security", hsts)
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Cache-Control", cache)
		h.Set("Referrer-Policy", refer)

		next.ServeHTTP(w, r)
	})
}
