package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/wpmanager/internal/auth"
)

// RequireToken wraps h.  Requests must carry `Authorization: Bearer <token>`
// matching the configured hook token; others get 401 and never reach h.
// Authenticated requests carry auth.CallerBilling in their context.
func RequireToken(token string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := bearer(r.Header.Get("Authorization"))
			if !ok || !auth.TokenMatches(presented, token) {
				log.Infow("rejected unauthenticated request",
					"path", r.URL.Path, "ip", ClientIP(r).String())
				w.Header().Set("WWW-Authenticate", `Bearer realm="wpmanager"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			h.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), auth.CallerBilling)))
		})
	}
}

// bearer extracts the token from an Authorization header value.
func bearer(v string) (string, bool) {
	const prefix = "bearer "
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(v[len(prefix):]), true
}
