package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/ignite/mailguard/internal/pkg/httputil"
)

// requireAPIKey rejects requests whose X-API-Key header does not match.
// An empty configured key disables the check for local development.
func requireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				got := r.Header.Get("X-API-Key")
				if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
					httputil.ErrorCode(w, http.StatusUnauthorized, "unauthorized", "BAD_API_KEY")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireWebhookSecret guards provider callbacks with a shared secret
// header. An empty configured secret disables the check.
func requireWebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get("X-Webhook-Secret")
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					httputil.ErrorCode(w, http.StatusUnauthorized, "unauthorized", "BAD_WEBHOOK_SECRET")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
