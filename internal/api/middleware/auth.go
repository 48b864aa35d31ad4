package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cairoware/tourbase/internal/api"
)

type contextKey string

// APIKeyAuth validates a static bearer key against the configured set.
// An empty key set disables authentication entirely; the search surface is
// public by default and keys gate deployments that need it.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			keySet[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keySet) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if !validKey(keySet, token) {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func validKey(keySet map[string]struct{}, token string) bool {
	// Constant-time compare against every key so timing does not leak
	// which prefix matched.
	found := false
	for key := range keySet {
		if len(key) == len(token) && subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			found = true
		}
	}
	return found
}
