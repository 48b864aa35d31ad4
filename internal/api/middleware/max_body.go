package middleware

import (
	"net/http"

	"github.com/cairoware/tourbase/internal/api"
)

// MaxBodyBytes caps request body size. Search payloads carry at most one
// query embedding, so the cap can stay small; a declared Content-Length
// over the cap is rejected up front, anything else is enforced while
// reading.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
