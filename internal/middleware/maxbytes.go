package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes caps settings payloads (64 KiB).
const DefaultMaxBodyBytes = 64 << 10

// MaxBytes limits the request body size. Bodies over the limit fail to decode
// and the handler answers 400. Apply to routes that accept a body.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
