package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/kbukum/meetscribe/errors"
)

// BodySizeLimit caps request bodies at maxBytes. Requests that declare a
// larger Content-Length are rejected with 413 before the handler runs; the
// rest are read through http.MaxBytesReader. Zero disables the limit.
func BodySizeLimit(maxBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				body := apperrors.New(apperrors.ErrCodeFileTooLarge,
					"Upload exceeds the server limit.", http.StatusRequestEntityTooLarge).
					WithDetail("limit_bytes", maxBytes).
					ToResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_ = json.NewEncoder(w).Encode(body)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
