package security

import (
	"bytes"
	"io"
	"net/http"

	"github.com/aloxstore/storefront/internal/common"
)

// BodyLimit caps request payload size. Oversized bodies are rejected with
// the same error envelope the handlers use, before any handler runs.
type BodyLimit struct {
	Max int64
}

// Middleware buffers at most Max+1 bytes of the body; anything beyond that
// is a 413. The buffered body is handed to the next handler so downstream
// decoders see an ordinary reader.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds limit", nil)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "unreadable request body", nil)
			return
		}
		_ = r.Body.Close()
		if int64(len(body)) > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds limit", nil)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		next.ServeHTTP(w, r)
	})
}
