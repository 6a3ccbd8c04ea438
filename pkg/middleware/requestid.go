package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub/pkg/contextkeys"
)

// RequestIDHeader carries the request ID in responses and, when supplied by
// a trusted proxy, in requests
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a UUID, reusing an inbound header value if
// present, and echoes it in the response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := contextkeys.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
