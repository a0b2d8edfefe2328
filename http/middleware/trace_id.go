// Package middleware holds the chi middlewares every admin route runs
// behind.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/leeforge/adminsite/logging"
)

// TraceIDHeader is the HTTP header name for trace ID
const TraceIDHeader = "X-Trace-ID"

// TraceID adds a trace ID to each request.
// If the request already has a trace ID in the header, it will be used.
// Otherwise, a new UUID will be generated.
// The ID is stored where logging.WithContext picks it up.
func TraceID() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceIDHeader)
			if traceID == "" {
				traceID = uuid.New().String()
			}
			w.Header().Set(TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(logging.SetTraceID(r.Context(), traceID)))
		})
	}
}

// GetTraceIDFromRequest retrieves the trace ID from request context
func GetTraceIDFromRequest(r *http.Request) string {
	return logging.GetTraceID(r.Context())
}
