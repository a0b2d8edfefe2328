package middleware

import (
	"context"
	"net/http"
	"time"
)

type timingContextKey string

// StartTimeKey is the key for request start time in context
const StartTimeKey timingContextKey = "start_time"

// Timing records request start time for calculating processing duration
func Timing() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), StartTimeKey, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestDuration returns the milliseconds since the request started,
// 0 when Timing did not run.
func GetRequestDuration(ctx context.Context) int64 {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return time.Since(startTime).Milliseconds()
	}
	return 0
}
