package middleware

import (
	"context"
	"net/http"
	"time"
)

type startTimeKey struct{}

// Timing records when the request entered the stack.
func Timing() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), startTimeKey{}, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Elapsed is the time since Timing saw the request, zero without it.
func Elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startTimeKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
