// Package middleware holds request scoped plumbing shared by the handlers.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/leeforge/recaptcha/logging"
)

// TraceIDHeader carries the trace id in both directions.
const TraceIDHeader = "X-Trace-ID"

// TraceID reuses an incoming X-Trace-ID or generates one, echoes it on the
// response and stores it in the context for logging and responder meta.
func TraceID() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceIDHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			w.Header().Set(TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(logging.SetTraceID(r.Context(), traceID)))
		})
	}
}

func GetTraceIDFromRequest(r *http.Request) string {
	return logging.GetTraceID(r.Context())
}
