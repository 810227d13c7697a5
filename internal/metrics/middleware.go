package metrics

import (
	"net/http"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware returns middleware that records HTTP metrics.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			reg.RecordRequest(r.Method, route(r.URL.Path), rw.statusCode, time.Since(start).Seconds())
		})
	}
}

// unmatchedRoute labels every path the server does not serve.
const unmatchedRoute = "other"

var knownRoutes = map[string]bool{
	"/api/chat":     true,
	"/api/sessions": true,
	"/healthz":      true,
	"/metrics":      true,
}

// route maps a request path onto a fixed set of labels: session ids are
// collapsed and unknown paths share one label.
func route(path string) string {
	if knownRoutes[path] {
		return path
	}
	const sessions = "/api/sessions/"
	rest, ok := strings.CutPrefix(path, sessions)
	if !ok || rest == "" {
		return unmatchedRoute
	}
	id, tail, _ := strings.Cut(rest, "/")
	if id == "" {
		return unmatchedRoute
	}
	switch tail {
	case "":
		return sessions + "{id}"
	case "messages":
		return sessions + "{id}/messages"
	default:
		return unmatchedRoute
	}
}
