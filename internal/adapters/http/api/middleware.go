package api

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/vibe/pkg/metrics"
)

// MetricsMiddleware records latency and status for every request under
// endpoint, plus an error counter for 4xx and 5xx answers.
func MetricsMiddleware(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// handler wrote nothing; net/http answers 200
				status = http.StatusOK
			}
			metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(status), float64(time.Since(start).Microseconds())/1000)
			if status >= http.StatusBadRequest {
				metrics.RecordErrorByEndpoint(endpoint, r.Method, errorClass(status))
			}
		})
	}
}

// errorClass buckets a failing status for the error counter.
func errorClass(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "rate_limit"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}
