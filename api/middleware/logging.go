package middleware

import (
	"net/http"
	"time"

	"github.com/biblionet/biblionet-backend/pkg/logger"
	"github.com/biblionet/biblionet-backend/pkg/metrics"
)

// Logging writes one access line per request and feeds the HTTP metrics.
// Server errors log at error level, client errors at warn, the rest at info.
func Logging(logg *logger.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &accessRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.statusCode()
			elapsed := time.Since(start)
			route := routePattern(r)
			httpMetrics.Observe(r.Method, route, status, elapsed)

			if logg == nil {
				return
			}
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":      r.Method,
				"route":       route,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       rec.bytes,
				"duration_ms": elapsed.Milliseconds(),
				"remote_ip":   clientIP(r),
			})
			switch {
			case status >= http.StatusInternalServerError:
				logg.Error(ctx, "http.access", nil)
			case status >= http.StatusBadRequest:
				logg.Warn(ctx, "http.access")
			default:
				logg.Info(ctx, "http.access")
			}
		})
	}
}

// accessRecorder tracks the status and body size written by the handler.
type accessRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (a *accessRecorder) WriteHeader(code int) {
	if a.status == 0 {
		a.status = code
	}
	a.ResponseWriter.WriteHeader(code)
}

func (a *accessRecorder) Write(b []byte) (int, error) {
	if a.status == 0 {
		a.status = http.StatusOK
	}
	n, err := a.ResponseWriter.Write(b)
	a.bytes += n
	return n, err
}

func (a *accessRecorder) statusCode() int {
	if a.status == 0 {
		return http.StatusOK
	}
	return a.status
}
