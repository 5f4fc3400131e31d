package middleware

import (
	"net/http"

	"github.com/biblionet/biblionet-backend/api/responses"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

type keyedLimiter interface {
	Allow(key string) bool
}

// RateLimit throttles requests per client IP with an in-process token bucket.
func RateLimit(limiter keyedLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "ip", ip), "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", "1")
				responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, msgTooMany))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
