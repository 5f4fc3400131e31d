package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/biblionet/biblionet-backend/api/responses"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
)

const (
	msgTooMany = "Demasiados intentos. Espera un momento e inténtalo de nuevo."

	maxThrottledBody = 64 << 10
)

// windowStore counts hits in a fixed window. The Redis client namespaces
// scope under its rate limit prefix.
type windowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one credential surface by client address and
// by each identity field found in the JSON body.
type AuthRateLimitPolicy struct {
	name          string
	window        time.Duration
	ipLimit       int
	identityLimit int
	fields        []string
}

// NewAuthRateLimitPolicy builds a policy. fields names the body properties
// that identify the account (email, dni); each is counted on its own.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identityLimit int, fields ...string) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	if len(fields) == 0 {
		fields = []string{"email"}
	}
	return AuthRateLimitPolicy{
		name:          name,
		window:        window,
		ipLimit:       ipLimit,
		identityLimit: identityLimit,
		fields:        fields,
	}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identityLimit > 0)
}

// AuthRateLimit rejects a request with 429 once any of its counters passes
// the policy limit inside the window.
func AuthRateLimit(policy AuthRateLimitPolicy, store windowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if !policy.check(ctx, w, logg, store, "ip", ip, ip, policy.ipLimit) {
						return
					}
				}
			}

			if policy.identityLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxThrottledBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No se pudo leer la solicitud."))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				for field, value := range identityValues(body, policy.fields) {
					hash := hashValue(value)
					if !policy.check(ctx, w, logg, store, field, hash, "", policy.identityLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check counts one hit and answers 429 when the counter is over limit. It
// reports whether the request may continue.
func (p AuthRateLimitPolicy) check(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, store windowStore, scope, value, ip string, limit int) bool {
	key := "auth:" + p.name + ":" + scope + ":" + value
	allowed, count, err := store.FixedWindowAllow(ctx, key, int64(limit), p.window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}

	if logg != nil {
		fields := map[string]any{
			"scope":          scope,
			"policy":         p.name,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(p.window.Seconds()),
		}
		if ip != "" {
			fields["ip"] = ip
		} else {
			fields["identity_hash"] = value
		}
		logg.Warn(logg.WithFields(ctx, fields), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, msgTooMany))
	return false
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// identityValues pulls the named string properties out of a JSON object,
// normalized for counting. Bodies that are not JSON objects yield nothing.
func identityValues(payload []byte, fields []string) map[string]string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		raw, ok := body[field].(string)
		if !ok {
			continue
		}
		if v := strings.ToLower(strings.TrimSpace(raw)); v != "" {
			out[field] = v
		}
	}
	return out
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
