package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/biblionet/biblionet-backend/api/responses"
	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
	"github.com/biblionet/biblionet-backend/pkg/logger"
	pkgredis "github.com/biblionet/biblionet-backend/pkg/redis"
)

const (
	// DefaultIdempotencyTTL applies when the configured TTL is not positive.
	DefaultIdempotencyTTL = 24 * time.Hour

	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	originalIDHeader  = "Idempotent-Original-Request-Id"
	maxIdempotencyKey = 128
	maxCheckoutBody   = 1 << 20
)

// checkoutRoutes are the POSTs that move stock or money, keyed by chi route
// pattern after StripSlashes.
var checkoutRoutes = map[string]bool{
	"/seguridad/ventas/realizar":      true,
	"/seguridad/ventas/facturar/{id}": true,
	"/seguridad/compras":              true,
}

// checkoutRecord is what a key holds: a claim while the first request runs,
// then the captured response.
type checkoutRecord struct {
	RequestHash string `json:"request_hash"`
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// Idempotency makes the checkout POSTs safe to retry. The first request with
// a given Idempotency-Key claims it and runs; later ones get the stored
// response back, a 409 while the first is still running, or a 409 when the
// body differs. A 5xx outcome drops the claim so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method != http.MethodPost || !checkoutRoutes[routePattern(r)] {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" || len(clientKey) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Envía el encabezado Idempotency-Key (máximo 128 caracteres)."))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxCheckoutBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No se pudo leer la solicitud."))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(checkoutScope(r), clientKey)
			hash := fingerprint(body)

			claim, _ := json.Marshal(checkoutRecord{RequestHash: hash, Pending: true})
			won, err := store.SetNX(ctx, key, string(claim), ttl)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !won {
				replay(ctx, w, logg, store, key, hash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logError(ctx, logg, "release idempotency key", err)
				}
				return
			}
			done, _ := json.Marshal(checkoutRecord{
				RequestHash: hash,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				RequestID:   RequestIDFromContext(ctx),
			})
			if err := store.Set(ctx, key, string(done), ttl); err != nil {
				logError(ctx, logg, "store idempotent response", err)
			}
		})
	}
}

func replay(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, store pkgredis.IdempotencyStore, key, hash string) {
	stored, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// The claim expired or was dropped between SetNX and Get.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Reintenta la solicitud."))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key"))
		return
	}
	var record checkoutRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "La clave de idempotencia ya se usó con otra solicitud."))
	case record.Pending:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "La solicitud original sigue en proceso."))
	default:
		payload, err := base64.StdEncoding.DecodeString(record.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent body"))
			return
		}
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		if record.RequestID != "" {
			w.Header().Set(originalIDHeader, record.RequestID)
		}
		w.WriteHeader(record.Status)
		_, _ = w.Write(payload)
	}
}

// checkoutScope ties a key to the acting user and the concrete path, so two
// cashiers never collide on the same client key.
func checkoutScope(r *http.Request) string {
	return strconv.FormatUint(uint64(UserIDFromContext(r.Context())), 10) + "|" + r.Method + "|" + r.URL.Path
}

func fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
