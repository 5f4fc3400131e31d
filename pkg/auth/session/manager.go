// Package session keeps refresh sessions in Redis, one key per access token
// id (the JWT jti). A key's presence is what keeps its access token usable.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/biblionet/biblionet-backend/pkg/config"
	redisclient "github.com/biblionet/biblionet-backend/pkg/redis"
)

const refreshTokenBytes = 32

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read-only surface the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// record is the value stored per session. Only a digest of the refresh token
// is kept. TTL travels with the record so remember-me sessions keep their
// lifetime across rotations.
type record struct {
	Digest   string `json:"digest"`
	TTL      int64  `json:"ttl_s"`
	IssuedAt int64  `json:"issued_at"`
}

type Manager struct {
	store       store
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewManager validates the JWT lifetimes against each other and binds the
// manager to Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	if access := time.Duration(cfg.ExpirationMinutes) * time.Minute; ttl <= access {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return newManager(client, ttl, max(cfg.RememberMeTTL(), ttl)), nil
}

func newManager(s store, ttl, rememberTTL time.Duration) *Manager {
	return &Manager{store: s, ttl: ttl, rememberTTL: rememberTTL, now: time.Now}
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, remember bool) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}
	return m.open(ctx, accessID, ttl)
}

// Rotate exchanges a refresh token for a new access id and refresh token.
// The old session is consumed with a compare-and-delete, so two concurrent
// rotations of the same token cannot both succeed.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", fmt.Errorf("read session: %w", err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", "", ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.Digest), []byte(digest(provided))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	consumed, err := m.store.ReleaseIfOwner(ctx, key, raw)
	if err != nil {
		return "", "", fmt.Errorf("consume session: %w", err)
	}
	if !consumed {
		return "", "", ErrInvalidRefreshToken
	}

	ttl := time.Duration(rec.TTL) * time.Second
	if ttl <= 0 {
		ttl = m.ttl
	}
	accessID := NewAccessID()
	token, err := m.open(ctx, accessID, ttl)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

// Revoke ends the session behind accessID. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) open(ctx context.Context, accessID string, ttl time.Duration) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	value, err := json.Marshal(record{
		Digest:   digest(token),
		TTL:      int64(ttl / time.Second),
		IssuedAt: m.now().Unix(),
	})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(value), ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
