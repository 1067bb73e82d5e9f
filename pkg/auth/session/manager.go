// Package session keeps one Redis record per issued access token. The record
// holds the refresh token that may rotate it; deleting the record ends the
// session even while the JWT has not expired.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	redisclient "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/redis"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

var errNoAccessID = errors.New("access id is required")

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

type entry struct {
	UserID  uuid.UUID `json:"user_id"`
	Refresh string    `json:"refresh_token"`
}

// Rotation is the replacement session handed out by Rotate.
type Rotation struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

type Manager struct {
	store store
	ttl   time.Duration
}

// NewManager requires a refresh TTL longer than the access token lifetime,
// otherwise a session would vanish before its token expires.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= 0 || ttl <= access {
		return nil, fmt.Errorf("refresh token ttl %s must be positive and exceed access token ttl %s", ttl, access)
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if blank(accessID) {
		return "", errNoAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.open(ctx, accessID, userID)
}

// Rotate trades a valid (access id, refresh token) pair for a new session
// and ends the old one. The old record is consumed atomically, so two
// concurrent refreshes with the same token cannot both succeed.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, refreshToken string) (Rotation, error) {
	if blank(oldAccessID) || blank(refreshToken) {
		return Rotation{}, ErrInvalidRefreshToken
	}
	key := m.store.AccessSessionKey(oldAccessID)

	current, err := m.read(m.store.Get(ctx, key))
	if err != nil {
		return Rotation{}, err
	}
	if !sameToken(current.Refresh, refreshToken) {
		return Rotation{}, ErrInvalidRefreshToken
	}
	consumed, err := m.read(m.store.GetDel(ctx, key))
	if err != nil {
		return Rotation{}, err
	}
	if !sameToken(consumed.Refresh, refreshToken) {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := Rotation{AccessID: NewAccessID(), UserID: consumed.UserID}
	if next.RefreshToken, err = m.open(ctx, next.AccessID, consumed.UserID); err != nil {
		return Rotation{}, err
	}
	return next, nil
}

// Revoke ends the session behind accessID. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errNoAccessID
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

func (m *Manager) open(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw[:])

	value, err := json.Marshal(entry{UserID: userID, Refresh: token})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(value), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// read decodes a stored entry. A missing or unreadable record means the
// refresh token is no longer valid.
func (m *Manager) read(raw string, err error) (entry, error) {
	if errors.Is(err, redislib.Nil) {
		return entry{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return entry{}, err
	}
	var e entry
	if json.Unmarshal([]byte(raw), &e) != nil || e.Refresh == "" {
		return entry{}, ErrInvalidRefreshToken
	}
	return e, nil
}

func sameToken(stored, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
