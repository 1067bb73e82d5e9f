// Package idempotency claims (scope, id) pairs in Redis so event handlers and
// scheduled notices run at most once within a TTL.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/redis"
)

var errBlankClaim = errors.New("idempotency scope and id are required")

type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager claims keys with SETNX. A released claim can be taken again at once.
type Manager struct {
	store      claimStore
	defaultTTL time.Duration
}

// NewManager builds a manager whose claims last defaultTTL unless a call
// asks for another duration. Zero keeps claims until released.
func NewManager(store redis.IdempotencyStore, defaultTTL time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if defaultTTL < 0 {
		return nil, errors.New("idempotency ttl must be non-negative")
	}
	return &Manager{store: store, defaultTTL: defaultTTL}, nil
}

// ConsumerScope is the claim scope for events handled by a named consumer.
func ConsumerScope(consumer string) string {
	return "evt:processed:" + consumer
}

// Claim reports whether this call took (scope, id). False means someone
// already holds it. A non-positive ttl uses the manager default.
func (m *Manager) Claim(ctx context.Context, scope, id string, ttl time.Duration) (bool, error) {
	key, err := m.key(scope, id)
	if err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	return m.store.SetNX(ctx, key, "1", ttl)
}

// Release drops a claim so failed work can be attempted again.
func (m *Manager) Release(ctx context.Context, scope, id string) error {
	key, err := m.key(scope, id)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(scope, id string) (string, error) {
	scope, id = strings.TrimSpace(scope), strings.TrimSpace(id)
	if scope == "" || id == "" {
		return "", errBlankClaim
	}
	return m.store.IdempotencyKey(scope, id), nil
}
