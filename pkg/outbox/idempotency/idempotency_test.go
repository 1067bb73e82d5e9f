package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	keys    map[string]time.Duration
	err     error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]time.Duration{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) { return "", nil }

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, held := f.keys[key]; held {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ssb:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.keys, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	assert.Error(t, err)
}

func TestClaimIsExclusiveUntilReleased(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 720*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	scope := ConsumerScope("analytics")
	eventID := uuid.NewString()

	first, err := manager.Claim(ctx, scope, eventID, 0)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 720*time.Hour, store.keys["ssb:idempotency:evt:processed:analytics:"+eventID], "zero ttl should use the default")

	second, err := manager.Claim(ctx, scope, eventID, 0)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, manager.Release(ctx, scope, eventID))
	again, err := manager.Claim(ctx, scope, eventID, 0)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaimHonoursExplicitTTL(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	ok, err := manager.Claim(context.Background(), "delivery_overdue", "sell-1:2026-10-19", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 48*time.Hour, store.keys["ssb:idempotency:delivery_overdue:sell-1:2026-10-19"])
}

func TestClaimRejectsBlankInputs(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Claim(ctx, "", "x", 0)
	assert.ErrorIs(t, err, errBlankClaim)
	_, err = manager.Claim(ctx, "scope", "  ", 0)
	assert.ErrorIs(t, err, errBlankClaim)
	assert.ErrorIs(t, manager.Release(ctx, " ", "x"), errBlankClaim)
}

func TestClaimSurfacesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("redis down")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.Claim(context.Background(), ConsumerScope("notifications"), uuid.NewString(), 0)
	assert.EqualError(t, err, "redis down")
}
