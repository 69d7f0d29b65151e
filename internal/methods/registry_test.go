package methods

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	methods []Method
	err     error
	calls   int
}

func (s *stubStore) ListActive(ctx context.Context) ([]Method, error) {
	s.calls++
	return s.methods, s.err
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRegistryFallsBackToDefaults(t *testing.T) {
	registry := NewRegistry(nil, nil, nil)

	codes := registry.ActiveCodes(context.Background())
	require.Equal(t, []string{"cash", "electronic-wallet", "bank-transfer", "card"}, codes)
}

func TestRegistryFallsBackOnStoreError(t *testing.T) {
	registry := NewRegistry(&stubStore{err: errors.New("down")}, nil, nil)
	require.Len(t, registry.ActiveMethods(context.Background()), len(DefaultCodes))
}

func TestRegistryFallsBackOnEmptyStore(t *testing.T) {
	registry := NewRegistry(&stubStore{}, nil, nil)
	require.Len(t, registry.ActiveMethods(context.Background()), len(DefaultCodes))
}

func TestRegistryPrefersStoredMethods(t *testing.T) {
	store := &stubStore{methods: []Method{
		{Code: "cash", Name: "Efectivo", Active: true},
		{Code: "qr", Name: "QR", Active: true},
	}}
	registry := NewRegistry(store, nil, nil)

	require.Equal(t, []string{"cash", "qr"}, registry.ActiveCodes(context.Background()))
	require.Equal(t, "Efectivo", registry.DisplayName(context.Background(), "cash"))
}

func TestDisplayNameReadThroughCache(t *testing.T) {
	store := &stubStore{methods: []Method{{Code: "cash", Name: "Efectivo", Active: true}}}
	registry := NewRegistry(store, newTestRedis(t), nil)
	ctx := context.Background()

	require.Equal(t, "Efectivo", registry.DisplayName(ctx, "cash"))
	callsAfterMiss := store.calls

	// Second lookup is served from Redis without touching the store.
	require.Equal(t, "Efectivo", registry.DisplayName(ctx, "cash"))
	require.Equal(t, callsAfterMiss, store.calls)
}

func TestDisplayNameUnknownCodeUsesFallbackName(t *testing.T) {
	registry := NewRegistry(nil, newTestRedis(t), nil)
	require.Equal(t, "Store Credit", registry.DisplayName(context.Background(), "store-credit"))
}

func TestRefreshWarmsCache(t *testing.T) {
	store := &stubStore{methods: []Method{{Code: "cash", Name: "Efectivo", Active: true}}}
	registry := NewRegistry(store, newTestRedis(t), nil)
	ctx := context.Background()

	require.NoError(t, registry.Refresh(ctx))
	store.err = errors.New("down")

	// The cached label survives a store outage.
	require.Equal(t, "Efectivo", registry.DisplayName(ctx, "cash"))
}

func TestFallbackName(t *testing.T) {
	require.Equal(t, "Electronic Wallet", FallbackName("electronic-wallet"))
	require.Equal(t, "Cash", FallbackName("cash"))
}
