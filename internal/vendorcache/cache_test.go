package vendorcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	pkgredis "github.com/asbolsyn/asbolsyn-bot/pkg/redis"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := pkgredis.New(context.Background(), pkgredis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(client), mr
}

func TestCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	vendor := &domain.Vendor{
		ID:         7,
		TelegramID: 1001,
		Name:       "Dastarkhan",
		Status:     domain.VendorApproved,
	}

	require.NoError(t, cache.Set(ctx, vendor.TelegramID, vendor, time.Minute))

	got, err := cache.Get(ctx, vendor.TelegramID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, vendor.ID, got.ID)
	assert.Equal(t, vendor.Name, got.Name)
	assert.Equal(t, domain.VendorApproved, got.Status)
}

func TestCache_MissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	vendor := &domain.Vendor{ID: 1, TelegramID: 42, Status: domain.VendorPending}
	require.NoError(t, cache.Set(ctx, vendor.TelegramID, vendor, time.Minute))
	require.NoError(t, cache.Invalidate(ctx, vendor.TelegramID))

	got, err := cache.Get(ctx, vendor.TelegramID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_EntryExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	vendor := &domain.Vendor{ID: 2, TelegramID: 55, Status: domain.VendorApproved}
	require.NoError(t, cache.Set(ctx, vendor.TelegramID, vendor, time.Second))

	mr.FastForward(2 * time.Second)

	got, err := cache.Get(ctx, vendor.TelegramID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_NilReceiverIsSafe(t *testing.T) {
	var cache *Cache

	got, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Set(context.Background(), 1, &domain.Vendor{}, time.Minute))
	assert.NoError(t, cache.Invalidate(context.Background(), 1))
}
