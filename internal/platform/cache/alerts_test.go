package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestMarker(t *testing.T, ttl time.Duration) (*AlertMarker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAlertMarker(client, ttl), srv
}

func TestMarkOnceSuppressesRepeats(t *testing.T) {
	marker, _ := newTestMarker(t, time.Hour)
	ctx := context.Background()

	first, err := marker.MarkOnce(ctx, "low_stock", 10, 2)
	require.NoError(t, err)
	require.True(t, first)

	again, err := marker.MarkOnce(ctx, "low_stock", 10, 2)
	require.NoError(t, err)
	require.False(t, again)

	// Different kind for the same pair is a separate alert.
	other, err := marker.MarkOnce(ctx, "expiring", 10, 2)
	require.NoError(t, err)
	require.True(t, other)
}

func TestMarkOnceExpiresWithWindow(t *testing.T) {
	marker, srv := newTestMarker(t, time.Minute)
	ctx := context.Background()

	first, err := marker.MarkOnce(ctx, "low_stock", 1, 1)
	require.NoError(t, err)
	require.True(t, first)

	srv.FastForward(2 * time.Minute)

	again, err := marker.MarkOnce(ctx, "low_stock", 1, 1)
	require.NoError(t, err)
	require.True(t, again)
}

func TestClearAllowsReemit(t *testing.T) {
	marker, _ := newTestMarker(t, time.Hour)
	ctx := context.Background()

	_, err := marker.MarkOnce(ctx, "low_stock", 5, 9)
	require.NoError(t, err)
	require.NoError(t, marker.Clear(ctx, "low_stock", 5, 9))

	again, err := marker.MarkOnce(ctx, "low_stock", 5, 9)
	require.NoError(t, err)
	require.True(t, again)
}
