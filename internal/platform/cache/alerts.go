package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertMarker suppresses repeated low-stock and expiry notifications. The
// scanners are fire-and-forget; without a marker each run would re-emit the
// same alert for every item still under par.
type AlertMarker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAlertMarker builds an AlertMarker with the given suppression window.
func NewAlertMarker(client *redis.Client, ttl time.Duration) *AlertMarker {
	return &AlertMarker{client: client, ttl: ttl}
}

// MarkOnce returns true the first time the key is seen within the TTL window.
func (m *AlertMarker) MarkOnce(ctx context.Context, kind string, itemID, warehouseID int64) (bool, error) {
	if m == nil || m.client == nil {
		return true, nil
	}
	key := fmt.Sprintf("alert:%s:%d:%d", kind, itemID, warehouseID)
	ok, err := m.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("platform/cache: mark alert: %w", err)
	}
	return ok, nil
}

// Clear drops a marker, typically after the underlying condition resolves.
func (m *AlertMarker) Clear(ctx context.Context, kind string, itemID, warehouseID int64) error {
	if m == nil || m.client == nil {
		return nil
	}
	key := fmt.Sprintf("alert:%s:%d:%d", kind, itemID, warehouseID)
	return m.client.Del(ctx, key).Err()
}
