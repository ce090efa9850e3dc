package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Gateways retry notifications for about a day; keep keys a little longer.
const dedupTTL = 36 * time.Hour

// NotificationDedup remembers gateway notifications that were already applied.
// Key format: payment:notified:<txn_ref>:<response_code>
type NotificationDedup struct {
	client *redis.Client
}

// NewNotificationDedup creates a NotificationDedup wrapping the given Redis client.
func NewNotificationDedup(client *redis.Client) *NotificationDedup {
	return &NotificationDedup{client: client}
}

// IsDuplicate reports whether this exact notification has already been applied.
func (d *NotificationDedup) IsDuplicate(ctx context.Context, txnRef, responseCode string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(txnRef, responseCode)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this notification has been applied (expires after dedupTTL).
func (d *NotificationDedup) Mark(ctx context.Context, txnRef, responseCode string) error {
	return d.client.Set(ctx, d.key(txnRef, responseCode), "1", dedupTTL).Err()
}

func (d *NotificationDedup) key(txnRef, responseCode string) string {
	return fmt.Sprintf("payment:notified:%s:%s", txnRef, responseCode)
}
