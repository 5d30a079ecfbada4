package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gopawz/booking/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

// AcquireScanLock is a fast-path guard in front of the conditional status
// update; the storage CAS still decides any race the lock misses.
func (c *RedisCache) AcquireScanLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, scanLockKey(bookingID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseScanLock(ctx context.Context, bookingID string) error {
	return c.client.Del(ctx, scanLockKey(bookingID)).Err()
}

// MarkReminderSent dedupes the reminder sweep: only the first sweep to
// claim a booking within the TTL publishes its reminder.
func (c *RedisCache) MarkReminderSent(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, reminderKey(bookingID), "sent", ttl).Result()
}

func scanLockKey(bookingID string) string {
	return fmt.Sprintf("lock:checkin:%s", bookingID)
}

func reminderKey(bookingID string) string {
	return fmt.Sprintf("reminder:booking:%s", bookingID)
}
