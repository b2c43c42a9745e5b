package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Lock serializes reservation work per ticket type across service
// instances. The conditional updates in the store keep counters safe on
// their own; the lock keeps concurrent multi-step reservations from
// thrashing each other and turns contention into a retryable signal.
type Lock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLock(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{Client: client, TTL: ttl}
}

func key(ticketTypeID string) string {
	return "type_lock:" + ticketTypeID
}

// LockType acquires the per-ticket-type lock for owner. Returns false when
// another owner currently holds it.
func (l *Lock) LockType(ctx context.Context, ticketTypeID, owner string) (bool, error) {
	ok, err := l.Client.SetNX(ctx, key(ticketTypeID), owner, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock error for ticket type %s: %w", ticketTypeID, err)
	}
	return ok, nil
}

// UnlockType releases the lock only if owner still holds it, so an expired
// lock re-acquired by someone else is never deleted from under them.
func (l *Lock) UnlockType(ctx context.Context, ticketTypeID, owner string) error {
	k := key(ticketTypeID)
	val, err := l.Client.Get(ctx, k).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err := l.Client.Del(ctx, k).Result()
		return err
	}
	return nil
}
