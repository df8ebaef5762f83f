package storage

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// EventLedger is the webhook idempotency claim on Redis. SetNX is the
// atomic claim; the TTL bounds how long a crashed worker can shadow a
// retry if it died between claiming and releasing.
type EventLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventLedger(rdb *redis.Client, ttl time.Duration) *EventLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EventLedger{rdb: rdb, ttl: ttl}
}

func (l *EventLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	return l.rdb.SetNX(ctx, ledgerKey(eventID), 1, l.ttl).Result()
}

func (l *EventLedger) Release(ctx context.Context, eventID string) error {
	return l.rdb.Del(ctx, ledgerKey(eventID)).Err()
}

func ledgerKey(eventID string) string {
	return "webhook:event:" + eventID
}

// MemoryLedger backs tests and the dev fallback.
type MemoryLedger struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{claimed: make(map[string]bool)}
}

func (l *MemoryLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed[eventID] {
		return false, nil
	}
	l.claimed[eventID] = true
	return true, nil
}

func (l *MemoryLedger) Release(ctx context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, eventID)
	return nil
}
