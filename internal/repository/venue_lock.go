package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/jampad-booking/internal/utils"
)

// releaseScript deletes the lock only when it still holds our token, so an
// expired lock re-acquired by another request is left alone.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// VenueLock is a short-lived Redis advisory lock keyed by venue and date.
// It narrows the window between the conflict check and the insert; the
// unique slot constraint remains authoritative.  With a nil client every
// Acquire succeeds immediately.
type VenueLock struct {
	rdb   *redis.Client
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

// NewVenueLock returns a lock held for at most ttl, waiting up to wait to
// acquire it.
func NewVenueLock(rdb *redis.Client, ttl, wait time.Duration) *VenueLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &VenueLock{rdb: rdb, ttl: ttl, wait: wait, retry: 50 * time.Millisecond}
}

// LockKey returns the Redis key guarding bookings for venue on date.
func LockKey(venue, date string) string {
	return "lock:booking:" + venue + ":" + date
}

// Acquire takes the lock for venue and date.  It returns ErrLockBusy when
// the lock is still held after the wait window.
func (l *VenueLock) Acquire(ctx context.Context, venue, date string) (func(), error) {
	if l == nil || l.rdb == nil {
		return func() {}, nil
	}
	token, err := utils.NewHoldToken()
	if err != nil {
		return nil, err
	}
	key := LockKey(venue, date)
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				rctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, l.rdb, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
