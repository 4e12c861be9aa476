package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only if the caller still holds the lock.
const unlockScript = `if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end`

// EntryLocker implements usecase.EntryLocker with a Redis SETNX lock per
// entry id. It gives state-machine transitions single-writer semantics
// across service instances; the row lock inside the storage transaction
// remains the correctness backstop.
type EntryLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewEntryLocker creates a new EntryLocker. ttl bounds how long a
// crashed holder can block an entry; wait bounds how long an acquirer
// polls before giving up.
func NewEntryLocker(client *redis.Client, ttl, wait time.Duration) *EntryLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 10 * time.Second
	}

	return &EntryLocker{
		client: client,
		prefix: "journal:entry-lock:",
		ttl:    ttl,
		wait:   wait,
	}
}

// Lock acquires the lock for an entry id, polling with exponential
// backoff until acquired or the wait budget is exhausted. The returned
// release function is safe to call once; only the holder can release.
func (l *EntryLocker) Lock(ctx context.Context, entryID string) (func(), error) {
	key := l.prefix + entryID
	token := newToken()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = l.wait

	err := backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return fmt.Errorf("entry %s is locked", entryID)
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire entry lock: %w", err)
	}

	release := func() {
		// Detached from the caller's context: the lock must be released
		// even when the operation was cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		_, _ = l.client.Eval(releaseCtx, unlockScript, []string{key}, token).Result()
	}

	return release, nil
}

func newToken() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
