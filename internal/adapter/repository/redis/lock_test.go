package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryLocker_LockAndRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	locker := NewEntryLocker(client, time.Second, time.Second)

	release, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)

	assert.True(t, mr.Exists("journal:entry-lock:entry-1"))

	release()
	assert.False(t, mr.Exists("journal:entry-lock:entry-1"))
}

func TestEntryLocker_HeldLockBlocksSecondAcquirer(t *testing.T) {
	client, mr := newTestRedisClient(t)
	locker := NewEntryLocker(client, time.Second, 50*time.Millisecond)

	release, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)
	defer release()

	_, err = locker.Lock(context.Background(), "entry-1")
	assert.Error(t, err)

	// An unrelated entry is unaffected.
	release2, err := locker.Lock(context.Background(), "entry-2")
	require.NoError(t, err)
	release2()

	_ = mr
}

func TestEntryLocker_AcquiresAfterRelease(t *testing.T) {
	client, _ := newTestRedisClient(t)
	locker := NewEntryLocker(client, time.Second, 500*time.Millisecond)

	release, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)
	release()

	release2, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)
	release2()
}

func TestEntryLocker_ReleaseOnlyRemovesOwnToken(t *testing.T) {
	client, mr := newTestRedisClient(t)
	locker := NewEntryLocker(client, time.Second, 50*time.Millisecond)

	release, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)

	// Simulate TTL expiry and a new holder taking over.
	mr.Del("journal:entry-lock:entry-1")
	release2, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)
	defer release2()

	// The stale holder's release must not free the new holder's lock.
	release()
	assert.True(t, mr.Exists("journal:entry-lock:entry-1"))
}

func TestEntryLocker_AcquiresAfterTTLExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	locker := NewEntryLocker(client, 100*time.Millisecond, time.Second)

	_, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)

	mr.FastForward(200 * time.Millisecond)

	release, err := locker.Lock(context.Background(), "entry-1")
	require.NoError(t, err)
	release()
}
