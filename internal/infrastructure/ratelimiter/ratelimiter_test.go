package ratelimiter

import (
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, rate, burst int) (Limiter, *manualClock) {
	t.Helper()

	cache := NewInMemory()
	t.Cleanup(func() { _ = cache.Close() })

	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(Options{
		MaxRatePerSecond: rate,
		MaxBurst:         burst,
		Store:            cache,
		BucketTTL:        time.Minute,
		Now:              clock.Now,
	}), clock
}

func TestAllowConsumesBurst(t *testing.T) {
	t.Parallel()

	rl, _ := newLimiter(t, 1, 2)

	assert.Equal(t, 2, rl.Remaining("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.Zero(t, rl.Remaining("10.0.0.1"))

	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per source")
}

func TestRefillCarriesPartialProgress(t *testing.T) {
	t.Parallel()

	rl, clock := newLimiter(t, 1, 2)
	require.True(t, rl.Allow("k"))
	require.True(t, rl.Allow("k"))

	clock.Advance(600 * time.Millisecond)
	assert.False(t, rl.Allow("k"))

	clock.Advance(400 * time.Millisecond)
	assert.True(t, rl.Allow("k"), "two partial intervals add up to one token")
	assert.False(t, rl.Allow("k"))

	clock.Advance(time.Hour)
	assert.Equal(t, 2, rl.Remaining("k"), "refill is capped at the burst size")
}

func TestConcurrentAllowNeverExceedsBurst(t *testing.T) {
	t.Parallel()

	rl, _ := newLimiter(t, 1, 5)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowed)
}

func TestGetSourceKey(t *testing.T) {
	t.Parallel()

	rl := New(Options{MaxRatePerSecond: 1, SourceHeaderKey: "X-Forwarded-For"})

	r := httptest.NewRequest("GET", "/api/nodes", nil)
	r.RemoteAddr = "192.168.1.7:52311"
	assert.Equal(t, "192.168.1.7", rl.GetSourceKey(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", rl.GetSourceKey(r))
	assert.Equal(t, 1, rl.GetMaxBurst(), "burst defaults to the rate")
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()

	store := NewInMemory()
	defer store.Close()

	require.NoError(t, store.Save("short", Bucket{Tokens: 1, LastFill: 10}, time.Millisecond))
	require.NoError(t, store.Save("forever", Bucket{Tokens: 2, LastFill: 20}, 0))

	time.Sleep(5 * time.Millisecond)

	_, err := store.Load("short")
	assert.ErrorIs(t, err, ErrBucketNotFound)

	b, err := store.Load("forever")
	require.NoError(t, err)
	assert.Equal(t, Bucket{Tokens: 2, LastFill: 20}, b)
}

func TestBrokenStoreFailsOpen(t *testing.T) {
	t.Parallel()

	rl := New(Options{MaxRatePerSecond: 1, MaxBurst: 1, Store: brokenStore{}})
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("k"), "every call starts from a full bucket")
	}
}

type brokenStore struct{}

func (brokenStore) Load(string) (Bucket, error) { return Bucket{}, errors.New("connection refused") }
func (brokenStore) Save(string, Bucket, time.Duration) error { return errors.New("connection refused") }
func (brokenStore) Close() error { return nil }
