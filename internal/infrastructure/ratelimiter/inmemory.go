package ratelimiter

import (
	"sync"
	"time"
)

const sweepEvery = time.Minute

type storedBucket struct {
	bucket    Bucket
	expiresAt time.Time // zero never expires
}

func (s storedBucket) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && now.After(s.expiresAt)
}

// Memory is a process-local BucketStore with a background expiry sweep.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]storedBucket
	done    chan struct{}
	once    sync.Once
}

func NewInMemory() BucketStore {
	m := &Memory{
		buckets: make(map[string]storedBucket),
		done:    make(chan struct{}),
	}
	go m.sweep(sweepEvery)
	return m
}

func (m *Memory) Load(key string) (Bucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.buckets[key]
	if !ok || stored.expired(time.Now()) {
		return Bucket{}, ErrBucketNotFound
	}
	return stored.bucket, nil
}

func (m *Memory) Save(key string, bucket Bucket, ttl time.Duration) error {
	stored := storedBucket{bucket: bucket}
	if ttl > 0 {
		stored.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.buckets[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *Memory) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for key, stored := range m.buckets {
				if stored.expired(now) {
					delete(m.buckets, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}
