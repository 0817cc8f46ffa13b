package ratelimiter

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	bucketKeyPrefix  = "rl:bucket:"
	defaultSourceKey = "X-RateLimit-Key"
)

type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

// RateLimiter is a token bucket per source key. The per-key mutex serialises
// load-refill-save within one process; a shared store across replicas is best effort.
type RateLimiter struct {
	tokensPerMilli  float64
	maxBurst        int
	store           BucketStore
	bucketTTL       time.Duration
	sourceHeaderKey string
	now             func() time.Time
	locks           sync.Map // source key -> *sync.Mutex
}

func (rl *RateLimiter) lock(sourceKey string) func() {
	l, _ := rl.locks.LoadOrStore(sourceKey, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// load starts unknown sources, and any store failure, with a full bucket.
func (rl *RateLimiter) load(sourceKey string, now int64) Bucket {
	bucket, err := rl.store.Load(bucketKeyPrefix + sourceKey)
	if err != nil {
		return Bucket{Tokens: rl.maxBurst, LastFill: now}
	}
	return bucket
}

func (rl *RateLimiter) save(sourceKey string, bucket Bucket) {
	_ = rl.store.Save(bucketKeyPrefix+sourceKey, bucket, rl.bucketTTL)
}

// refill adds whole tokens only and advances LastFill by the time they cost,
// so partial progress carries over to the next call.
func (rl *RateLimiter) refill(b Bucket, now int64) Bucket {
	elapsed := now - b.LastFill
	if elapsed <= 0 || rl.tokensPerMilli <= 0 {
		return b
	}

	whole := int(float64(elapsed) * rl.tokensPerMilli)
	if whole < 1 {
		return b
	}
	if b.Tokens+whole >= rl.maxBurst {
		return Bucket{Tokens: rl.maxBurst, LastFill: now}
	}

	return Bucket{
		Tokens:   b.Tokens + whole,
		LastFill: b.LastFill + int64(float64(whole)/rl.tokensPerMilli),
	}
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	defer rl.lock(sourceKey)()

	now := rl.now().UnixMilli()
	before := rl.load(sourceKey, now)
	after := rl.refill(before, now)
	if after != before {
		rl.save(sourceKey, after)
	}
	return after.Tokens
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	defer rl.lock(sourceKey)()

	now := rl.now().UnixMilli()
	before := rl.load(sourceKey, now)
	after := rl.refill(before, now)

	allowed := after.Tokens > 0
	if allowed {
		after.Tokens--
	}
	if after != before {
		rl.save(sourceKey, after)
	}
	return allowed
}

func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
		return key
	}

	// Fall back to IP address
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int // defaults to MaxRatePerSecond
	Store            BucketStore
	BucketTTL        time.Duration
	SourceHeaderKey  string
	Now              func() time.Time
}

func New(options Options) Limiter {
	if options.Store == nil {
		options.Store = NewInMemory()
	}
	if options.BucketTTL == 0 {
		options.BucketTTL = 10 * time.Second
	}
	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}
	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &RateLimiter{
		tokensPerMilli:  float64(options.MaxRatePerSecond) / 1000.0,
		maxBurst:        options.MaxBurst,
		store:           options.Store,
		bucketTTL:       options.BucketTTL,
		sourceHeaderKey: options.SourceHeaderKey,
		now:             options.Now,
	}
}
