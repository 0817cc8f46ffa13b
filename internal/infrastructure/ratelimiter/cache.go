package ratelimiter

import (
	"errors"
	"time"
)

var ErrBucketNotFound = errors.New("bucket not found")

// Bucket is the stored token bucket of one source.
type Bucket struct {
	Tokens   int
	LastFill int64 // unix milliseconds
}

// BucketStore keeps buckets between requests. A bucket left untouched for its ttl
// disappears and the source starts again with a full burst.
type BucketStore interface {
	Load(key string) (Bucket, error)
	Save(key string, bucket Bucket, ttl time.Duration) error
	Close() error
}
