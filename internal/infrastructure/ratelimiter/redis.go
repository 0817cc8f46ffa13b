package ratelimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTimeout  = 200 * time.Millisecond
	fieldTokens   = "tokens"
	fieldLastFill = "last_fill"
)

// Redis keeps each bucket in one hash so API replicas share limits.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) BucketStore {
	return &Redis{client: client}
}

func (r *Redis) Load(key string) (Bucket, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return Bucket{}, err
	}
	if len(fields) == 0 {
		return Bucket{}, ErrBucketNotFound
	}

	tokens, err := strconv.Atoi(fields[fieldTokens])
	if err != nil {
		return Bucket{}, fmt.Errorf("bucket %s: bad %s: %w", key, fieldTokens, err)
	}
	lastFill, err := strconv.ParseInt(fields[fieldLastFill], 10, 64)
	if err != nil {
		return Bucket{}, fmt.Errorf("bucket %s: bad %s: %w", key, fieldLastFill, err)
	}
	return Bucket{Tokens: tokens, LastFill: lastFill}, nil
}

func (r *Redis) Save(key string, bucket Bucket, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldTokens, bucket.Tokens, fieldLastFill, bucket.LastFill)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// Close leaves the shared client open; its owner closes it.
func (r *Redis) Close() error {
	return nil
}
