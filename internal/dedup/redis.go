package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps fingerprint records as plain keys with a 24h TTL, so
// expiry is handled entirely by the server and reads need no purge step.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	n, err := s.client.Exists(ctx, fingerprint).Result()
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Record(ctx context.Context, fingerprint string, payload []byte) error {
	if err := s.client.Set(ctx, fingerprint, payload, RetentionWindow).Err(); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
