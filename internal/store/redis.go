package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Nekoplex/VkGPTBot/internal/metrics"
)

const verdictTTL = 24 * time.Hour

// RedisStore caches moderation verdicts so repeated submissions of the
// same text skip the moderation API.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// verdictKey returns the cache key for a moderation verdict. The stage is
// part of the key: input and output moderation may apply different policy.
func verdictKey(stage, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("moderation:%s:%s", stage, hex.EncodeToString(sum[:]))
}

type cachedVerdict struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason,omitempty"`
}

// GetVerdict looks up a cached moderation verdict. found is false on miss.
func (s *RedisStore) GetVerdict(ctx context.Context, stage, text string) (found, flagged bool, reason string, err error) {
	start := time.Now()
	raw, err := s.client.Get(ctx, verdictKey(stage, text)).Bytes()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, "", nil
		}
		return false, false, "", err
	}

	var v cachedVerdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false, "", err
	}
	return true, v.Flagged, v.Reason, nil
}

// SetVerdict caches a moderation verdict with a bounded TTL.
func (s *RedisStore) SetVerdict(ctx context.Context, stage, text string, flagged bool, reason string) error {
	raw, err := json.Marshal(cachedVerdict{Flagged: flagged, Reason: reason})
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.client.Set(ctx, verdictKey(stage, text), raw, verdictTTL).Err()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	return err
}
