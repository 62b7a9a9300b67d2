package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLProfile bounds how stale a cached display name or avatar can be
const TTLProfile = 10 * time.Minute

// PrefixProfile key prefix for cached profile summaries
const PrefixProfile = "profile:"

// ErrUnavailable is returned by reads when no redis client is configured
var ErrUnavailable = errors.New("redis not available")

// Service profile display cache backed by Redis
type Service interface {
	GetProfiles(ctx context.Context, userIDs []string) (map[string][]byte, error)
	SetProfile(ctx context.Context, userID string, data interface{}) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

type redisCache struct {
	client *redis.Client
}

// NewService creates a cache service; a nil client turns writes into no-ops
// and reads into ErrUnavailable.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrUnavailable
	}
	return c.client.Ping(ctx).Err()
}

// ProfileKey returns the cache key for a user's display profile
func ProfileKey(userID string) string {
	return PrefixProfile + userID
}

// GetProfiles fetches several profiles in one MGET; misses are absent from the result
func (c *redisCache) GetProfiles(ctx context.Context, userIDs []string) (map[string][]byte, error) {
	if c.client == nil {
		return nil, ErrUnavailable
	}
	result := make(map[string][]byte, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = ProfileKey(id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget profiles: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		result[userIDs[i]] = []byte(s)
	}
	return result, nil
}

// SetProfile stores a profile summary as JSON
func (c *redisCache) SetProfile(ctx context.Context, userID string, data interface{}) error {
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, ProfileKey(userID), raw, TTLProfile).Err()
}
