package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/redis/go-redis/v9"
)

// setIfNewer stores the state hash only when ARGV[1] is a higher version
// than the one cached, so a slow writer cannot roll the projection back.
var setIfNewer = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "version")
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[1], "state", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// RedisCache keeps the fast-read copy of each draft in a Redis hash.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache whose entries expire after ttl of inactivity.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) key(draftID string) string {
	return fmt.Sprintf("draft:%s:state", draftID)
}

func (c *RedisCache) Get(ctx context.Context, draftID string) (*models.DraftState, error) {
	data, err := c.client.HGet(ctx, c.key(draftID), "state").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s models.DraftState
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to decode cached draft %s: %w", draftID, err)
	}
	return &s, nil
}

func (c *RedisCache) Set(ctx context.Context, s *models.DraftState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode draft %s: %w", s.DraftID, err)
	}
	return setIfNewer.Run(ctx, c.client, []string{c.key(s.DraftID)},
		s.Version, string(data), c.ttl.Milliseconds()).Err()
}

func (c *RedisCache) Delete(ctx context.Context, draftID string) error {
	return c.client.Del(ctx, c.key(draftID)).Err()
}
