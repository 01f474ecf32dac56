package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisPresenceCache keeps one hash per session, field per user. Every write
// refreshes the hash TTL in the same MULTI block, so an abandoned session
// expires as a whole.
type RedisPresenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPresenceCache(client *redis.Client, ttl time.Duration) *RedisPresenceCache {
	return &RedisPresenceCache{client: client, ttl: ttl}
}

func (c *RedisPresenceCache) Add(ctx context.Context, sessionID uuid.UUID, entry PresenceEntry) error {
	const op = "cache.redis.Add"

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := presenceKey(sessionID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, entry.UserID.String(), payload)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *RedisPresenceCache) Remove(ctx context.Context, sessionID, userID uuid.UUID) error {
	const op = "cache.redis.Remove"

	key := presenceKey(sessionID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, key, userID.String())
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *RedisPresenceCache) List(ctx context.Context, sessionID uuid.UUID) ([]PresenceEntry, error) {
	const op = "cache.redis.List"

	raw, err := c.client.HGetAll(ctx, presenceKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]PresenceEntry, 0, len(raw))
	for field, value := range raw {
		var entry PresenceEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", op, field, err)
		}
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

func (c *RedisPresenceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
