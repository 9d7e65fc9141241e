package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riftstats/props-api/internal/models"
)

// ResultCache memoizes prediction results in Redis. Keys are derived from
// the full query signature plus a per-player outcome version, so a settled
// outcome for a player invalidates that player's cached predictions without
// any key scanning.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache wraps a Redis client. A zero TTL disables expiry.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// Get returns the cached result for a query, or nil on miss. Redis errors
// degrade to a miss; the cache is never load-bearing.
func (c *ResultCache) Get(ctx context.Context, q *models.PredictionRequest) *models.PredictionResult {
	data, err := c.client.Get(ctx, c.key(ctx, q)).Bytes()
	if err != nil {
		return nil
	}
	var result models.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

// Set stores a result under the query's cache key.
func (c *ResultCache) Set(ctx context.Context, q *models.PredictionRequest, result *models.PredictionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(ctx, q), data, c.ttl)
}

// BumpPlayer advances a player's outcome version, orphaning every cached
// prediction for that player.
func BumpPlayer(ctx context.Context, client *redis.Client, playerName string) error {
	return client.Incr(ctx, versionKey(playerName)).Err()
}

func (c *ResultCache) key(ctx context.Context, q *models.PredictionRequest) string {
	version, err := c.client.Get(ctx, versionKey(q.Player())).Result()
	if err != nil {
		version = "0"
	}
	sum := sha256.Sum256([]byte(q.Signature()))
	return fmt.Sprintf("prediction:%s:%s", version, hex.EncodeToString(sum[:16]))
}

func versionKey(playerName string) string {
	return "player:" + playerKey(playerName) + ":outcome_version"
}
