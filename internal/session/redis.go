package session

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/edgard/personabot/internal/config"
)

const inflightKeyPrefix = "personabot:inflight:"

// releaseScript deletes the key only if it still holds our token, so an
// expired-and-reacquired slot is never freed by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the single-flight slot across processes. Slots expire
// after ttl so a crashed holder eventually frees the user.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger

	mu     sync.Mutex
	tokens map[int64]string
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisGuard creates a Guard whose in-flight markers expire after ttl.
func NewRedisGuard(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisGuard{
		client: client,
		ttl:    ttl,
		log:    logger.With("component", "redis_guard"),
		tokens: make(map[int64]string),
	}
}

func inflightKey(userID int64) string {
	return inflightKeyPrefix + strconv.FormatInt(userID, 10)
}

func (g *RedisGuard) Acquire(ctx context.Context, userID int64) (bool, error) {
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, inflightKey(userID), token, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight slot for user %d: %w", userID, err)
	}
	if !ok {
		return false, nil
	}

	g.mu.Lock()
	g.tokens[userID] = token
	g.mu.Unlock()
	return true, nil
}

func (g *RedisGuard) Release(ctx context.Context, userID int64) {
	g.mu.Lock()
	token, ok := g.tokens[userID]
	delete(g.tokens, userID)
	g.mu.Unlock()

	if !ok {
		return
	}

	// Release runs on the cleanup path, often after the request context ended.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(releaseCtx, g.client, []string{inflightKey(userID)}, token).Err(); err != nil {
		g.log.WarnContext(ctx, "Failed to release in-flight slot", "user_id", userID, "error", err)
	}
}
