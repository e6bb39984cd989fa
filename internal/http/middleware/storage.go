package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/redis/go-redis/v9"

	"url2pdf/internal/infra/logging"
)

// NewRateLimitStorage returns Redis-backed limiter storage when host answers
// a PING, and in-process memory storage otherwise.
func NewRateLimitStorage(ctx context.Context, host string, db int) (store fiber.Storage) {
	if host == "" {
		logging.Info("Using in-memory storage for rate limiting")
		return memoryStorage.New()
	}

	rdb := redis.NewClient(&redis.Options{Addr: host, DB: db})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logging.Warn("Redis unreachable, rate limiting falls back to memory", "addr", host, "error", err)
		return memoryStorage.New()
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			store = memoryStorage.New()
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{host},
		Database: db,
	})
	logging.Info("Using Redis for rate limiting", "addr", host, "db", db)
	return store
}
