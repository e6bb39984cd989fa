package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"url2pdf/internal/infra/logging"
)

// APIKeyLocal is the fiber local holding the authenticated API key.
const APIKeyLocal = "api_key"

// TokenRater reports the per-window request limit of an API key.
type TokenRater interface {
	RateLimit(token string) int
}

// LimiterCache shares one limiter handler per distinct token limit.
type LimiterCache struct {
	mu       sync.RWMutex
	handlers map[int]fiber.Handler
}

func NewLimiterCache() *LimiterCache {
	return &LimiterCache{handlers: make(map[int]fiber.Handler)}
}

func (lc *LimiterCache) get(limit int, build func() fiber.Handler) fiber.Handler {
	lc.mu.RLock()
	h, ok := lc.handlers[limit]
	lc.mu.RUnlock()
	if ok {
		return h
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if h, ok := lc.handlers[limit]; ok {
		return h
	}
	h = build()
	lc.handlers[limit] = h
	return h
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    fiber.StatusTooManyRequests,
			"message": "Too Many Requests",
		},
	})
}

func apiKey(c *fiber.Ctx) string {
	token, _ := c.Locals(APIKeyLocal).(string)
	return token
}

// TokenRateLimit applies each API key's own limit over interval. Preflights,
// requests without a key and keys with a limit of 0 pass through.
func TokenRateLimit(interval time.Duration, rater TokenRater, store fiber.Storage, cache *LimiterCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := apiKey(c)
		if token == "" || c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		limit := rater.RateLimit(token)
		if limit <= 0 {
			return c.Next()
		}
		h := cache.get(limit, func() fiber.Handler {
			return limiter.New(limiter.Config{
				Max:               limit,
				Expiration:        interval,
				LimiterMiddleware: limiter.SlidingWindow{},
				Storage:           store,
				KeyGenerator:      apiKey,
				LimitReached: func(c *fiber.Ctx) error {
					logging.Warn("Rate limit exceeded", "token", apiKey(c), "path", c.Path())
					return tooManyRequests(c)
				},
			})
		})
		return h(c)
	}
}

func clientKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return hex.EncodeToString(sum[:])
}

// UserRateLimit limits anonymous clients, keyed by IP and User-Agent.
// Preflights and requests carrying an API key skip it.
func UserRateLimit(limit int, interval time.Duration, store fiber.Storage) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	userLimiter := limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator:      clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "user", clientKey(c), "path", c.Path())
			return tooManyRequests(c)
		},
	})
	return func(c *fiber.Ctx) error {
		if apiKey(c) != "" || c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		return userLimiter(c)
	}
}
