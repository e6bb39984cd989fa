// Package middleware holds the fiber middleware chain of the HTTP server.
package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/rs/xid"

	"url2pdf/internal/config"
	"url2pdf/internal/gateway"
	"url2pdf/internal/infra/logging"
	"url2pdf/internal/infra/tokens"
)

// TokenStore is the API key source used for auth and per-key limits.
type TokenStore interface {
	TokenRater
	Ready() bool
	Validate(token string) bool
}

// Register attaches the global middleware. ts may be nil to disable API
// key auth; store may be nil to use memory storage for the limiters.
func Register(app *fiber.App, cfg config.Config, ts TokenStore, store fiber.Storage) {
	if store == nil {
		store = memoryStorage.New()
	}

	app.Use(CORS())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/ops/health",
		ReadinessEndpoint: "/ops/ready",
		ReadinessProbe: func(c *fiber.Ctx) bool {
			return ts == nil || ts.Ready()
		},
	}))

	if ts != nil {
		app.Use(APIKeyAuth(ts))
		app.Use(TokenRateLimit(cfg.RateLimiter.Interval, ts, store, NewLimiterCache()))
	}

	if cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0 {
		app.Use(UserRateLimit(cfg.RateLimiter.UserLimit, cfg.RateLimiter.Interval, store))
	}

	app.Use(RequestLog())
}

// CORS puts the cross-origin headers on every response, including limiter,
// auth and 404 errors. Render routes refine Allow-Methods per policy.
func CORS() fiber.Handler {
	headers := gateway.CORSHeaders(true)
	return func(c *fiber.Ctx) error {
		for k, v := range headers {
			c.Set(k, v)
		}
		return c.Next()
	}
}

// APIKeyAuth validates X-API-Key when present. Requests without the header
// and preflights pass through anonymously.
func APIKeyAuth(ts TokenStore) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: APIKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !ts.Ready() {
				return false, tokens.ErrStoreNotReady
			}
			if !ts.Validate(key) {
				return false, tokens.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may call ErrorHandler with a nil error.
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, tokens.ErrStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    status,
					"message": err.Error(),
				},
			})
		},
	})
}

// RequestLog logs every request once it has been served.
func RequestLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logging.Info("Request served",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
