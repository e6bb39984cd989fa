package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/automaxprocs/maxprocs"

	"url2pdf/internal/config"
	"url2pdf/internal/gateway"
	"url2pdf/internal/http/middleware"
	"url2pdf/internal/http/server"
	"url2pdf/internal/infra/chrome"
	"url2pdf/internal/infra/logging"
	"url2pdf/internal/infra/tokens"
	"url2pdf/internal/render"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Missing .env is the normal case outside local development.
	_ = godotenv.Load(".env")

	cfg := loadConfig(opts)
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)

	// maxprocs.Set only fails on an invalid GOMAXPROCS env, where runtime
	// defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logging.Debug(fmt.Sprintf(format, args...))
	}))

	prov, err := chrome.NewProvisioner(cfg.Browser)
	if err != nil {
		return err
	}
	if err := prov.CheckProfileBase(); err != nil {
		logging.Warn("Browser profile directory not writable", "dir", cfg.Browser.UserDataDir, "error", err)
	}
	pipeline := render.NewPipeline(prov, cfg.Render.CaptureTimeout)

	switch {
	case opts.target != "":
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return renderOnce(ctx, cfg, pipeline, opts)
	case opts.lambda || os.Getenv("AWS_LAMBDA_RUNTIME_API") != "":
		logging.Info("Starting Lambda handler")
		h := gateway.NewHandler(pipeline, cfg.Policies.Robust, cfg.Policies.Simple)
		lambda.Start(gateway.LambdaHandler(h))
		return nil
	default:
		return serve(cfg, pipeline)
	}
}

func loadConfig(opts options) config.Config {
	if opts.config != "" {
		return config.LoadFrom(opts.config)
	}
	return config.Load()
}

// serve runs the HTTP server until SIGINT or SIGTERM.
func serve(cfg config.Config, r gateway.Renderer) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ts middleware.TokenStore
	store := tokens.NewStore(cfg.Auth.Postgres)
	if store.Enabled() {
		if err := store.Load(ctx); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		go store.Refresh(ctx, cfg.Auth.ReloadInterval)
		defer store.Close()
		ts = store
	}

	storage := middleware.NewRateLimitStorage(ctx, cfg.RateLimiter.RedisHost, cfg.RateLimiter.RedisDB)
	defer storage.Close()

	app := server.New(server.Deps{
		Config:   cfg,
		Renderer: r,
		Slots:    render.NewSlots(cfg.Render.MaxConcurrent),
		Tokens:   ts,
		Storage:  storage,
	})

	return startServer(ctx, app, cfg.Server.Host+cfg.Server.Port)
}

// startServer serves app on addr until ctx is done, then shuts it down
// gracefully. A listen failure is returned instead of waiting for a signal.
func startServer(ctx context.Context, app *fiber.App, addr string) error {
	listenErr := make(chan error, 1)
	go func() {
		logging.Info("Server listening", "addr", addr)
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err == nil {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	logging.Warn("Shutdown signal received, closing server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logging.Info("Server stopped cleanly")
	return nil
}
