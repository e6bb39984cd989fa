// Package tokens keeps the API keys accepted by the HTTP server, with a
// per-key request limit, cached in memory and reloaded from Postgres.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"url2pdf/internal/config"
	"url2pdf/internal/infra/logging"
)

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrStoreNotReady signals that no token list has been loaded yet, which
	// happens while the database is still starting.
	ErrStoreNotReady = errors.New("token store not ready")
)

// Store caches token -> rate limit. A nil cache means never loaded.
type Store struct {
	mu    sync.RWMutex
	cache map[string]int

	cfg  config.PostgresConfig
	dbMu sync.Mutex
	dsn  string
	db   *sql.DB
}

// NewStore returns an empty Store reading from cfg.
func NewStore(cfg config.PostgresConfig) *Store {
	return &Store{cfg: cfg}
}

// Enabled reports whether a database is configured.
func (s *Store) Enabled() bool {
	return s.cfg.Host != ""
}

const defaultPostgresPort = 5432

// postgresDSN builds a pgx URL from cfg. A Host that already is a postgres://
// URL is used as is.
func postgresDSN(cfg config.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"host", cfg.Host}, {"database", cfg.Database}, {"user", cfg.User},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("postgres: missing %s", strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   postgresAddr(cfg),
		Path:   "/" + cfg.Database,
		User:   url.User(cfg.User),
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// postgresAddr keeps an explicit host:port and otherwise appends cfg.Port,
// bracketing IPv6 literals.
func postgresAddr(cfg config.PostgresConfig) string {
	if _, _, err := net.SplitHostPort(cfg.Host); err == nil {
		return cfg.Host
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	return net.JoinHostPort(strings.Trim(cfg.Host, "[]"), strconv.Itoa(port))
}

// handle opens the pool once per DSN and pings it.
func (s *Store) handle(ctx context.Context) (*sql.DB, error) {
	dsn, err := postgresDSN(s.cfg)
	if err != nil {
		return nil, err
	}

	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.db != nil && s.dsn == dsn {
		return s.db, nil
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db, s.dsn = nil, ""
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Small, low-throughput control plane table.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db, s.dsn = db, dsn
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		rate_limit INTEGER NOT NULL DEFAULT 60,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		comment TEXT
	);`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_created_at ON tokens (created_at);`,
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load reads every token and its limit, replacing the cache on success.
func (s *Store) Load(ctx context.Context) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if err := ensureSchema(ctx, db); err != nil {
		return err
	}

	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := db.QueryContext(qctx, `SELECT token, rate_limit FROM tokens;`)
	if err != nil {
		return err
	}
	defer rows.Close()

	cache := make(map[string]int)
	for rows.Next() {
		var token string
		var limit int
		if err := rows.Scan(&token, &limit); err != nil {
			return err
		}
		cache[token] = limit
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.Replace(cache)
	logging.Info("API tokens loaded", "count", len(cache))
	return nil
}

// Replace swaps the cache for a copy of m. Used by Load and by tests.
func (s *Store) Replace(m map[string]int) {
	cache := make(map[string]int, len(m))
	for k, v := range m {
		cache[k] = v
	}
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
}

// Ready is true once a token list has been loaded.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache != nil
}

// Validate reports whether token is known.
func (s *Store) Validate(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[token]
	return ok
}

// RateLimit returns the limit for token, or 0 (unlimited) when unknown.
func (s *Store) RateLimit(token string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[token]
}

// Refresh reloads every interval until ctx is done. A failed reload keeps
// the previous list.
func (s *Store) Refresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Load(ctx); err != nil && ctx.Err() == nil {
				logging.Error("Failed to reload API tokens", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close releases the database pool.
func (s *Store) Close() error {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db, s.dsn = nil, ""
	return err
}
