package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"url2pdf/internal/domain"
)

// Config is the full service configuration.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	RateLimiter struct {
		RedisHost         string        `yaml:"redis_host"`
		RedisDB           int           `yaml:"redis_db"`
		Interval          time.Duration `yaml:"interval"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
		UserLimit         int           `yaml:"user_limit"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres       PostgresConfig `yaml:"postgres"`
		ReloadInterval time.Duration  `yaml:"reload_interval"`
	} `yaml:"auth"`

	Browser BrowserConfig `yaml:"browser"`

	Render struct {
		MaxConcurrent  int64         `yaml:"max_concurrent"`
		AcquireTimeout time.Duration `yaml:"acquire_timeout"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		CaptureTimeout time.Duration `yaml:"capture_timeout"`
		MaxPDFBytes    int           `yaml:"max_pdf_bytes"`
	} `yaml:"render"`

	Policies struct {
		Robust domain.RenderPolicy `yaml:"robust"`
		Simple domain.RenderPolicy `yaml:"simple"`
	} `yaml:"policies"`
}

// PostgresConfig locates the API token database. An empty Host disables
// token auth.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// BrowserConfig describes how the headless browser is located and launched.
type BrowserConfig struct {
	ChromePath       string        `yaml:"chrome_path"`
	BundleDir        string        `yaml:"bundle_dir"`
	BundleDownload   bool          `yaml:"bundle_download"`
	UserDataDir      string        `yaml:"user_data_dir"`
	NoSandbox        bool          `yaml:"no_sandbox"`
	SingleProcess    bool          `yaml:"single_process"`
	IgnoreCertErrors bool          `yaml:"ignore_cert_errors"`
	ViewportWidth    int           `yaml:"viewport_width"`
	ViewportHeight   int           `yaml:"viewport_height"`
	DeviceScale      float64       `yaml:"device_scale"`
	LaunchTimeout    time.Duration `yaml:"launch_timeout"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":8080"

	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7

	cfg.RateLimiter.Interval = time.Minute

	cfg.Auth.ReloadInterval = time.Minute

	cfg.Browser.BundleDownload = true
	cfg.Browser.NoSandbox = true
	cfg.Browser.SingleProcess = true
	cfg.Browser.IgnoreCertErrors = true
	cfg.Browser.ViewportWidth = 1200
	cfg.Browser.ViewportHeight = 800
	cfg.Browser.DeviceScale = 1
	cfg.Browser.LaunchTimeout = 30 * time.Second

	cfg.Render.MaxConcurrent = 2
	cfg.Render.AcquireTimeout = 5 * time.Second
	cfg.Render.RequestTimeout = 3 * time.Minute
	cfg.Render.CaptureTimeout = 60 * time.Second
	cfg.Render.MaxPDFBytes = 50 * 1024 * 1024

	cfg.Policies.Robust = domain.RobustPolicy()
	cfg.Policies.Simple = domain.SimplePolicy()
	return cfg
}

// Load reads the file named by CONFIG_PATH, or config.yaml when unset. A
// missing default file yields Default(); an explicit path must exist.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat("config.yaml"); errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnv(&cfg)
			mustValidate(cfg)
			return cfg
		}
		path = "config.yaml"
	}
	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path over Default() and panics when the
// file is unreadable or the result is invalid.
func LoadFrom(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("config: read %s: %v", path, err))
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse %s: %v", path, err))
	}
	applyEnv(&cfg)
	mustValidate(cfg)
	return cfg
}

// Policy returns the named render policy.
func (c Config) Policy(name string) (domain.RenderPolicy, bool) {
	switch name {
	case "robust":
		return c.Policies.Robust, true
	case "simple":
		return c.Policies.Simple, true
	}
	return domain.RenderPolicy{}, false
}

func applyEnv(cfg *Config) {
	if cfg.Browser.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.Browser.ChromePath = v
		}
	}
	cfg.Policies.Robust.Name = "robust"
	cfg.Policies.Simple.Name = "simple"
}

func mustValidate(cfg Config) {
	if err := Validate(cfg); err != nil {
		panic("config: " + err.Error())
	}
}

// Validate reports the first invalid value in cfg.
func Validate(cfg Config) error {
	if cfg.RateLimiter.Interval <= 0 {
		return errors.New("rate_limiter.interval must be positive")
	}
	if cfg.RateLimiter.UserLimit < 0 {
		return errors.New("rate_limiter.user_limit must not be negative")
	}
	if cfg.Auth.Postgres.Host != "" && cfg.Auth.ReloadInterval <= 0 {
		return errors.New("auth.reload_interval must be positive")
	}
	if cfg.Browser.ViewportWidth <= 0 || cfg.Browser.ViewportHeight <= 0 {
		return errors.New("browser viewport must be positive")
	}
	if cfg.Browser.DeviceScale <= 0 {
		return errors.New("browser.device_scale must be positive")
	}
	if cfg.Browser.LaunchTimeout <= 0 {
		return errors.New("browser.launch_timeout must be positive")
	}
	if cfg.Render.MaxConcurrent <= 0 {
		return errors.New("render.max_concurrent must be positive")
	}
	if cfg.Render.AcquireTimeout <= 0 {
		return errors.New("render.acquire_timeout must be positive")
	}
	if cfg.Render.RequestTimeout <= 0 {
		return errors.New("render.request_timeout must be positive")
	}
	if cfg.Render.CaptureTimeout <= 0 {
		return errors.New("render.capture_timeout must be positive")
	}
	if cfg.Render.MaxPDFBytes <= 0 {
		return errors.New("render.max_pdf_bytes must be positive")
	}
	if err := cfg.Policies.Robust.Validate(); err != nil {
		return err
	}
	return cfg.Policies.Simple.Validate()
}
