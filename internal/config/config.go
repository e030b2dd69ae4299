// Package config loads service configuration from SKYWINDOW_* environment
// variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Prefix is prepended to every variable name.
const Prefix = "SKYWINDOW_"

// Config holds all configuration for the report service.
type Config struct {
	// Server
	HTTPAddr   string `env:"HTTP_ADDR,default=:8080"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`
	TrustProxy bool   `env:"TRUST_PROXY,default=false"`

	AuthEnabled bool   `env:"AUTH_ENABLED,default=false"`
	AuthToken   string `env:"AUTH_TOKEN"`

	// Catalogue
	CatalogPath       string `env:"CATALOG_PATH,default=./catalog.toml"`
	LightPollutionURL string `env:"LIGHTPOLLUTION_URL"`
	DefaultBortle     int    `env:"DEFAULT_BORTLE,default=4"`

	// Report generation
	Workers     int           `env:"WORKERS,default=0"`
	SiteTimeout time.Duration `env:"SITE_TIMEOUT,default=30s"`
	RunInterval time.Duration `env:"RUN_INTERVAL,default=24h"`
	ReportDir   string        `env:"REPORT_DIR,default=./reports"`
	ReportKeep  int           `env:"REPORT_KEEP,default=5"`

	// Forecasts
	OWMAPIKey        string        `env:"OWM_API_KEY"`
	OWMURL           string        `env:"OWM_URL,default=https://api.openweathermap.org/data/3.0/onecall"`
	OWMRPS           float64       `env:"OWM_RPS,default=1"`
	ForecastCacheTTL time.Duration `env:"FORECAST_CACHE_TTL,default=30m"`

	// Static maps
	MapURL    string `env:"MAP_URL"`
	MapAPIKey string `env:"MAP_API_KEY"`

	// Mail
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l, applying the SKYWINDOW_ prefix,
// and validates the result.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, l),
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects impossible combinations.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%sWORKERS must be >= 0 (0 means one per CPU), got %d", Prefix, c.Workers))
	}
	if c.SiteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%sSITE_TIMEOUT must be positive", Prefix))
	}
	if c.RunInterval < time.Minute {
		errs = append(errs, fmt.Errorf("%sRUN_INTERVAL must be at least 1m, got %s", Prefix, c.RunInterval))
	}
	if c.ReportKeep < 1 {
		errs = append(errs, fmt.Errorf("%sREPORT_KEEP must be >= 1, got %d", Prefix, c.ReportKeep))
	}
	if c.DefaultBortle < 1 || c.DefaultBortle > 8 {
		errs = append(errs, fmt.Errorf("%sDEFAULT_BORTLE must be within [1,8], got %d", Prefix, c.DefaultBortle))
	}
	if c.OWMRPS <= 0 {
		errs = append(errs, fmt.Errorf("%sOWM_RPS must be positive", Prefix))
	}
	if c.ForecastCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("%sFORECAST_CACHE_TTL must not be negative", Prefix))
	}
	if c.AuthEnabled && c.AuthToken == "" {
		errs = append(errs, fmt.Errorf("%sAUTH_TOKEN is required when auth is enabled", Prefix))
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		errs = append(errs, fmt.Errorf("%sSMTP_FROM is required when SMTP_HOST is set", Prefix))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%sLOG_LEVEL %q is not one of debug, info, warn, error", Prefix, c.LogLevel)
}

// MailEnabled reports whether reports should be mailed rather than logged.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}
