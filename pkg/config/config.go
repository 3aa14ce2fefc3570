package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. PGCOMPAT_DSN.
const EnvPrefix = "PGCOMPAT"

// Config holds runtime settings for the translator, executor and admin server.
type Config struct {
	Driver     string
	DSN        string
	ListenAddr string

	MaxAttempts          int
	MaxRewriteIterations int
	IterationLimitPolicy IterationLimitPolicy

	ExcerptLen    int
	PreviewBefore int
	PreviewAfter  int
	MaxPositions  int

	DiagnosticTTL      time.Duration
	PersistDiagnostics bool

	LogLevel  string
	LogFormat string
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		Driver:               DefaultDriver,
		ListenAddr:           DefaultListenAddr,
		MaxAttempts:          DefaultMaxAttempts,
		MaxRewriteIterations: DefaultMaxRewriteIterations,
		IterationLimitPolicy: PolicyPartial,
		ExcerptLen:           DefaultExcerptLen,
		PreviewBefore:        DefaultPreviewBefore,
		PreviewAfter:         DefaultPreviewAfter,
		MaxPositions:         DefaultMaxPositions,
		DiagnosticTTL:        DefaultDiagnosticTTL,
		LogLevel:             DefaultLogLevel,
		LogFormat:            DefaultLogFormat,
	}
}

// Load reads configuration from .env files, an optional .pgcompat.yaml and
// PGCOMPAT_* environment variables, in increasing order of priority.
// configFile overrides the search path when non-empty.
func Load(configFile string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".pgcompat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("driver", def.Driver)
	v.SetDefault("dsn", def.DSN)
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("max_attempts", def.MaxAttempts)
	v.SetDefault("max_rewrite_iterations", def.MaxRewriteIterations)
	v.SetDefault("iteration_limit_policy", string(def.IterationLimitPolicy))
	v.SetDefault("excerpt_len", def.ExcerptLen)
	v.SetDefault("preview_before", def.PreviewBefore)
	v.SetDefault("preview_after", def.PreviewAfter)
	v.SetDefault("max_positions", def.MaxPositions)
	v.SetDefault("diagnostic_ttl", def.DiagnosticTTL)
	v.SetDefault("persist_diagnostics", def.PersistDiagnostics)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Driver:               v.GetString("driver"),
		DSN:                  v.GetString("dsn"),
		ListenAddr:           v.GetString("listen_addr"),
		MaxAttempts:          v.GetInt("max_attempts"),
		MaxRewriteIterations: v.GetInt("max_rewrite_iterations"),
		IterationLimitPolicy: IterationLimitPolicy(strings.ToLower(v.GetString("iteration_limit_policy"))),
		ExcerptLen:           v.GetInt("excerpt_len"),
		PreviewBefore:        v.GetInt("preview_before"),
		PreviewAfter:         v.GetInt("preview_after"),
		MaxPositions:         v.GetInt("max_positions"),
		DiagnosticTTL:        v.GetDuration("diagnostic_ttl"),
		PersistDiagnostics:   v.GetBool("persist_diagnostics"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.MaxRewriteIterations < 1 {
		return fmt.Errorf("max_rewrite_iterations must be at least 1, got %d", c.MaxRewriteIterations)
	}
	if !c.IterationLimitPolicy.Valid() {
		return fmt.Errorf("unknown iteration_limit_policy %q", c.IterationLimitPolicy)
	}
	if c.ExcerptLen < 0 || c.PreviewBefore < 0 || c.PreviewAfter < 0 || c.MaxPositions < 0 {
		return fmt.Errorf("preview sizes must not be negative")
	}
	if c.DiagnosticTTL <= 0 {
		return fmt.Errorf("diagnostic_ttl must be positive, got %s", c.DiagnosticTTL)
	}
	return nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
