package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variables honoured for compatibility with existing deployments.
const (
	EnvSupportedVersions         = "HELM_SUPPORTED_VERSIONS"
	EnvLogLevel                  = "LOG_LEVEL"
	envPrefix                    = "HELMVALIDATOR"
	envPrefixedSupportedVersions = envPrefix + "_HELM_SUPPORTED_VERSIONS"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Helm    HelmConfig    `mapstructure:"helm"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Janitor JanitorConfig `mapstructure:"janitor"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HelmConfig describes the installed helm binaries and how they are invoked.
type HelmConfig struct {
	// SupportedVersions is a comma-separated list of installed versions.
	// HELM_SUPPORTED_VERSIONS overrides it and is re-read on every query.
	SupportedVersions string `mapstructure:"supported_versions"`

	// BinaryPrefix names the binaries, "<prefix>-v<version>".
	BinaryPrefix string `mapstructure:"binary_prefix"`

	// Shell runs the helm command lines.
	Shell string `mapstructure:"shell"`

	// ChartsBasePath holds uploaded archives while they are validated.
	ChartsBasePath string `mapstructure:"charts_base_path"`

	// Timeout bounds one helm invocation. Zero means unbounded.
	Timeout time.Duration `mapstructure:"timeout"`
}

// LimitsConfig holds request limits.
type LimitsConfig struct {
	Rate           float64 `mapstructure:"rate"` // requests per second, 0 disables
	Burst          int     `mapstructure:"burst"`
	MaxConcurrent  int64   `mapstructure:"max_concurrent"`
	MaxUploadBytes int64   `mapstructure:"max_upload_bytes"`
}

// JanitorConfig holds scratch janitor configuration.
type JanitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// SharedSecretHash is the bcrypt hash of the X-Validator-Secret value.
	// If empty, secret validation is skipped.
	SharedSecretHash string `mapstructure:"shared_secret_hash"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s") // helm template can be slow
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("helm.supported_versions", "")
	v.SetDefault("helm.binary_prefix", "helm")
	v.SetDefault("helm.shell", "/bin/bash")
	v.SetDefault("helm.charts_base_path", "/tmp/charts")
	v.SetDefault("helm.timeout", "0s")
	v.SetDefault("limits.rate", 10)
	v.SetDefault("limits.burst", 20)
	v.SetDefault("limits.max_concurrent", 4)
	v.SetDefault("limits.max_upload_bytes", 10<<20)
	v.SetDefault("janitor.interval", "10m")
	v.SetDefault("janitor.max_age", "1h")
	v.SetDefault("auth.shared_secret_hash", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names win only when the prefixed one is absent.
	if err := v.BindEnv("helm.supported_versions", envPrefixedSupportedVersions, EnvSupportedVersions); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}
	if err := v.BindEnv("log.level", envPrefix+"_LOG_LEVEL", EnvLogLevel); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Version Source
// =============================================================================

// envVersionSource reads the installed versions from the environment on every
// call, falling back to the value loaded at startup.
type envVersionSource struct {
	fallback string
}

// SupportedVersions implements versions.Source.
func (s envVersionSource) SupportedVersions() string {
	for _, name := range []string{envPrefixedSupportedVersions, EnvSupportedVersions} {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
	}
	return s.fallback
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
