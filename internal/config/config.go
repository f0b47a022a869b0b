// Package config loads server settings from the environment.
//
// PRECEDENCE (highest first):
//
//	command-line flag (bound by cmd/server) → OS environment → .env.local → .env → default
//
// godotenv never overrides a variable that is already set, so loading
// .env.local before .env is what lets local overrides win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sakif/game-library/internal/media"
)

// Environment keys.
const (
	KeyPort               = "PORT"
	KeyDBPath             = "DB_PATH"
	KeyLogLevel           = "LOG_LEVEL"
	KeyJWTSecret          = "JWT_SECRET"
	KeyGitHubClientID     = "GITHUB_CLIENT_ID"
	KeyGitHubClientSecret = "GITHUB_CLIENT_SECRET"
	KeyGitHubCallbackURL  = "GITHUB_CALLBACK_URL"
	KeyS3Endpoint         = "S3_ENDPOINT"
	KeyS3Region           = "S3_REGION"
	KeyS3Bucket           = "S3_BUCKET"
	KeyS3AccessKey        = "S3_ACCESS_KEY"
	KeyS3SecretKey        = "S3_SECRET_KEY"
	KeyMediaPublicURL     = "MEDIA_PUBLIC_URL"
	KeyMediaMaxBytes      = "MEDIA_MAX_BYTES"
)

const (
	defaultPort          = 8080
	defaultDBPath        = "data/gamelibrary.db"
	defaultLogLevel      = "info"
	defaultS3Region      = "us-east-1"
	defaultMediaMaxBytes = 50 << 20 // 50 MiB
)

// Config holds everything cmd/server needs to wire the application.
type Config struct {
	Port     int
	DBPath   string
	LogLevel slog.Level

	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	Media         media.Config
	MediaMaxBytes int64
}

// LoadDotEnv loads .env.local and .env from the working directory when
// they exist. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// NewViper returns a viper instance reading the environment with every
// default registered. Callers may bind flags onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeyPort, defaultPort)
	v.SetDefault(KeyDBPath, defaultDBPath)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyS3Region, defaultS3Region)
	v.SetDefault(KeyMediaMaxBytes, defaultMediaMaxBytes)
	return v
}

// Load reads a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyLogLevel, err)
	}

	cfg := &Config{
		Port:     v.GetInt(KeyPort),
		DBPath:   v.GetString(KeyDBPath),
		LogLevel: level,

		JWTSecret:          v.GetString(KeyJWTSecret),
		GitHubClientID:     v.GetString(KeyGitHubClientID),
		GitHubClientSecret: v.GetString(KeyGitHubClientSecret),
		GitHubCallbackURL:  v.GetString(KeyGitHubCallbackURL),

		Media: media.Config{
			Endpoint:  v.GetString(KeyS3Endpoint),
			Region:    v.GetString(KeyS3Region),
			Bucket:    v.GetString(KeyS3Bucket),
			AccessKey: v.GetString(KeyS3AccessKey),
			SecretKey: v.GetString(KeyS3SecretKey),
			PublicURL: v.GetString(KeyMediaPublicURL),
		},
		MediaMaxBytes: v.GetInt64(KeyMediaMaxBytes),
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", KeyPort, c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", KeyDBPath))
	}
	if c.Media.Endpoint != "" && c.Media.Bucket == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", KeyS3Bucket, KeyS3Endpoint))
	}
	if c.MediaMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyMediaMaxBytes))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// MediaEnabled reports whether a media bucket is configured.
func (c *Config) MediaEnabled() bool {
	return c.Media.Bucket != ""
}
