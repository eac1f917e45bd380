// Package config loads server configuration from the environment.
//
// Every setting is an env var with a sane default, except JWT_SECRET which is
// required — the server refuses to start without a signing key rather than
// issuing tokens anyone can forge. A .env file in the working directory is
// loaded first (godotenv), which keeps local development out of shell rc files.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config mirrors the server's environment variables.
type Config struct {
	Port        int           `envconfig:"PORT" default:"8080"`
	DBPath      string        `envconfig:"DB_PATH" default:"data/healthwallet.db"`
	UploadDir   string        `envconfig:"UPLOAD_DIR" default:"data/uploads"`
	JWTSecret   string        `envconfig:"JWT_SECRET"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
	MaxUploadMB int64         `envconfig:"MAX_UPLOAD_MB" default:"10"`
	BcryptCost  int           `envconfig:"BCRYPT_COST" default:"12"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present), processes the environment, and validates.
func Load() (Config, error) {
	// Missing .env is fine — env vars may be set directly.
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: processing environment: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("PORT is invalid")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.UploadDir == "" {
		return errors.New("UPLOAD_DIR is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.MaxUploadMB < 1 || c.MaxUploadMB > 1024 {
		return errors.New("MAX_UPLOAD_MB is invalid")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("BCRYPT_COST is outside bcrypt's allowed range")
	}
	return nil
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
