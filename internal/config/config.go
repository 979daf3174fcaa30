// Package config loads the server configuration from the environment.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docudrive/document-layer/internal/app/vault"
)

// Config holds every runtime setting of the document layer server.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string
	// DatabaseURL selects PostgreSQL; empty runs on the in-memory store.
	DatabaseURL string

	// MasterKey is the decoded 32-byte credential encryption key.
	MasterKey []byte
	// JWTSecret signs session tokens.
	JWTSecret []byte
	// JWTTTL bounds session lifetime.
	JWTTTL time.Duration

	SuperadminEmail    string
	SuperadminPassword string

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string
	// LogLevel is a logrus level name.
	LogLevel string

	// RateLimitPerSecond and RateLimitBurst throttle requests per client.
	RateLimitPerSecond int
	RateLimitBurst     int
}

// Load reads configuration from environment variables and validates the
// secrets. ENCRYPTION_KEY must be standard base64 decoding to exactly 32
// bytes; JWT_EXPIRE is in minutes.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:  envOr("LISTEN_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTTTL:      24 * time.Hour,

		SuperadminEmail:    os.Getenv("SUPERADMIN_EMAIL"),
		SuperadminPassword: os.Getenv("SUPERADMIN_PASSWORD"),
		LogLevel:           envOr("LOG_LEVEL", "info"),

		RateLimitPerSecond: 50,
		RateLimitBurst:     100,
	}

	encoded := os.Getenv("ENCRYPTION_KEY")
	if encoded == "" {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != vault.KeySize {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY must decode to %d bytes, got %d", vault.KeySize, len(key))
	}
	cfg.MasterKey = key

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTSecret = []byte(secret)

	if v := os.Getenv("JWT_EXPIRE"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("JWT_EXPIRE must be a positive number of minutes, got %q", v)
		}
		cfg.JWTTTL = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.Atoi(v)
		if err != nil || rps <= 0 {
			return Config{}, fmt.Errorf("RATE_LIMIT_RPS must be a positive number, got %q", v)
		}
		cfg.RateLimitPerSecond = rps
		cfg.RateLimitBurst = rps * 2
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
