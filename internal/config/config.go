// Package config loads TuneSwipe API configuration from the environment.
package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultFrontendURL = "http://localhost:5173"
)

// ErrMissingCredentials is returned when Spotify credentials are not configured.
var ErrMissingCredentials = errors.New("missing SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET environment variable")

// Config holds the application configuration.
type Config struct {
	Addr                string // listen address
	FrontendURL         string // origin the SPA is served from; OAuth redirect target
	BackendURL          string // public base URL of this API; /callback must match the Spotify app
	SpotifyClientID     string
	SpotifyClientSecret string
	DatabaseURL         string
	RedisAddr           string // optional; empty disables the Redis preview cache
	RedisPassword       string
	Env                 string // "development" or "production"
}

// Load reads configuration from a .env file (if present) and the environment.
// Returns ErrMissingCredentials when Spotify credentials are absent.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:                getenv("ADDR", DefaultAddr),
		FrontendURL:         getenv("FRONTEND_URL", DefaultFrontendURL),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		Env:                 getenv("APP_ENV", "development"),
	}
	cfg.BackendURL = getenv("BACKEND_URL", "http://"+cfg.Addr)

	if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("missing DATABASE_URL environment variable")
	}

	return cfg, nil
}

// RedirectURI is the OAuth callback URL registered with the Spotify app.
func (c *Config) RedirectURI() string {
	return c.BackendURL + "/callback"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
