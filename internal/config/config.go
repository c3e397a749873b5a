package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// OAuthProvider holds one provider's client credentials. A provider is
// enabled when both fields are set.
type OAuthProvider struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// reports whether the provider has usable credentials
func (p OAuthProvider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT"        envDefault:"8080"`
	BaseURL     string `env:"BASE_URL"    envDefault:"http://localhost:8080"`

	// DatabaseURL is optional: when empty the backend adapter starts
	// latched to the local fallback credential store.
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL is optional: when empty rate limiting uses an in-memory store.
	RedisURL string `env:"REDIS_URL"`

	JWTSecret     string `env:"JWT_SECRET"`
	SessionSecret string `env:"SESSION_SECRET"`

	// FallbackDir is where the fallback credential store persists records.
	FallbackDir string `env:"FALLBACK_DIR" envDefault:".nexus-auth"`

	// rate limit applied to credential-sensitive auth endpoints ("20-M" = 20/minute)
	AuthRateLimit string `env:"AUTH_RATE_LIMIT" envDefault:"20-M"`

	GeoIPBaseURL string `env:"GEOIP_BASE_URL" envDefault:"https://ipapi.co"`

	Google   OAuthProvider `envPrefix:"GOOGLE_"`
	Facebook OAuthProvider `envPrefix:"FACEBOOK_"`
	GitHub   OAuthProvider `envPrefix:"GITHUB_"`
	Apple    OAuthProvider `envPrefix:"APPLE_"`
}

// loads configuration from the environment, reading .env first when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	return cfg, nil
}

// reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
