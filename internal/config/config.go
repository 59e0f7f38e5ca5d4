// Package config loads environment-based configuration for seven-mcp.
package config

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for seven-mcp.
type Config struct {
	// Static API key for the seven.io gateway. Optional when OAuth is
	// configured; at least one auth method must resolve per request.
	APIKey string `env:"SEVEN_API_KEY"`

	// OAuth client ID registered with oauth.seven.io. The public CLI
	// client ships with a fixed ID.
	ClientID string `env:"SEVEN_CLIENT_ID" envDefault:"seven-mcp"`

	// Scopes requested during login. Empty means the server default.
	OAuthScope string `env:"SEVEN_OAUTH_SCOPE" envDefault:"analytics balance contacts groups hooks journal lookup numbers pricing rcs sms status subaccounts validate_for_voice voice"`

	// Base URL of the seven.io REST gateway.
	BaseURL string `env:"SEVEN_BASE_URL" envDefault:"https://gateway.seven.io/api"`

	// NoKeychain disables the OS keychain and stores tokens in a local
	// bbolt file instead. Useful on headless systems without a secret
	// service.
	NoKeychain bool `env:"SEVEN_NO_KEYCHAIN" envDefault:"false"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the API key to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// HasAuthMethod reports whether at least one authentication method is
// configured. Tokens may still be absent; this only checks static
// configuration, not keychain state.
func (c *Config) HasAuthMethod() bool {
	return c.APIKey != "" || c.ClientID != ""
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
