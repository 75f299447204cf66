// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server binary needs at startup.
type Config struct {
	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"8080"`

	// DBPath is the SQLite database file path.
	DBPath string `env:"DB_PATH" envDefault:"./data/roomie.db"`

	// JWTSecret is the signing secret shared with the external auth
	// service that issues member session tokens.
	JWTSecret string `env:"JWT_SECRET,required"`

	// TokenTTL bounds how long locally generated tokens stay valid.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
