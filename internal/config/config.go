// Package config loads client configuration from the environment.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds everything the CLI needs to reach the backend and keep state.
type Config struct {
	// BaseURL is the backend origin; the client appends the /api prefix.
	BaseURL string `env:"CRM_BASE_URL, default=http://localhost:3000"`

	// Timeout bounds every request; commands derive their context from it.
	Timeout time.Duration `env:"CRM_TIMEOUT,  default=30s"`

	// StateDir overrides the default session storage directory
	// ($XDG_CONFIG_HOME/crmctl).
	StateDir string `env:"CRM_STATE_DIR"`

	LogLevel string `env:"CRM_LOG_LEVEL, default=info"`
}

// Load processes the environment into a Config.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
