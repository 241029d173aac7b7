package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/truenumber/truenumber-cli/internal/session"
)

// Config holds CLI configuration, sourced from the environment and
// overridable by flags.
type Config struct {
	ServerURL string `env:"TRUENUMBER_SERVER" envDefault:"http://localhost:3001"`
	Token     string `env:"TRUENUMBER_TOKEN"`
	TokenFile string `env:"TRUENUMBER_TOKEN_FILE"`
	Output    string `env:"TRUENUMBER_OUTPUT" envDefault:"text"`
	Verbose   bool   `env:"TRUENUMBER_VERBOSE"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = session.DefaultTokenPath()
	}
	return cfg, nil
}
