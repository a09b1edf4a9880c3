// Package config holds runtime settings for the Elnafo CLI. Values are
// layered: defaults, an optional JSON file (-c/-config), ELNAFO_* variables
// and finally flags.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the CLI.
type Config struct {
	// ServerURL is the base URL of the HTTP API, without the /api suffix.
	ServerURL string
	// Token is the session token sent as a bearer header.
	Token   string
	Timeout time.Duration
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:54600"
	c.Timeout = 10 * time.Second
}

// LoadConfig builds a Config from args and the environment and returns the
// positional arguments left after the flags (the command and its operands).
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, nil, fmt.Errorf("json config: %w", err)
	}
	parseEnv(cfg)

	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

func parseEnv(cfg *Config) {
	if v, ok := os.LookupEnv("ELNAFO_SERVER_URL"); ok {
		cfg.ServerURL = v
	}
	if v, ok := os.LookupEnv("ELNAFO_TOKEN"); ok {
		cfg.Token = v
	}
}
