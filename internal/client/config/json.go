package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/elnafo/internal/flagx"
	"github.com/dmitrijs2005/elnafo/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Timeout
// accepts "3s" style strings or integer nanoseconds.
type JsonConfig struct {
	ServerURL *string         `json:"server_url"`
	Timeout   *timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the JSON file named by -c or -config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.Timeout != nil {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
