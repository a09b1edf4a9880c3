package config

import (
	"flag"
	"io"
)

// parseFlags applies the global flags that precede the command:
//
//	-a string   server base URL
//	-t string   session token
//	-c, -config path to a JSON config file (read by parseJson)
//
// It returns the remaining arguments.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("elnafo-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.Token, "t", cfg.Token, "session token")
	fs.String("c", "", "path to JSON config file")
	fs.String("config", "", "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
