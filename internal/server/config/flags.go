package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/elnafo/internal/flagx"
)

// parseFlags overlays values from the short flags below. Arguments for
// other passes (such as -c) are filtered out first.
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address
//	-d string   PostgreSQL DSN
//	-s string   token signing secret
//	-t int      token lifetime, minutes
//	-l string   log level
//	-f string   data directory for local avatar storage
//	-b string   S3 bucket (enables S3 avatar storage)
//	-e string   S3 base endpoint
//	-o list     allowed CORS origins, comma separated
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-l", "-f", "-b", "-e", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	lifetime := fs.Int("t", int(config.TokenLifetime.Minutes()), "token lifetime (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "data directory")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	origins := flagx.StringList(config.CORSOrigins)
	fs.Var(&origins, "o", "allowed CORS origins")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.TokenLifetime = time.Duration(*lifetime) * time.Minute
		case "o":
			config.CORSOrigins = origins
		}
	})
	return nil
}
