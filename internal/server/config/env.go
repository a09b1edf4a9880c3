package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ELNAFO_"

// parseEnv overlays ELNAFO_* variables. When envFile names an existing
// file it is loaded first; variables already set in the process win.
//
// ELNAFO_DATABASE_DSN takes precedence over the split
// ELNAFO_DATABASE_{HOST,PORT,USER,PASSWORD,NAME} form.
func parseEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, bits int, dst func(int64)) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseInt(v, 10, bits)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			dst(n)
		}
	}
	unum := func(key string, bits int, dst func(uint64)) {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseUint(v, 10, bits)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			dst(n)
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("GRPC_ADDR", &config.GRPCAddr)
	if dsn, ok := databaseDSNFromParts(config.DatabaseDSN); ok {
		config.DatabaseDSN = dsn
	}
	str("DATABASE_DSN", &config.DatabaseDSN)
	num("DB_MAX_CONNS", 32, func(n int64) { config.DBMaxConns = int32(n) })
	str("SECRET_KEY", &config.SecretKey)
	if v, ok := lookup("TOKEN_LIFETIME"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTOKEN_LIFETIME: %w", envPrefix, err))
		} else {
			config.TokenLifetime = d
		}
	}
	str("LOG_LEVEL", &config.LogLevel)
	str("DATA_DIR", &config.DataDir)
	num("AVATAR_MAX_BYTES", 64, func(n int64) { config.AvatarMaxBytes = n })
	if v, ok := lookup("CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}
	unum("HASH_MEMORY_KIB", 32, func(n uint64) { config.HashMemoryKiB = uint32(n) })
	unum("HASH_ITERATIONS", 32, func(n uint64) { config.HashIterations = uint32(n) })
	unum("HASH_PARALLELISM", 8, func(n uint64) { config.HashParallelism = uint8(n) })
	num("HASH_CONCURRENCY", 64, func(n int64) { config.HashConcurrency = n })
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	return errors.Join(errs...)
}

func lookup(key string) (string, bool) {
	return os.LookupEnv(envPrefix + key)
}

// databaseDSNFromParts rebuilds a postgres URL when any of the split
// database variables is set, keeping unset parts from current.
func databaseDSNFromParts(current string) (string, bool) {
	host, hasHost := lookup("DATABASE_HOST")
	port, hasPort := lookup("DATABASE_PORT")
	user, hasUser := lookup("DATABASE_USER")
	password, hasPassword := lookup("DATABASE_PASSWORD")
	name, hasName := lookup("DATABASE_NAME")
	if !hasHost && !hasPort && !hasUser && !hasPassword && !hasName {
		return "", false
	}

	u, err := url.Parse(current)
	if err != nil {
		u = &url.URL{Scheme: "postgres"}
	}
	curHost, curPort, err := net.SplitHostPort(u.Host)
	if err != nil {
		curHost, curPort = u.Host, "5432"
	}
	if !hasHost {
		host = curHost
	}
	if !hasPort {
		port = curPort
	}
	u.Host = net.JoinHostPort(host, port)

	curUser := u.User.Username()
	curPassword, _ := u.User.Password()
	if !hasUser {
		user = curUser
	}
	if !hasPassword {
		password = curPassword
	}
	u.User = url.UserPassword(user, password)

	if hasName {
		u.Path = "/" + name
	}
	return u.String(), true
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
