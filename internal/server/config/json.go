package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/elnafo/internal/flagx"
	"github.com/dmitrijs2005/elnafo/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Every field is
// optional; only fields present in the file override the current value.
// Durations accept "1h" style strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr        *string         `json:"http_addr"`
	GRPCAddr        *string         `json:"grpc_addr"`
	DatabaseDSN     *string         `json:"database_dsn"`
	DBMaxConns      *int32          `json:"db_max_conns"`
	SecretKey       *string         `json:"secret_key"`
	TokenLifetime   *timex.Duration `json:"token_lifetime"`
	LogLevel        *string         `json:"log_level"`
	DataDir         *string         `json:"data_dir"`
	AvatarMaxBytes  *int64          `json:"avatar_max_bytes"`
	CORSOrigins     []string        `json:"cors_origins"`
	HashMemoryKiB   *uint32         `json:"hash_memory_kib"`
	HashIterations  *uint32         `json:"hash_iterations"`
	HashParallelism *uint8          `json:"hash_parallelism"`
	HashConcurrency *int64          `json:"hash_concurrency"`
	S3RootUser      *string         `json:"s3_root_user"`
	S3RootPassword  *string         `json:"s3_root_password"`
	S3Bucket        *string         `json:"s3_bucket"`
	S3Region        *string         `json:"s3_region"`
	S3BaseEndpoint  *string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file given with -c/-config.
// No flag means nothing to load.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	set(&config.HTTPAddr, c.HTTPAddr)
	set(&config.GRPCAddr, c.GRPCAddr)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.DBMaxConns, c.DBMaxConns)
	set(&config.SecretKey, c.SecretKey)
	if c.TokenLifetime != nil {
		config.TokenLifetime = c.TokenLifetime.Duration
	}
	set(&config.LogLevel, c.LogLevel)
	set(&config.DataDir, c.DataDir)
	set(&config.AvatarMaxBytes, c.AvatarMaxBytes)
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	set(&config.HashMemoryKiB, c.HashMemoryKiB)
	set(&config.HashIterations, c.HashIterations)
	set(&config.HashParallelism, c.HashParallelism)
	set(&config.HashConcurrency, c.HashConcurrency)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
