package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-g", "127.0.0.1:9091", "-d", "db", "-s", "secret",
				"-t", "15", "-l", "warn", "-f", "/tmp/data", "-b", "bucket", "-e", "http://endpoint",
				"-o", "http://a,http://b",
			},
			expected: &Config{
				HTTPAddr:       "127.0.0.1:9090",
				GRPCAddr:       "127.0.0.1:9091",
				DatabaseDSN:    "db",
				SecretKey:      "secret",
				TokenLifetime:  15 * time.Minute,
				LogLevel:       "warn",
				DataDir:        "/tmp/data",
				S3Bucket:       "bucket",
				S3BaseEndpoint: "http://endpoint",
				CORSOrigins:    []string{"http://a", "http://b"},
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-x", "1", "-s", "k"},
			expected: &Config{SecretKey: "k", TokenLifetime: 90 * time.Second},
		},
		{
			name:    "bad minutes",
			args:    []string{"-t", "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{TokenLifetime: 90 * time.Second}

			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
