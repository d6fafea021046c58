package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:8000", "-g", "127.0.0.1:50051", "-m", "127.0.0.1:9100",
			"-d", "db", "-r", "redis:6379", "-s", "secret", "-t", "15",
			"-e", "http://eimzo:8080", "-f", "https://example.uz", "-l", "debug",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrHTTP:        "127.0.0.1:8000",
				EndpointAddrGRPC:        "127.0.0.1:50051",
				MetricsAddr:             "127.0.0.1:9100",
				DatabaseDSN:             "db",
				RedisAddr:               "redis:6379",
				SecretKey:               "secret",
				SessionValidityDuration: 15 * time.Minute,
				EimzoServerURL:          "http://eimzo:8080",
				EimzoFrontendURL:        "https://example.uz",
				LogLevel:                "debug",
			}},
		{name: "unknown flags are filtered", args: []string{"cmd", "-x", "1", "-config", "cfg.json", "-a", ":1"},
			expectPanic: false,
			expected:    &Config{EndpointAddrHTTP: ":1"}},
		{name: "bad minutes", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestParseFlags_KeepsSessionValidityWithoutT(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd", "-a", ":8001"}
	config := &Config{SessionValidityDuration: 90 * time.Second}
	parseFlags(config)
	assert.Equal(t, 90*time.Second, config.SessionValidityDuration)

	os.Args = []string{"cmd", "-t", "3"}
	parseFlags(config)
	assert.Equal(t, 3*time.Minute, config.SessionValidityDuration)
}
