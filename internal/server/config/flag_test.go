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
		initial     *Config
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-g", ":6000", "-d", "db", "-s", "secret",
				"-t", "60", "-v", "120", "-l", "debug",
			},
			initial: &Config{},
			expected: &Config{
				HTTPAddr:        "127.0.0.1:9090",
				GRPCAddr:        ":6000",
				DatabaseDSN:     "db",
				SecretKey:       "secret",
				TokenValidity:   time.Hour,
				SessionValidity: 2 * time.Hour,
				LogLevel:        "debug",
			},
		},
		{
			name:     "unknown flags are filtered out",
			args:     []string{"-x", "1", "-a", ":1"},
			initial:  &Config{TokenValidity: 90 * time.Second},
			expected: &Config{HTTPAddr: ":1", TokenValidity: 90 * time.Second},
		},
		{
			name:        "non-numeric minutes panic",
			args:        []string{"-t", "soon"},
			initial:     &Config{},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(tt.initial, tt.args) })
				return
			}

			require.NotPanics(t, func() { parseFlags(tt.initial, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, tt.initial))
		})
	}
}
