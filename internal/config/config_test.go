package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_OVERVIEW_REDIS", "redis://localhost:6379/2")

	testCases := []struct {
		name        string
		content     string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:    "defaults",
			content: "{}\n",
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, ":8080", cfg.Listen)
				require.Equal(t, LogLevelInfo, cfg.LogLevel)
				require.Equal(t, BackendFile, cfg.StoreConfig.Backend)
				require.Equal(t, "overview.yml", cfg.StoreConfig.Path)
				require.Equal(t, 4, cfg.CycleConfig.Workers)
				require.Equal(t, "UTC", cfg.CycleConfig.Timezone)

				d, err := cfg.HarvestFromDate()
				require.NoError(t, err)
				require.Nil(t, d)
			},
		},
		{
			name: "redis from env",
			content: `listen: ":9090"
log_level: debug
store:
  backend: redis
  redis_url: ${TEST_OVERVIEW_REDIS}
  key: harvest
cycle:
  workers: 8
  timezone: Europe/Amsterdam
  harvest_from_date: 2026-01-01
  endpoints_file: /etc/harvest/endpoints.txt
  command: ["/usr/bin/harvest", "--quiet"]
`,
			check: func(t *testing.T, cfg *Config) {
				require.Equal(t, ":9090", cfg.Listen)
				require.Equal(t, "redis://localhost:6379/2", cfg.StoreConfig.RedisURL)
				require.Equal(t, "harvest", cfg.StoreConfig.Key)
				require.Equal(t, 8, cfg.CycleConfig.Workers)
				require.Equal(t, []string{"/usr/bin/harvest", "--quiet"}, cfg.CycleConfig.Command)

				d, err := cfg.HarvestFromDate()
				require.NoError(t, err)
				require.Equal(t, "2026-01-01", d.String())
			},
		},
		{
			name:        "unknown field",
			content:     "listen: \":8080\"\ncolour: red\n",
			expectError: true,
		},
		{
			name:        "unknown log level",
			content:     "log_level: chatty\n",
			expectError: true,
		},
		{
			name:        "unknown backend",
			content:     "store:\n  backend: sqlite\n",
			expectError: true,
		},
		{
			name:        "redis without url",
			content:     "store:\n  backend: redis\n",
			expectError: true,
		},
		{
			name:    "harvest from month",
			content: "cycle:\n  harvest_from_date: 2026-03\n",
			check: func(t *testing.T, cfg *Config) {
				d, err := cfg.HarvestFromDate()
				require.NoError(t, err)
				require.Equal(t, "2026-03-01", d.String())
			},
		},
		{
			name:    "harvest from year",
			content: "cycle:\n  harvest_from_date: \"2025\"\n",
			check: func(t *testing.T, cfg *Config) {
				d, err := cfg.HarvestFromDate()
				require.NoError(t, err)
				require.Equal(t, "2025-01-01", d.String())
			},
		},
		{
			name:        "bad harvest from date",
			content:     "cycle:\n  harvest_from_date: soon\n",
			expectError: true,
		},
		{
			name:        "no workers",
			content:     "cycle:\n  workers: 0\n",
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tc.content))
			if tc.expectError {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestMustLoadPanics(t *testing.T) {
	require.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
	})
}
