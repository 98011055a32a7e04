package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synapse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := (&Loader{Lookup: env(nil)}).Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestMissingFileIsIgnored(t *testing.T) {
	cfg, err := (&Loader{Lookup: env(nil)}).Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "echo", cfg.Server.Adapter)
}

func TestFileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  adapter: gin
  port: 9000
  prefix: /api
  cors_origins: [https://a.example]
metrics:
  enabled: true
`)

	cfg, err := (&Loader{Lookup: env(map[string]string{
		"SYNAPSE_PORT":             "9100",
		"SYNAPSE_TRACING_ENABLED":  "true",
		"SYNAPSE_SHUTDOWN_TIMEOUT": "3s",
		"SYNAPSE_CORS_ORIGINS":     "https://b.example, https://c.example",
	})}).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gin", cfg.Server.Adapter)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.Prefix)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
		want string
	}{
		{name: "unknown adapter", env: map[string]string{"SYNAPSE_ADAPTER": "iris"}, want: "Adapter"},
		{name: "port range", file: "server:\n  port: 70000\n", want: "Port"},
		{name: "bad port env", env: map[string]string{"SYNAPSE_PORT": "http"}, want: "SYNAPSE_PORT"},
		{name: "bad bool", env: map[string]string{"SYNAPSE_METRICS_ENABLED": "maybe"}, want: "SYNAPSE_METRICS_ENABLED"},
		{name: "bad yaml", file: "server: [", want: "failed to parse"},
		{name: "log level", env: map[string]string{"SYNAPSE_LOG_LEVEL": "loud"}, want: "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := (&Loader{Lookup: env(tt.env)}).Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	cfg.Log.Development = true

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))
}

func TestReadSkipsValidation(t *testing.T) {
	path := writeFile(t, "server:\n  adapter: iris\n")
	l := &Loader{Lookup: env(nil)}

	cfg, err := l.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "iris", cfg.Server.Adapter)
	assert.Error(t, cfg.Validate())

	cfg.Server.Adapter = "chi"
	assert.NoError(t, cfg.Validate())
}
