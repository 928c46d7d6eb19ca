package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
server:
  host: "127.0.0.1"
  port: 9000
  mode: "test"
hub:
  bind_addr: "tcp://127.0.0.1:5555"
database:
  mongo:
    uri: "mongodb://localhost:27017"
    database: "neohub_test"
log:
  level: "debug"
  format: "json"
  output: "stdout"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, minimalConfig)

	cfg, err := LoadConfig(dir, "development")
	require.NoError(t, err)

	// 1. Explicit values are read
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "tcp://127.0.0.1:5555", cfg.Hub.BindAddr)
	assert.Equal(t, "neohub_test", cfg.Database.Mongo.Database)

	// 2. Omitted values fall back to defaults
	assert.Equal(t, 500*time.Millisecond, cfg.Hub.TailPollInterval)
	assert.Equal(t, 100, cfg.Hub.LogQueryLimit)
	assert.Equal(t, "clients", cfg.Database.Mongo.ClientsCollection)
	assert.Equal(t, "task_results", cfg.Database.Mongo.ResultsCollection)
	assert.Equal(t, 5*time.Second, cfg.Database.Mongo.OperationTimeout)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  string
		wantErr string
	}{
		{
			name: "bad bind addr scheme",
			mutate: `
server:
  port: 9000
  mode: "test"
hub:
  bind_addr: "http://127.0.0.1:5555"
database:
  mongo:
    uri: "mongodb://localhost:27017"
    database: "neohub_test"
log:
  level: "debug"
  format: "json"
`,
			wantErr: "bind_addr",
		},
		{
			name: "missing mongo uri",
			mutate: `
server:
  port: 9000
  mode: "test"
hub:
  bind_addr: "tcp://127.0.0.1:5555"
database:
  mongo:
    database: "neohub_test"
log:
  level: "debug"
  format: "json"
`,
			wantErr: "mongo uri",
		},
		{
			name: "bad log level",
			mutate: `
server:
  port: 9000
  mode: "test"
hub:
  bind_addr: "tcp://127.0.0.1:5555"
database:
  mongo:
    uri: "mongodb://localhost:27017"
    database: "neohub_test"
log:
  level: "verbose"
  format: "json"
`,
			wantErr: "log level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeConfig(t, tc.mutate)
			_, err := LoadConfig(dir, "development")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir(), "development")
	assert.Error(t, err)
}
