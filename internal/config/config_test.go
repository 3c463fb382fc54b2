package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: s3cret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Alerts.ConfirmThreshold)
	assert.Equal(t, 0, cfg.Alerts.FakeThreshold)
	require.NotNil(t, cfg.Alerts.AllowResolvePending)
	assert.True(t, *cfg.Alerts.AllowResolvePending)
	assert.Equal(t, 16, cfg.WebSocket.SendBuffer)
	assert.Equal(t, 10*time.Second, cfg.WebSocket.WriteTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadParsesPolicyAndDurations(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: s3cret
alerts:
  confirm_threshold: 5
  fake_threshold: 4
  allow_resolve_pending: false
websocket:
  write_timeout: 3s
accounts:
  admin_phones: ["+261340000000"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Alerts.ConfirmThreshold)
	assert.Equal(t, 4, cfg.Alerts.FakeThreshold)
	assert.False(t, *cfg.Alerts.AllowResolvePending)
	assert.Equal(t, 3*time.Second, cfg.WebSocket.WriteTimeout)
	assert.Equal(t, []string{"+261340000000"}, cfg.Accounts.AdminPhones)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: memory
jwt:
  secret: from-file
`)
	t.Setenv("GASY_JWT_SECRET", "from-env")
	t.Setenv("GASY_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("GASY_JWT_SECRET", "env-only")
	t.Setenv("GASY_DB_DRIVER", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "database:\n  driver: memory\n"},
		{"postgres without host", "jwt:\n  secret: x\n"},
		{"unknown driver", "jwt:\n  secret: x\ndatabase:\n  driver: oracle\n"},
		{"negative fake threshold", "jwt:\n  secret: x\ndatabase:\n  driver: memory\nalerts:\n  fake_threshold: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "localhost", Port: 5432, User: "gasy", Password: "pw", DBName: "gasyhub", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=gasy password=pw dbname=gasyhub sslmode=disable", db.DSN())
}
