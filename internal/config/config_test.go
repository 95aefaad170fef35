package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-secret"

func TestLoad_DefaultsAndEnvironment(t *testing.T) {
	t.Setenv("ONECLICK_AUTH_JWT_SECRET", testSecret)
	t.Setenv("ONECLICK_AUTH_ADMIN_EMAILS", "Owner@Example.com, ops@example.com")
	t.Setenv("ONECLICK_BUILD_POLL_INTERVAL", "5s")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Build.PollInterval)
	assert.Equal(t, 90, cfg.Build.MaxPollAttempts)
	assert.Equal(t, 20*time.Minute, cfg.Build.MaxPollDuration)
	assert.Equal(t, 15, cfg.Generator.HistoryTurns)
	assert.Equal(t, []string{"owner@example.com", "ops@example.com"}, cfg.Auth.AdminEmails)
}

func TestLoad_RequiresSecret(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	_, err = Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("ONECLICK_AUTH_JWT_SECRET", testSecret)
	t.Setenv("ONECLICK_DATABASE_DRIVER", "oracle")

	v, err := New("")
	require.NoError(t, err)

	_, err = Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Driver")
}

func TestNew_ReadsExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oneclick.yaml")
	content := "http:\n  addr: \":9090\"\nauth:\n  jwt_secret: " + testSecret + "\ndatabase:\n  driver: postgres\n  dsn: postgres://localhost/oneclick\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/oneclick", cfg.Database.DSN)
}

func TestNew_MissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
