package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/mnemosyne/internal/config"
	"github.com/stretchr/testify/assert"
)

// isolate points the loader at files that do not exist so the developer's own
// .env or config cannot leak into the test.
func isolate(t *testing.T) string {
	t.Helper()

	dir := filet.TmpDir(t, "")
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("CONFIG_PATH", "")
	for _, name := range []string{
		"MNEMOSYNE_ENV", "DB_HOST", "DB_PORT", "DB_USERNAME", "DB_PASSWORD", "DB_NAME",
		"MNEMOSYNE_ROSTER", "MNEMOSYNE_INTERVAL", "MNEMOSYNE_MONITORING_PORT",
	} {
		t.Setenv(name, "")
	}

	return dir
}

func Test_MustLoadFromEnv(t *testing.T) {
	defer filet.CleanUp(t)
	isolate(t)

	t.Setenv("MNEMOSYNE_ENV", "development")
	t.Setenv("DB_HOST", "testHost")
	t.Setenv("DB_PORT", "12345")
	t.Setenv("DB_USERNAME", "admin")
	t.Setenv("DB_PASSWORD", "adminpass")
	t.Setenv("DB_NAME", "testName")
	t.Setenv("MNEMOSYNE_ROSTER", "/etc/mnemosyne/roster.yaml")
	t.Setenv("MNEMOSYNE_INTERVAL", "10m")
	t.Setenv("MNEMOSYNE_MONITORING_PORT", "9090")

	cfg := config.MustLoad()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "testHost", cfg.Postgres.Host)
	assert.Equal(t, "12345", cfg.Postgres.Port)
	assert.Equal(t, "admin", cfg.Postgres.User)
	assert.Equal(t, "adminpass", cfg.Postgres.Password)
	assert.Equal(t, "testName", cfg.Postgres.Dbname)
	assert.Equal(t, "/etc/mnemosyne/roster.yaml", cfg.Roster.Path)
	assert.Equal(t, 10*time.Minute, cfg.Roster.Interval)
	assert.Equal(t, 9090, cfg.Monitoring.Port)
}

func Test_MustLoadFromFile(t *testing.T) {
	defer filet.CleanUp(t)
	dir := isolate(t)

	file := filet.File(t, filepath.Join(dir, "config.yaml"), `
env: production
postgres:
  host: db.internal
  user: mnemosyne
  password: secret
  db_name: staff
roster:
  path: roster.yaml
  interval: 30m
`)
	t.Setenv("CONFIG_PATH", file.Name())
	t.Setenv("DB_PASSWORD", "fromEnv")

	cfg := config.MustLoad()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.Equal(t, "mnemosyne", cfg.Postgres.User)
	assert.Equal(t, "fromEnv", cfg.Postgres.Password)
	assert.Equal(t, "staff", cfg.Postgres.Dbname)
	assert.Equal(t, "roster.yaml", cfg.Roster.Path)
	assert.Equal(t, 30*time.Minute, cfg.Roster.Interval)
	assert.Equal(t, 8080, cfg.Monitoring.Port)
}

func Test_MustLoadFromDotenv(t *testing.T) {
	defer filet.CleanUp(t)
	dir := isolate(t)

	envFile := filet.File(t, filepath.Join(dir, "test.env"), "DB_HOST=dotenvHost\nDB_NAME=dotenvName\n")
	t.Setenv("ENV_FILE", envFile.Name())
	t.Setenv("DB_NAME", "envName")

	cfg := config.MustLoad()

	assert.Equal(t, "dotenvHost", cfg.Postgres.Host)
	assert.Equal(t, "envName", cfg.Postgres.Dbname)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 12*time.Hour, cfg.Roster.Interval)
}

func TestMustLoad_IntervalError(t *testing.T) {
	defer filet.CleanUp(t)
	isolate(t)

	t.Setenv("MNEMOSYNE_INTERVAL", "error_value")

	assert.PanicsWithValue(t, "failed to parse interval from configuration", func() {
		config.MustLoad()
	})
}

func TestMustLoad_PortError(t *testing.T) {
	defer filet.CleanUp(t)
	isolate(t)

	t.Setenv("MNEMOSYNE_MONITORING_PORT", "70000")

	assert.PanicsWithValue(t, "failed to parse monitoring port from configuration", func() {
		config.MustLoad()
	})
}

func TestMustLoad_MissingFile(t *testing.T) {
	defer filet.CleanUp(t)
	dir := isolate(t)

	missing := filepath.Join(dir, "nope.yaml")
	t.Setenv("CONFIG_PATH", missing)

	assert.PanicsWithValue(t, "config file does not exist: "+missing, func() {
		config.MustLoad()
	})
}
