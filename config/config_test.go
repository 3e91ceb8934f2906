package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.ListenAddr())
	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Equal(t, time.Minute, cfg.SLA.ScanInterval)
	assert.True(t, cfg.SLA.WorkerEnabled)
	assert.Equal(t, "Asia/Kolkata", cfg.SLA.Location.String())
	assert.False(t, cfg.Auth.Required)
	assert.Equal(t, devJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send", cfg.Push.Endpoint)
	assert.Empty(t, cfg.Redis.Addr)

	assert.EqualError(t, cfg.Validate(), "missing required configuration: DB_SERVER, DB_NAME")
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_SERVER", "db.internal")
	t.Setenv("DB_NAME", "hospital")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("PORT", "8080")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("SLA_SCAN_INTERVAL_SECONDS", "30")
	t.Setenv("SLA_WORKER_ENABLED", "false")
	t.Setenv("DISPLAY_TIMEZONE", "UTC")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WORKFLOW_FILE", "/etc/dtracker/workflow.yaml")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.IsDev())
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Auth.Required)
	assert.Equal(t, 30*time.Second, cfg.SLA.ScanInterval)
	assert.False(t, cfg.SLA.WorkerEnabled)
	assert.Equal(t, time.UTC, cfg.SLA.Location)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "/etc/dtracker/workflow.yaml", cfg.Workflow.File)
}

func TestLoadConfig_SecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.EqualError(t, err, "JWT_SECRET is required when ENV is production")
}

func TestLoadConfig_InvalidTimezone(t *testing.T) {
	t.Setenv("DISPLAY_TIMEZONE", "Mars/Olympus")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Server: "db.internal", Port: "3306", User: "app", Password: "pw", DBName: "hospital"}
	dsn := d.DSN()
	assert.True(t, strings.HasPrefix(dsn, "app:pw@tcp(db.internal:3306)/hospital?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	d.Server = "10.0.0.5:3307"
	assert.Equal(t, "10.0.0.5:3307", d.Addr())
}
