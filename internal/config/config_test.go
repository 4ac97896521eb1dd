package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.yaml", "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.EnableH2C)
	assert.False(t, cfg.Server.TLSEnabled())

	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, 3, cfg.Workflow.RetryAttempts)
	assert.Equal(t, 25*time.Millisecond, cfg.Workflow.RetryBackoff)
	assert.Equal(t, 15*time.Minute, cfg.Reconciliation.SessionTTL)
	assert.False(t, cfg.Sweep.Enabled)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, "log", cfg.Sweep.Notifier)
	assert.Equal(t, "maintenance.plan.overdue", cfg.RabbitMQ.RoutingKey)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Zero(t, cfg.RateLimit.RPS)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "assettrack.yaml", `
server:
  host: 127.0.0.1
  port: 9000
  writeTimeout: 5s
database:
  type: postgres
  postgres:
    host: db.internal
    database: fleet
    sslMode: require
workflow:
  retryAttempts: 5
sweep:
  enabled: true
  actorID: "2"
  interval: 30m
rateLimit:
  rps: 12.5
  burst: 40
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 5, cfg.Workflow.RetryAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, "2", cfg.Sweep.ActorID)
	assert.Equal(t, 12.5, cfg.RateLimit.RPS)
	assert.Equal(t, 40, cfg.RateLimit.Burst)

	db := cfg.Database.AdapterConfig()
	assert.Equal(t, ports.DatabaseTypePostgreSQL, db.Type)
	require.NotNil(t, db.PostgresConfig)
	assert.Nil(t, db.MongoDBConfig)
	assert.Equal(t, "db.internal", db.PostgresConfig.Host)
	assert.Equal(t, "fleet", db.PostgresConfig.Database)
	assert.Equal(t, "require", db.PostgresConfig.SSLMode)
	assert.Equal(t, 5432, db.PostgresConfig.Port, "unset keys keep their defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ASSETTRACK_SERVER_PORT", "7070")
	t.Setenv("ASSETTRACK_LOGGING_LEVEL", "debug")
	t.Setenv("ASSETTRACK_DATABASE_TYPE", "mongodb")
	t.Setenv("ASSETTRACK_DATABASE_MONGODB_URI", "mongodb://mongo:27017")

	cfg, err := Load(writeFile(t, "config.yaml", "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	db := cfg.Database.AdapterConfig()
	assert.Equal(t, ports.DatabaseTypeMongoDB, db.Type)
	require.NotNil(t, db.MongoDBConfig)
	assert.Equal(t, "mongodb://mongo:27017", db.MongoDBConfig.URI)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "broken.yaml", "server: [port\n"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeFile(t, "db.yaml", "database:\n  type: sqlite\n"))
	assert.ErrorContains(t, err, "unsupported database type")

	_, err = Load(writeFile(t, "sweep.yaml", "sweep:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "sweep.actorID")

	_, err = Load(writeFile(t, "broker.yaml", "sweep:\n  enabled: true\n  actorID: \"2\"\n  notifier: rabbitmq\n"))
	assert.ErrorContains(t, err, "rabbitmq.url")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:         ServerConfig{Port: 8080},
			Database:       DatabaseConfig{Type: "memory"},
			Workflow:       WorkflowConfig{RetryAttempts: 1},
			Reconciliation: ReconciliationConfig{SessionTTL: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid server port"},
		{name: "no retries", mutate: func(c *Config) { c.Workflow.RetryAttempts = 0 }, wantErr: "retryAttempts"},
		{name: "no session ttl", mutate: func(c *Config) { c.Reconciliation.SessionTTL = 0 }, wantErr: "sessionTTL"},
		{name: "negative rps", mutate: func(c *Config) { c.RateLimit.RPS = -1 }, wantErr: "rateLimit.rps"},
		{
			name: "unknown notifier",
			mutate: func(c *Config) {
				c.Sweep = SweepConfig{Enabled: true, ActorID: "1", Notifier: "smtp"}
			},
			wantErr: "unsupported sweep notifier",
		},
		{name: "uppercase type", mutate: func(c *Config) { c.Database.Type = "Postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, ".env", "ASSETTRACK_TEST_LOADENV=from-file\n")
	t.Setenv("ASSETTRACK_TEST_LOADENV", "")
	os.Unsetenv("ASSETTRACK_TEST_LOADENV")

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("ASSETTRACK_TEST_LOADENV"))

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
