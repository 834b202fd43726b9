package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  listenAddress: ":9090"
mongodb:
  uri: "mongodb://localhost:27017"
  database: "finops_test"
redis:
  addr: "localhost:6379"
engine:
  sweepInterval: "10s"
  escalationInterval: "5m"
  warningAlerts: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddress)
	assert.Equal(t, "finops_test", cfg.MongoDB.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Engine.SweepIntervalDuration())
	assert.Equal(t, 5*time.Minute, cfg.Engine.EscalationIntervalDuration())
	assert.True(t, cfg.Engine.WarningAlerts)

	// Defaults fill the gaps.
	assert.Equal(t, "tasks", cfg.MongoDB.Collection)
	assert.Equal(t, "overdue_reasons", cfg.MongoDB.ReasonsCollection)
	assert.Equal(t, "sla:escalation:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 15*time.Minute, cfg.Engine.WarningWindowDuration())
	assert.Equal(t, "mongodb", cfg.Engine.Store)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  listenAddress: \":7070\"\n")
	t.Setenv("SLA_ENGINE_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.ListenAddress)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "webhook:\n  url: \"http://alerts.local\"\n  timeout: \"10x\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.timeout")
}

func TestValidate(t *testing.T) {
	var cfg Config
	cfg.Defaults()
	assert.NoError(t, cfg.Validate())

	cfg.Kafka.WriteTimeout = "5s"
	cfg.MongoDB.ConnectTimeout = "2s"
	assert.NoError(t, cfg.Validate())

	cfg.Kafka.WriteTimeout = "soon"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.writeTimeout")
}

func TestSinkTimeoutDefaults(t *testing.T) {
	assert.Equal(t, 10*time.Second, Webhook{}.TimeoutDuration())
	assert.Equal(t, 3*time.Second, Webhook{Timeout: "3s"}.TimeoutDuration())
	assert.Equal(t, 10*time.Second, Kafka{}.WriteTimeoutDuration())
	assert.Equal(t, time.Minute, Kafka{WriteTimeout: "1m"}.WriteTimeoutDuration())
}

func TestDurationFallbacks(t *testing.T) {
	e := Engine{SweepInterval: "garbage", EscalationInterval: "-5m", WarningWindow: ""}
	assert.Equal(t, 30*time.Second, e.SweepIntervalDuration())
	assert.Equal(t, 15*time.Minute, e.EscalationIntervalDuration())
	assert.Equal(t, 15*time.Minute, e.WarningWindowDuration())
}
