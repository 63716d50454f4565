package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundingflow/internal/models"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `fundingflow:
  name: "TestApp"
  version: "1.0"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "TestApp", cfg.Fundingflow.Name)
	assert.Equal(t, 500, cfg.Store.MaxPoints)
	assert.Equal(t, 5*time.Second, cfg.Reader.ReconnectDelay)
	assert.Equal(t, 20*time.Second, cfg.Reader.PingInterval)
	assert.True(t, cfg.Source.Binance.Enabled)
	assert.Len(t, cfg.Source.Enabled(), len(models.Exchanges()))
	assert.Equal(t, 5*time.Second, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.CloudWatch.FlushInterval)
}

func TestLoadConfigKeepsExplicitFalse(t *testing.T) {
	path := writeTempConfig(t, `source:
  coinbase:
    enabled: false
  okx:
    url: "wss://example.com/ws"
    reconnect_delay: 2s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Source.Coinbase.Enabled)
	assert.NotContains(t, cfg.Source.Enabled(), models.ExchangeCoinbase)

	okx, ok := cfg.Source.Venue(models.ExchangeOkx)
	require.True(t, ok)
	assert.Equal(t, "wss://example.com/ws", okx.URL)
	assert.Equal(t, 2*time.Second, okx.ReconnectDelay)
}

func TestLoadConfigRejectsAllVenuesDisabled(t *testing.T) {
	path := writeTempConfig(t, `source:
  binance: {enabled: false}
  bybit: {enabled: false}
  okx: {enabled: false}
  hyperliquid: {enabled: false}
  derive: {enabled: false}
  lighter: {enabled: false}
  coinbase: {enabled: false}
`)

	_, err := LoadConfig(path)
	require.ErrorIs(t, err, ErrNoVenues)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"max points", "store:\n  max_points: -1\n"},
		{"local ip", "reader:\n  local_ip: not-an-ip\n"},
		{"kafka brokers", "publisher:\n  kafka:\n    enabled: true\n"},
		{"window", "dashboard:\n  default_window: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeTempConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("FUNDINGFLOW_MAX_POINTS", "42")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("FUNDINGFLOW_LISTEN", "127.0.0.1:9999")

	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Store.MaxPoints)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Publisher.Kafka.Brokers)
	assert.Equal(t, "127.0.0.1:9999", cfg.Dashboard.Address)
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv(appEnvVar, "prod")
	assert.Equal(t, environmentProduction, AppEnvironment())

	t.Setenv(appEnvVar, "")
	assert.Equal(t, environmentDevelopment, AppEnvironment())
}

func TestResolvePathKeepsExplicitPath(t *testing.T) {
	t.Setenv(appEnvVar, "production")
	assert.Equal(t, "custom.yml", ResolvePath("custom.yml"))
	// the production file does not exist relative to the test working dir
	assert.Equal(t, DefaultPath, ResolvePath(""))
}
