package config_test

import (
	"os"
	"testing"

	"enginefleet/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "enginefleet", cfg.DockerNetwork)
	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, 90, cfg.ReadinessMaxAttempts)
	assert.Equal(t, "latest", cfg.DefaultEngineVersion)
}

func TestLoadReadsOverrides(t *testing.T) {
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	defer os.Unsetenv("SERVER_PORT")
	defer os.Unsetenv("ALLOWED_ORIGINS")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestRedisAddrAndRabbitMQURL(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.RedisAddr(), ":")
	assert.Contains(t, cfg.RabbitMQURL(), "amqp://")
}
