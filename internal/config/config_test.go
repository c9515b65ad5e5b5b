package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "app", "DB_HOST": "db",
		"DB_PORT": "3306", "DB_NAME": "sports", "JWT_SECRET": "s3cret",
		"DB_MIGRATE": "yes", "EVENTS_ENABLED": "off", "AMQP_URL": "amqp://broker:5672/",
	} {
		t.Setenv(k, v)
	}
	t.Setenv("RABBITMQ_URL", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.DBMigrate)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, "amqp://broker:5672/", cfg.AMQPURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(Config{LogLevel: "debug", LogFormat: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger(Config{LogLevel: "loud"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewRedisClient(t *testing.T) {
	logger, hook := test.NewNullLogger()
	mr := miniredis.RunT(t)

	addr := mr.Addr()

	client := NewRedisClient(RedisConfig{Addr: addr}, logger)
	require.NotNil(t, client)
	t.Cleanup(func() { client.Close() })

	mr.Close()
	assert.Nil(t, NewRedisClient(RedisConfig{Addr: addr}, logger))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
