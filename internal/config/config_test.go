package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, 50, cfg.MySQLMaxOpen)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("MYSQL_MAX_OPEN_CONNS", "7")
	t.Setenv("SHUTDOWN_TIMEOUT", "30")

	cfg := Load()

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 7, cfg.MySQLMaxOpen)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_BadNumberFallsBack(t *testing.T) {
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, 100, cfg.RedisPoolSize)
}
