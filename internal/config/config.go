// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the servers and backing stores.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	MySQLDSN        string
	RedisAddr       string
	MySQLMaxOpen    int
	MySQLMaxIdle    int
	MySQLConnTTL    time.Duration
	RedisPoolSize   int
	ShutdownTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:        getenv("GRPC_ADDR", ":50051"),
		MySQLDSN:        getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/withdrawals?parseTime=true"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		MySQLMaxOpen:    atoienv("MYSQL_MAX_OPEN_CONNS", 50),
		MySQLMaxIdle:    atoienv("MYSQL_MAX_IDLE_CONNS", 25),
		MySQLConnTTL:    durenvs("MYSQL_CONN_TTL", 300),
		RedisPoolSize:   atoienv("REDIS_POOL_SIZE", 100),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 5),
	}
}
