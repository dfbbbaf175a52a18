package config

import (
	"os"
	"strconv"
	"time"
)

// Config aggregates every subsystem's settings, loaded once from the
// environment at startup.
type Config struct {
	Server  ServerConfig
	Stream  StreamConfig
	Cache   CacheConfig
	History HistoryConfig
	Token   TokenConfig
}

// Load reads the full configuration from the environment.
func Load() *Config {
	return &Config{
		Server:  loadServerConfig(),
		Stream:  loadStreamConfig(),
		Cache:   loadCacheConfig(),
		History: loadHistoryConfig(),
		Token:   loadTokenConfig(),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
