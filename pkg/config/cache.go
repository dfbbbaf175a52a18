package config

import "time"

// CacheConfig configures the resource cache and artifact fetching.
type CacheConfig struct {
	// Fetcher is "http" or "s3".
	Fetcher string

	// RedisAddr enables the Redis second level when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration

	// SpoolDir enables on-disk spooling of fetched artifacts when non-empty.
	SpoolDir string

	AWSRegion string
	AWSBucket string
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Fetcher:       getEnv("CACHE_FETCHER", "http"),
		RedisAddr:     getEnv("CACHE_REDIS_ADDR", ""),
		RedisPassword: getEnv("CACHE_REDIS_PASSWORD", ""),
		RedisTTL:      getEnvDuration("CACHE_REDIS_TTL", 24*time.Hour),
		SpoolDir:      getEnv("CACHE_SPOOL_DIR", ""),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		AWSBucket:     getEnv("AWS_BUCKET", "tidal-artifacts"),
	}
}

// HistoryConfig configures transcript archiving.
type HistoryConfig struct {
	// Driver is "memory", "postgres", or "off".
	Driver string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabaseSSLMode  string
	MaxOpenConns     int
	MaxIdleConns     int
}

func loadHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Driver:           getEnv("HISTORY_DRIVER", "memory"),
		DatabaseHost:     getEnv("DB_HOST", "localhost"),
		DatabasePort:     getEnvInt("DB_PORT", 5432),
		DatabaseUser:     getEnv("DB_USER", "postgres"),
		DatabasePassword: getEnv("DB_PASSWORD", ""),
		DatabaseName:     getEnv("DB_NAME", "tidal"),
		DatabaseSSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
	}
}
