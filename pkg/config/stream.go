package config

import "time"

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port    int
	AppName string
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvInt("PORT", 8080),
		AppName: getEnv("APP_NAME", "tidal"),
	}
}

// StreamConfig configures the transport and reconciliation loop.
type StreamConfig struct {
	BaseURL          string
	AckTimeout       time.Duration
	IdleTimeout      time.Duration
	ThrottleInterval time.Duration
}

func loadStreamConfig() StreamConfig {
	return StreamConfig{
		BaseURL:          getEnv("STREAM_BASE_URL", "http://localhost:8080"),
		AckTimeout:       getEnvDuration("STREAM_ACK_TIMEOUT", 250*time.Millisecond),
		IdleTimeout:      getEnvDuration("STREAM_IDLE_TIMEOUT", 30*time.Second),
		ThrottleInterval: getEnvDuration("STREAM_THROTTLE_INTERVAL", 120*time.Millisecond),
	}
}

// TokenConfig configures bearer token persistence.
type TokenConfig struct {
	Path string
}

func loadTokenConfig() TokenConfig {
	return TokenConfig{
		Path: getEnv("TOKEN_PATH", ".tidal/token"),
	}
}
