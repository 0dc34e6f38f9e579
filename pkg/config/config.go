package config

import (
	"os"
	"strconv"
)

// Config holds service configuration.
type Config struct {
	LogLevel            string
	DatabaseURL         string
	DataDir             string
	RedisAddr           string
	SizeLimitMB         int64
	IncludeWebResources bool
	OTLPEndpoint        string
	TelemetryEnabled    bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	sizeLimitMB := int64(512)
	if raw := os.Getenv("PACKAGE_SIZE_LIMIT_MB"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			sizeLimitMB = parsed
		}
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:            logLevel,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		DataDir:             dataDir,
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		SizeLimitMB:         sizeLimitMB,
		IncludeWebResources: os.Getenv("INCLUDE_WEB_RESOURCES") == "true",
		OTLPEndpoint:        otlpEndpoint,
		TelemetryEnabled:    os.Getenv("TELEMETRY_ENABLED") == "true",
	}
}

// SizeLimitBytes returns the configured package size ceiling in bytes.
func (c *Config) SizeLimitBytes() int64 {
	return c.SizeLimitMB * 1024 * 1024
}
