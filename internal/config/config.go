package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Environment string
	LogLevel    string

	DatabaseURL string
	RedisURL    string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIORegion    string

	// Per-queue worker pool sizes. Video transcoding is far heavier than
	// image resizing, so the video pool defaults to a fraction of the
	// image pool.
	ImageConcurrency    int
	VideoConcurrency    int
	DocumentConcurrency int

	MaxRetries      int
	RetryBaseDelay  time.Duration
	JobTimeout      time.Duration
	VideoJobTimeout time.Duration

	PreviewMaxSeconds int
	PresignExpiry     time.Duration
	TempDir           string

	MetricsPort int

	TracingEnabled  bool
	OTLPEndpoint    string
	TraceSampleRate float64
}

func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	if cfg.MinIOEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required")
	}

	cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	if cfg.MinIOAccessKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY is required")
	}

	cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
	if cfg.MinIOSecretKey == "" {
		return nil, fmt.Errorf("MINIO_SECRET_KEY is required")
	}

	cfg.MinIOBucket = getEnvString("MINIO_BUCKET", "assets")
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.MinIORegion = getEnvString("MINIO_REGION", "us-east-1")

	cfg.ImageConcurrency = getEnvInt("IMAGE_CONCURRENCY", 5)
	cfg.VideoConcurrency = getEnvInt("VIDEO_CONCURRENCY", 2)
	cfg.DocumentConcurrency = getEnvInt("DOCUMENT_CONCURRENCY", 3)

	cfg.MaxRetries = getEnvInt("MAX_RETRIES", 3)
	cfg.RetryBaseDelay, err = getEnvDuration("RETRY_BASE_DELAY", "2s")
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_BASE_DELAY: %w", err)
	}
	cfg.JobTimeout, err = getEnvDuration("JOB_TIMEOUT", "5m")
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_TIMEOUT: %w", err)
	}
	cfg.VideoJobTimeout, err = getEnvDuration("VIDEO_JOB_TIMEOUT", "30m")
	if err != nil {
		return nil, fmt.Errorf("invalid VIDEO_JOB_TIMEOUT: %w", err)
	}

	cfg.PreviewMaxSeconds = getEnvInt("PREVIEW_MAX_SECONDS", 30)
	cfg.PresignExpiry, err = getEnvDuration("PRESIGN_EXPIRY", "15m")
	if err != nil {
		return nil, fmt.Errorf("invalid PRESIGN_EXPIRY: %w", err)
	}
	cfg.TempDir = getEnvString("TEMP_DIR", os.TempDir())

	cfg.MetricsPort = getEnvInt("METRICS_PORT", 9090)

	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.OTLPEndpoint = getEnvString("OTLP_ENDPOINT", "localhost:4317")
	cfg.TraceSampleRate = getEnvFloat("TRACE_SAMPLE_RATE", 0.1)

	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ImageConcurrency < 1 {
		return fmt.Errorf("invalid image concurrency: %d", c.ImageConcurrency)
	}
	if c.VideoConcurrency < 1 {
		return fmt.Errorf("invalid video concurrency: %d", c.VideoConcurrency)
	}
	if c.DocumentConcurrency < 1 {
		return fmt.Errorf("invalid document concurrency: %d", c.DocumentConcurrency)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max retries: %d", c.MaxRetries)
	}
	if c.PreviewMaxSeconds < 1 {
		return fmt.Errorf("invalid preview max seconds: %d", c.PreviewMaxSeconds)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return time.ParseDuration(value)
}
