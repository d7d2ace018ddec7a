package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the meeting service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"meet-server"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"MEET_API_PORT" envDefault:"8290"`
	LogLevel        string        `env:"MEET_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// AWS Credentials (shared by the meeting and storage clients)
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`

	// Conferencing platform
	MediaRegion string `env:"AWS_MEDIA_REGION" envDefault:"us-east-1"`

	// Recording storage
	S3Region       string        `env:"AWS_S3_REGION" envDefault:"us-east-1"`
	S3Bucket       string        `env:"AWS_S3_BUCKET_NAME,notEmpty"`
	S3Endpoint     string        `env:"MEET_S3_ENDPOINT"`
	S3UsePathStyle bool          `env:"MEET_S3_USE_PATH_STYLE" envDefault:"false"`
	PresignTTL     time.Duration `env:"MEET_PRESIGN_TTL" envDefault:"1h"`

	// Meeting lifecycle policy
	AutoTeardownOnEmpty bool          `env:"AUTO_TEARDOWN_ON_EMPTY" envDefault:"true"`
	ResolveInterval     time.Duration `env:"RECORDING_RESOLVE_INTERVAL" envDefault:"30s"`

	// WebSocket tuning
	WSReadLimit    int64         `env:"WS_READ_LIMIT_BYTES" envDefault:"65536"`
	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`
}

// Load parses environment variables into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
