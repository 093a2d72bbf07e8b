package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	// MaxBodyBytes caps the ingestion request body.
	MaxBodyBytes int `envconfig:"MAX_BODY_BYTES" default:"4194304"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	MinIOEndpoint   string `envconfig:"MINIO_ENDPOINT" required:"true"`
	MinIOAccessKey  string `envconfig:"MINIO_ACCESS_KEY" required:"true"`
	MinIOSecretKey  string `envconfig:"MINIO_SECRET_KEY" required:"true"`
	MinIOUseSSL     bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	RawBucket       string `envconfig:"RAW_BUCKET" default:"raw-data"`
	ProcessedBucket string `envconfig:"PROCESSED_BUCKET" default:"processed-data"`
	ArchiveBucket   string `envconfig:"ARCHIVE_BUCKET" default:"archive-data"`
	ObjectSuffix    string `envconfig:"OBJECT_SUFFIX" default:".json"`

	// ValidatorRescanInterval re-lists the raw bucket so objects whose
	// notification was lost or failed are validated again. 0 disables it.
	ValidatorRescanInterval time.Duration `envconfig:"VALIDATOR_RESCAN_INTERVAL" default:"15m"`
	ValidatorReconnectDelay time.Duration `envconfig:"VALIDATOR_RECONNECT_DELAY" default:"5s"`

	KafkaBrokers        string `envconfig:"KAFKA_BROKERS" required:"true"`
	KafkaValidatedTopic string `envconfig:"KAFKA_VALIDATED_TOPIC" default:"pipeline.validated"`
	KafkaConsumerGroup  string `envconfig:"KAFKA_CONSUMER_GROUP" default:"pipeline-transformer"`
	EventSource         string `envconfig:"EVENT_SOURCE" default:"custom.validation"`
	EventDetailType     string `envconfig:"EVENT_DETAIL_TYPE" default:"ValidationCompleted"`
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Printf("Warning: error loading .env file: %v\n", err)
	}

	config := &Config{}

	err = envconfig.Process("", config)
	if err != nil {
		return nil, fmt.Errorf("error processing envconfig: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects bucket layouts that would break the stage ordering: the
// transformer deletes from raw after writing processed and archive, so the
// three locations must be distinct.
func (c *Config) Validate() error {
	buckets := map[string]string{}
	for name, bucket := range map[string]string{
		"RAW_BUCKET":       c.RawBucket,
		"PROCESSED_BUCKET": c.ProcessedBucket,
		"ARCHIVE_BUCKET":   c.ArchiveBucket,
	} {
		if bucket == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
		if other, dup := buckets[bucket]; dup {
			return fmt.Errorf("%s and %s both point at bucket %q", other, name, bucket)
		}
		buckets[bucket] = name
	}
	if c.ObjectSuffix == "" {
		return fmt.Errorf("OBJECT_SUFFIX must not be empty")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.ValidatorRescanInterval < 0 {
		return fmt.Errorf("VALIDATOR_RESCAN_INTERVAL must not be negative")
	}
	if c.ValidatorReconnectDelay <= 0 {
		return fmt.Errorf("VALIDATOR_RECONNECT_DELAY must be positive")
	}
	return nil
}
