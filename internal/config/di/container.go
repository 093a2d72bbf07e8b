package di

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"recordpipeline/internal/adapters/catalog"
	"recordpipeline/internal/adapters/messaging"
	"recordpipeline/internal/adapters/storage"
	"recordpipeline/internal/adapters/validation"
	"recordpipeline/internal/config"
	"recordpipeline/internal/domain"
	db "recordpipeline/internal/shared/database"
	logger "recordpipeline/internal/shared/log"
)

// Container holds the long-lived clients and the stage services built on
// them. Clients carry no business state and are shared by every invocation.
type Container struct {
	Config *config.Config
	DB     *gorm.DB

	Storage   *storage.MinIOStorage
	Publisher *messaging.KafkaPublisher
	Notifier  *storage.MinIONotifier

	// Consumer is opened by OpenConsumer; a group reader joins its group as
	// soon as it is built, so only transformer processes create one.
	Consumer *messaging.KafkaConsumer
	kafka    messaging.KafkaConfig

	IngestionService   *domain.IngestionService
	ValidatorService   *domain.ValidatorService
	TransformerService *domain.TransformerService
	InspectionService  *domain.InspectionService
}

func (c *Container) EventTag() domain.EventTag {
	return domain.EventTag{Source: c.Config.EventSource, DetailType: c.Config.EventDetailType}
}

// OpenConsumer builds the transformer's Kafka consumer on first use.
func (c *Container) OpenConsumer() (*messaging.KafkaConsumer, error) {
	if c.Consumer != nil {
		return c.Consumer, nil
	}
	consumer, err := messaging.NewKafkaConsumer(c.kafka)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka consumer: %w", err)
	}
	c.Consumer = consumer
	return consumer, nil
}

func (c *Container) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "Shutting down container resources...")

	var errs []error
	if c.Consumer != nil {
		if err := c.Consumer.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close Kafka consumer")
			errs = append(errs, err)
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close Kafka publisher")
			errs = append(errs, err)
		}
	}
	if c.DB != nil {
		if err := db.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close database connection")
			errs = append(errs, err)
		}
	}

	logger.Info(ctx, "Container shutdown complete")
	return errors.Join(errs...)
}

// InitContainer builds every client. On failure, whatever was already opened
// is closed before returning.
func InitContainer(cfg *config.Config) (c *Container, err error) {
	ctx := context.Background()

	logger.Info(ctx, "Initializing database...")
	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if closeErr := db.Close(); closeErr != nil {
			logger.Error(ctx, closeErr, "Failed to close database connection")
		}
	}()

	logger.Info(ctx, "Running database migrations...")
	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info(ctx, "Database migrations completed successfully")

	logger.Info(ctx, "Initializing MinIO client...")
	minioClient, err := storage.NewMinIOClient(storage.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Buckets:   []string{cfg.RawBucket, cfg.ProcessedBucket, cfg.ArchiveBucket},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO storage: %w", err)
	}
	objectStore := storage.NewMinIOStorage(minioClient)

	logger.Info(ctx, "Initializing Kafka clients...")
	kafkaCfg := messaging.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaValidatedTopic,
		GroupID: cfg.KafkaConsumerGroup,
	}
	publisher, err := messaging.NewKafkaPublisher(kafkaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka publisher: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error(ctx, closeErr, "Failed to close Kafka publisher")
		}
	}()

	schemaValidator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize schema validator: %w", err)
	}

	recordCatalog := catalog.NewGormCatalog(database)

	c = &Container{
		Config:    cfg,
		DB:        database,
		Storage:   objectStore,
		Publisher: publisher,
		Notifier:  storage.NewMinIONotifier(minioClient),
		kafka:     kafkaCfg,
	}

	c.IngestionService = domain.NewIngestionService(schemaValidator, objectStore, domain.IngestionConfig{
		RawBucket:    cfg.RawBucket,
		ObjectSuffix: cfg.ObjectSuffix,
	})
	c.ValidatorService = domain.NewValidatorService(schemaValidator, objectStore, publisher, domain.ValidatorConfig{
		Topic:        cfg.KafkaValidatedTopic,
		Tag:          c.EventTag(),
		ObjectSuffix: cfg.ObjectSuffix,
	})
	c.TransformerService = domain.NewTransformerService(objectStore, recordCatalog, domain.TransformerConfig{
		ProcessedBucket: cfg.ProcessedBucket,
		ArchiveBucket:   cfg.ArchiveBucket,
	})
	c.InspectionService = domain.NewInspectionService(objectStore, recordCatalog, domain.InspectionConfig{
		RawBucket:       cfg.RawBucket,
		ProcessedBucket: cfg.ProcessedBucket,
		ArchiveBucket:   cfg.ArchiveBucket,
	})

	return c, nil
}
