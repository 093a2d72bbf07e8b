package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"recordpipeline/internal/ports"
	logger "recordpipeline/internal/shared/log"
)

// KafkaConsumer implements ports.EventConsumer with a consumer-group reader.
// Offsets are committed only after the handler succeeds.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(cfg KafkaConfig) (*KafkaConsumer, error) {
	brokers, err := cfg.brokers()
	if err != nil {
		return nil, err
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer needs a topic and a group id")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &KafkaConsumer{reader: reader}, nil
}

var _ ports.EventConsumer = (*KafkaConsumer)(nil)

func (c *KafkaConsumer) Consume(ctx context.Context, handler ports.MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			// Left uncommitted; a later commit on this partition or a restart
			// decides whether it is seen again.
			logger.Errorf(ctx, err, "Handler failed for message at %s[%d]@%d", msg.Topic, msg.Partition, msg.Offset)
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Errorf(ctx, err, "Failed to commit offset %s[%d]@%d", msg.Topic, msg.Partition, msg.Offset)
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
