package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/pkg/log"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer handles Kafka message consumption
type Consumer struct {
	Config *cfg.Config
	Logger log.Logger
	topic  string
	reader messageReader
}

// NewConsumer creates a consumer of config.Kafka.Topic in config.Kafka.GroupID
func NewConsumer(config *cfg.Config, logger log.Logger) (*Consumer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	// một message chứa nguyên nội dung file
	maxBytes := 50e6
	if limit := float64(MaxMessageBytes(config) + batchOverhead); limit > maxBytes {
		maxBytes = limit
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Kafka.Brokers,
		Topic:       config.Kafka.Topic,
		GroupID:     config.Kafka.GroupID,
		MinBytes:    10e3, // 10KB
		MaxBytes:    int(maxBytes),
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		Config: config,
		Logger: logger,
		topic:  config.Kafka.Topic,
		reader: reader,
	}, nil
}

// Stream đọc message vào out cho tới khi ctx bị huỷ, không commit offset.
// Bên nhận gọi Commit sau khi đã lưu xong message.
func (c *Consumer) Stream(ctx context.Context, out chan<- kafka.Message) error {
	c.Logger.Info(ctx, "Starting Kafka consumer for topic: %s", c.topic)

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if isDone(ctx, err) {
				return nil
			}
			c.Logger.Error(ctx, "Error reading message: %v", err)
			continue
		}

		select {
		case out <- message:
		case <-ctx.Done():
			return nil
		}
	}
}

// Commit marks messages as processed for the consumer group.
func (c *Consumer) Commit(ctx context.Context, messages ...kafka.Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to commit %d offsets: %w", len(messages), err)
	}
	return nil
}

func isDone(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Close closes the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
