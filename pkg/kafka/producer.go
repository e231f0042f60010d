package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/pkg/log"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

// DefaultMaxMessageBytes matches the broker default message.max.bytes.
const DefaultMaxMessageBytes = 1000000

// record batch và header của mỗi message
const batchOverhead = 1 << 10

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles Kafka message publishing
type Producer struct {
	Config *cfg.Config
	Logger log.Logger
	writer messageWriter
	// key + value lớn hơn giới hạn này bị bỏ qua
	maxMessageBytes int
	dropped         atomic.Int64
}

// Message is the structure of messages sent to Kafka
type Message struct {
	Key   string
	Value interface{}
}

// NewProducer creates a producer for config.Kafka.Topic
func NewProducer(config *cfg.Config, logger log.Logger) (*Producer, error) {
	if len(config.Kafka.Brokers) == 0 {
		return nil, ErrNoBrokers
	}

	maxBytes := MaxMessageBytes(config)
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Kafka.Brokers...),
		Topic:        config.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		// mặc định của kafka-go là 1MB, một file lớn sẽ làm hỏng cả lần ghi
		BatchBytes:   int64(maxBytes + batchOverhead),
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{
		Config:          config,
		Logger:          logger,
		writer:          writer,
		maxMessageBytes: maxBytes,
	}, nil
}

// MaxMessageBytes returns config.Kafka.MaxMessageBytes or the default.
func MaxMessageBytes(config *cfg.Config) int {
	if config == nil || config.Kafka.MaxMessageBytes <= 0 {
		return DefaultMaxMessageBytes
	}
	return config.Kafka.MaxMessageBytes
}

// Publish sends a message to the Kafka topic
func (p *Producer) Publish(ctx context.Context, key string, value interface{}) error {
	return p.PublishBatch(ctx, []Message{{Key: key, Value: value}})
}

// PublishBatch gửi toàn bộ message trong một lần WriteMessages
func (p *Producer) PublishBatch(ctx context.Context, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	now := time.Now()
	msgs := make([]kafka.Message, 0, len(messages))
	for _, m := range messages {
		jsonBytes, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if p.maxMessageBytes > 0 && len(m.Key)+len(jsonBytes) > p.maxMessageBytes {
			p.dropped.Add(1)
			p.Logger.Warn(ctx, "Message %s is %d bytes, over the %d byte limit, skipped", m.Key, len(m.Key)+len(jsonBytes), p.maxMessageBytes)
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(m.Key),
			Value: jsonBytes,
			Time:  now,
		})
	}

	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d messages to kafka: %w", len(msgs), err)
	}
	return nil
}

// Dropped returns how many messages were skipped for exceeding the size limit.
func (p *Producer) Dropped() int64 {
	return p.dropped.Load()
}

// Close closes the Kafka writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
