package sink

import (
	"context"

	"github.com/thep200/github-file-crawler/internal/model"
	kafkapkg "github.com/thep200/github-file-crawler/pkg/kafka"
	"github.com/thep200/github-file-crawler/pkg/log"
)

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, messages []kafkapkg.Message) error
	Close() error
}

// Kafka gửi mỗi record thành một message, khoá theo repo để giữ thứ tự trong repo.
// cmd/consumer đọc topic này và ghi vào MySQL.
type Kafka struct {
	Logger    log.Logger
	publisher Publisher
}

func NewKafka(logger log.Logger, publisher Publisher) *Kafka {
	return &Kafka{Logger: logger, publisher: publisher}
}

func (k *Kafka) Name() string {
	return "kafka"
}

func (k *Kafka) Flush(ctx context.Context, chunk *model.Chunk) error {
	msgs := messages(chunk)
	batch := make([]kafkapkg.Message, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, kafkapkg.Message{Key: m.Record.RepoName, Value: m})
	}
	if err := k.publisher.PublishBatch(ctx, batch); err != nil {
		return err
	}
	k.Logger.Info(ctx, "Published %d records of %s to kafka", len(batch), chunk.Name())
	return nil
}

func (k *Kafka) Close() error {
	return k.publisher.Close()
}
