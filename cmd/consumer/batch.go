package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/log"
)

type saveFunc func(ctx context.Context, batch []model.FileMessage) error

type commitFunc func(ctx context.Context, messages ...kafka.Message) error

// fileBatcher gom message theo size hoặc timeout, ghi vào MySQL rồi mới commit
// offset. Batch lỗi được ghi lại cho tới khi thành công hoặc consumer dừng,
// offset chưa commit sẽ được đọc lại ở lần chạy sau.
type fileBatcher struct {
	Logger  log.Logger
	save    saveFunc
	commit  commitFunc
	size    int
	timeout time.Duration

	retryDelay    time.Duration
	maxRetryDelay time.Duration
	// thời gian cho lần ghi cuối sau khi nhận tín hiệu dừng
	finalTimeout time.Duration
}

func newFileBatcher(logger log.Logger, save saveFunc, commit commitFunc, size int, timeout time.Duration) *fileBatcher {
	if size <= 0 {
		size = 1
	}
	return &fileBatcher{
		Logger:        logger,
		save:          save,
		commit:        commit,
		size:          size,
		timeout:       timeout,
		retryDelay:    time.Second,
		maxRetryDelay: time.Minute,
		finalTimeout:  30 * time.Second,
	}
}

// run đọc messages cho tới khi channel đóng hoặc ctx bị huỷ.
func (b *fileBatcher) run(ctx context.Context, messages <-chan kafka.Message) {
	var batch []kafka.Message
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Process remaining messages before exiting
			for drain := true; drain; {
				select {
				case msg, ok := <-messages:
					if !ok {
						drain = false
						continue
					}
					batch = append(batch, msg)
				default:
					drain = false
				}
			}
			b.final(batch)
			return

		case msg, ok := <-messages:
			if !ok {
				b.final(batch)
				return
			}
			batch = append(batch, msg)

			// Process batch when it reaches the desired size
			if len(batch) >= b.size {
				if !b.flush(ctx, batch) {
					b.final(batch)
					return
				}
				batch = nil
				timer.Reset(b.timeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				if !b.flush(ctx, batch) {
					b.final(batch)
					return
				}
				batch = nil
			}
			timer.Reset(b.timeout)
		}
	}
}

func (b *fileBatcher) final(batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.finalTimeout)
	defer cancel()
	if !b.flush(ctx, batch) {
		b.Logger.Warn(ctx, "Batch of %d messages not saved before shutdown, it will be redelivered", len(batch))
	}
}

// flush trả về false nếu ctx hết hạn trước khi batch được lưu và commit.
func (b *fileBatcher) flush(ctx context.Context, batch []kafka.Message) bool {
	rows := b.decode(ctx, batch)
	delay := b.retryDelay

	for {
		err := b.store(ctx, batch, rows)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		b.Logger.Error(ctx, "Failed to save batch of %d file records: %v. Thử lại sau %v", len(rows), err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
		if delay *= 2; delay > b.maxRetryDelay {
			delay = b.maxRetryDelay
		}
	}
}

// store ghi rows rồi commit toàn bộ batch, kể cả message không decode được.
// Upsert theo record key nên ghi lại một batch là an toàn.
func (b *fileBatcher) store(ctx context.Context, batch []kafka.Message, rows []model.FileMessage) error {
	if len(rows) > 0 {
		b.Logger.Info(ctx, "Processing batch of %d file records", len(rows))
		if err := b.save(ctx, rows); err != nil {
			return err
		}
	}
	if err := b.commit(ctx, batch...); err != nil {
		return err
	}
	b.Logger.Info(ctx, "Successfully saved batch of %d file records", len(rows))
	return nil
}

func (b *fileBatcher) decode(ctx context.Context, batch []kafka.Message) []model.FileMessage {
	rows := make([]model.FileMessage, 0, len(batch))
	for _, msg := range batch {
		var fileMsg model.FileMessage
		if err := json.Unmarshal(msg.Value, &fileMsg); err != nil {
			b.Logger.Error(ctx, "Failed to unmarshal file message at offset %d: %v", msg.Offset, err)
			continue
		}
		rows = append(rows, fileMsg)
	}
	return rows
}
