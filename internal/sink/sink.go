// Package sink ghi các chunk FileRecord ra đích lưu trữ.
// Mỗi Flush là all-or-nothing với một chunk.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/thep200/github-file-crawler/internal/model"
)

type Sink interface {
	Name() string
	Flush(ctx context.Context, chunk *model.Chunk) error
	Close() error
}

// Checkpointer is implemented by sinks that can tell whether a chunk was
// already flushed by an earlier run.
type Checkpointer interface {
	Exists(ctx context.Context, chunk *model.Chunk) (bool, error)
}

// Pruner is implemented by sinks that keep one artifact per chunk index.
// Prune drops chunks of mode with index >= keep, left over from a run with
// more chunks.
type Pruner interface {
	Prune(ctx context.Context, mode string, keep int) error
}

// Multi fans a chunk out to several sinks in order and stops at the first error.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Name() string {
	name := ""
	for i, s := range m.sinks {
		if i > 0 {
			name += "+"
		}
		name += s.Name()
	}
	return name
}

func (m *Multi) Flush(ctx context.Context, chunk *model.Chunk) error {
	for _, s := range m.sinks {
		if err := s.Flush(ctx, chunk); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

// Exists is true only if every checkpointing sink has the chunk. Sinks that
// cannot checkpoint do not count.
func (m *Multi) Exists(ctx context.Context, chunk *model.Chunk) (bool, error) {
	checked := false
	for _, s := range m.sinks {
		cp, ok := s.(Checkpointer)
		if !ok {
			continue
		}
		done, err := cp.Exists(ctx, chunk)
		if err != nil || !done {
			return false, err
		}
		checked = true
	}
	return checked, nil
}

func (m *Multi) Prune(ctx context.Context, mode string, keep int) error {
	for _, s := range m.sinks {
		p, ok := s.(Pruner)
		if !ok {
			continue
		}
		if err := p.Prune(ctx, mode, keep); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func messages(chunk *model.Chunk) []model.FileMessage {
	msgs := make([]model.FileMessage, 0, len(chunk.Records))
	for _, r := range chunk.Records {
		msgs = append(msgs, model.FileMessage{Mode: chunk.Mode, Chunk: chunk.Index, Record: r})
	}
	return msgs
}
