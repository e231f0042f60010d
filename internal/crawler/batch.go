package crawler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/internal/sink"
	"github.com/thep200/github-file-crawler/pkg/log"
)

// RepoWalker is satisfied by *Walker.
type RepoWalker interface {
	Walk(ctx context.Context, repo model.Repository, startPath string) ([]model.FileRecord, error)
}

type BatchRunner struct {
	Logger       log.Logger
	walker       RepoWalker
	sink         sink.Sink
	mode         Mode
	chunkCount   int
	concurrency  int
	skipExisting bool
	stats        *Stats
}

func NewBatchRunner(logger log.Logger, walker RepoWalker, opts Options, stats *Stats) *BatchRunner {
	if stats == nil {
		stats = &Stats{}
	}
	return &BatchRunner{
		Logger:       logger,
		walker:       walker,
		sink:         opts.Sink,
		mode:         opts.Mode,
		chunkCount:   opts.ChunkCount,
		concurrency:  opts.Concurrency,
		skipExisting: opts.SkipExisting,
		stats:        stats,
	}
}

// SplitChunks chia repos thành k đoạn liên tiếp. k-1 đoạn đầu có len/k phần
// tử, đoạn cuối nhận phần còn lại. k <= 0 coi như 1, k > len bị giới hạn về len.
func SplitChunks(repos []model.Repository, k int) [][]model.Repository {
	n := len(repos)
	if n == 0 {
		return nil
	}
	if k <= 0 {
		k = 1
	}
	if k > n {
		k = n
	}

	size := n / k
	chunks := make([][]model.Repository, 0, k)
	for i := 0; i < k-1; i++ {
		chunks = append(chunks, repos[i*size:(i+1)*size])
	}
	return append(chunks, repos[(k-1)*size:])
}

// Run walks every chunk and flushes it before starting the next one. It
// returns the records of all chunks processed in this run. A walk or flush
// error stops the run; chunks flushed earlier stay in the sink.
func (b *BatchRunner) Run(ctx context.Context, repos []model.Repository) ([]model.FileRecord, error) {
	chunks := SplitChunks(repos, b.chunkCount)
	b.Logger.Info(ctx, "Processing %d repositories in %d chunks (mode %s)", len(repos), len(chunks), b.mode)
	if err := b.prune(ctx, len(chunks)); err != nil {
		return nil, err
	}

	var all []model.FileRecord
	for i, part := range chunks {
		chunk := &model.Chunk{Index: i, Total: len(chunks), Mode: string(b.mode), Repositories: part}

		if b.skipExisting && b.alreadyFlushed(ctx, chunk) {
			b.stats.ChunksSkipped.Add(1)
			b.Logger.Info(ctx, "Chunk %s already in %s, skipping", chunk.Name(), b.sink.Name())
			continue
		}

		records, err := b.walkChunk(ctx, chunk)
		if err != nil {
			return all, fmt.Errorf("walk %s: %w", chunk.Name(), err)
		}
		chunk.Records = records

		if err := b.sink.Flush(ctx, chunk); err != nil {
			return all, fmt.Errorf("flush %s: %w", chunk.Name(), err)
		}
		b.stats.ChunksFlushed.Add(1)
		all = append(all, records...)
		b.Logger.Info(ctx, "Chunk %d/%d flushed to %s: %d repositories, %d records",
			i+1, len(chunks), b.sink.Name(), len(part), len(records))
	}
	return all, nil
}

// prune drops chunks a previous run with a larger chunk count left behind,
// their repositories are covered by this run's chunks.
func (b *BatchRunner) prune(ctx context.Context, keep int) error {
	pruner, ok := b.sink.(sink.Pruner)
	if !ok || keep == 0 {
		return nil
	}
	if err := pruner.Prune(ctx, string(b.mode), keep); err != nil {
		return fmt.Errorf("prune stale chunks in %s: %w", b.sink.Name(), err)
	}
	return nil
}

func (b *BatchRunner) alreadyFlushed(ctx context.Context, chunk *model.Chunk) bool {
	checker, ok := b.sink.(sink.Checkpointer)
	if !ok {
		return false
	}
	done, err := checker.Exists(ctx, chunk)
	if err != nil {
		b.Logger.Warn(ctx, "Cannot check %s in %s: %v", chunk.Name(), b.sink.Name(), err)
		return false
	}
	return done
}

func (b *BatchRunner) walkChunk(ctx context.Context, chunk *model.Chunk) ([]model.FileRecord, error) {
	results := make([][]model.FileRecord, len(chunk.Repositories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.concurrency, 1))
	for i, repo := range chunk.Repositories {
		g.Go(func() error {
			records, err := b.walker.Walk(gctx, repo, "")
			results[i] = records
			b.stats.Repositories.Add(1)
			if err != nil {
				return fmt.Errorf("%s: %w", repo.FullName, err)
			}
			b.Logger.Info(gctx, "[%s] %s: %d files", chunk.Name(), repo.FullName, len(records))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []model.FileRecord
	for _, r := range results {
		records = append(records, r...)
	}
	return records, nil
}
