package crawler

import (
	"context"
	"errors"
	"time"

	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/pkg/log"
)

type SearchAPI interface {
	SearchRepositories(ctx context.Context, q githubapi.SearchQuery) ([]githubapi.RepositoryItem, error)
}

// API is implemented by *githubapi.Caller.
type API interface {
	SearchAPI
	ContentsAPI
}

type Crawler interface {
	Crawl(ctx context.Context) error
}

// FileCrawler chạy toàn bộ pipeline: search, manifest, duyệt từng chunk rồi flush
type FileCrawler struct {
	Logger log.Logger
	opts   Options
	api    API
	runner *BatchRunner
	stats  *Stats
}

var ErrNoSink = errors.New("no output sink configured")

func NewFileCrawler(logger log.Logger, opts Options, api API) (*FileCrawler, error) {
	if opts.Sink == nil {
		return nil, ErrNoSink
	}
	stats := &Stats{}
	selector, err := NewSelector(logger, api, opts.Mode, opts.Cutoff, opts.CacheSize, stats)
	if err != nil {
		return nil, err
	}
	walker := NewWalker(logger, api, NewPathFilter(opts.IgnoreList), selector, opts.Extensions, stats)

	return &FileCrawler{
		Logger: logger,
		opts:   opts,
		api:    api,
		runner: NewBatchRunner(logger, walker, opts, stats),
		stats:  stats,
	}, nil
}

func (c *FileCrawler) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

func (c *FileCrawler) Crawl(ctx context.Context) error {
	startTime := time.Now()

	items, err := c.api.SearchRepositories(ctx, githubapi.SearchQuery{
		Language:        c.opts.Language,
		AdditionalQuery: c.opts.AdditionalQuery,
		CreatedFrom:     c.opts.Window.From,
		CreatedTo:       c.opts.Window.To,
		PerPage:         c.opts.PerPage,
		Limit:           c.opts.RepoLimit,
	})
	if err != nil {
		return err
	}
	repos := toRepositories(items)

	if c.opts.OutputDir != "" {
		path, err := WriteManifest(c.opts.OutputDir, items)
		if err != nil {
			return err
		}
		c.Logger.Info(ctx, "Saved %d repositories to %s", len(items), path)
	}

	records, err := c.runner.Run(ctx, repos)
	c.logCrawlResults(ctx, startTime, len(repos), len(records))
	return err
}

func (c *FileCrawler) logCrawlResults(ctx context.Context, startTime time.Time, repos, records int) {
	endTime := time.Now()
	s := c.stats.Snapshot()

	c.Logger.Info(ctx, "==== KẾT QUẢ CRAWL (%s) ====", c.opts.Mode)
	c.Logger.Info(ctx, "Thời gian bắt đầu: %s", startTime.Format(time.RFC3339))
	c.Logger.Info(ctx, "Thời gian kết thúc: %s", endTime.Format(time.RFC3339))
	c.Logger.Info(ctx, "Tổng thời gian thực hiện: %v", endTime.Sub(startTime))
	c.Logger.Info(ctx, "Số lượng repositories tìm được: %d, đã duyệt: %d", repos, s.Repositories)
	c.Logger.Info(ctx, "Số lượng file đã lưu: %d (đã xét %d, bỏ qua %d đường dẫn)", records, s.FilesSeen, s.Ignored)
	c.Logger.Info(ctx, "Chunk đã flush: %d, bỏ qua: %d", s.ChunksFlushed, s.ChunksSkipped)
	c.Logger.Info(ctx, "Too many commits: %d, decode skipped: %d, fetch failures: %d",
		s.TooManyCommits, s.DecodeSkipped, s.FetchFailures)
}
