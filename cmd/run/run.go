package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/internal/crawler"
	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/internal/rotator"
	"github.com/thep200/github-file-crawler/internal/sink"
	"github.com/thep200/github-file-crawler/pkg/log"
)

type Handler struct {
	Crawler crawler.Crawler
	Logger  log.Logger
}

func NewHandler(crawler crawler.Crawler, logger log.Logger) *Handler {
	return &Handler{
		Crawler: crawler,
		Logger:  logger,
	}
}

type runFlags struct {
	mode         string
	chunks       int
	skipExisting bool
}

func NewRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search repositories and crawl their files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, config, err := root.load(true)
			if err != nil {
				return err
			}
			flags.apply(cmd, config)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger, err := newLogger(config)
			if err != nil {
				return err
			}
			watchConfig(ctx, loader, logger)
			return runCrawl(ctx, config, logger)
		},
	}

	cmd.Flags().StringVar(&flags.mode, "mode", "", "Snapshot mode: after or before (overrides crawl.mode)")
	cmd.Flags().IntVar(&flags.chunks, "chunks", 0, "Number of chunks (overrides crawl.chunk_count)")
	cmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "Skip chunks the sink already has")
	return cmd
}

func (f *runFlags) apply(cmd *cobra.Command, config *cfg.Config) {
	if cmd.Flags().Changed("mode") {
		config.Crawl.Mode = f.mode
	}
	if cmd.Flags().Changed("chunks") {
		config.Crawl.ChunkCount = f.chunks
	}
	if cmd.Flags().Changed("skip-existing") {
		config.Crawl.SkipExisting = f.skipExisting
	}
}

func runCrawl(ctx context.Context, config *cfg.Config, logger log.Logger) error {
	if err := config.Validate(); err != nil {
		return err
	}

	out, err := sink.FromConfig(ctx, config, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Error(ctx, "Close sink %s: %v", out.Name(), err)
		}
	}()

	opts, err := crawler.OptionsFromConfig(config, out)
	if err != nil {
		return err
	}
	tokens, err := rotator.New(opts.Tokens)
	if err != nil {
		return err
	}
	caller := githubapi.NewCaller(logger, githubapi.OptionsFromConfig(config), tokens)

	c, err := crawler.NewFileCrawler(logger, opts, caller)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Starting GitHub file crawler %s (mode %s, %d tokens, sink %s)",
		config.App.Version, opts.Mode, tokens.Len(), out.Name())
	handler := NewHandler(c, logger)
	if err := handler.Crawler.Crawl(ctx); err != nil {
		logger.Error(ctx, "Failed! %v", err)
		return err
	}
	logger.Info(ctx, "Successfully!")
	return nil
}
