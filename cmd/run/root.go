package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/pkg/log"
)

type rootFlags struct {
	configDir  string
	configName string
	envFile    string
}

// NewRootCmd creates the crawler command tree.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "Crawl source files of GitHub repositories into chunked datasets",
		Long: `crawler searches GitHub repositories by language and creation date, walks
their trees and records one snapshot per matching file: the current content
(mode after) or the last revision before a cutoff instant (mode before).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configDir, "config-dir", "cfg/yaml", "Directory containing the config file")
	cmd.PersistentFlags().StringVar(&flags.configName, "config-name", "mode", "Config file name without extension")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Optional dotenv file loaded before the config")

	cmd.AddCommand(NewRunCmd(flags))
	cmd.AddCommand(NewRateLimitCmd(flags))
	return cmd
}

// load đọc .env (nếu có), file cấu hình và biến môi trường CRAWLER_*
func (f *rootFlags) load(watch bool) (*cfg.ViperLoader, *cfg.Config, error) {
	if err := godotenv.Load(f.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load %s: %w", f.envFile, err)
	}

	loader, err := cfg.NewViperLoader(
		cfg.WithConfigPath(f.configDir),
		cfg.WithConfigName(f.configName),
		cfg.WithWatch(watch),
	)
	if err != nil {
		return nil, nil, err
	}
	config, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	return loader, config, nil
}

func newLogger(config *cfg.Config) (log.Logger, error) {
	logger, err := log.NewLogger(log.NewCslLoggerWith(os.Stderr, log.ParseLevel(config.App.LogLevel)))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func watchConfig(ctx context.Context, loader *cfg.ViperLoader, logger log.Logger) {
	loader.RegisterConfigChangeCallback(func(next *cfg.Config) {
		logger.Notice(ctx, "Config changed (mode %s, %d tokens); the running crawl keeps its snapshot",
			next.Crawl.Mode, len(next.Tokens()))
	})
}
