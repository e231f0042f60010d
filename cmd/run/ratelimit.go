package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/internal/crawler"
	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/internal/rotator"
)

func NewRateLimitCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "Show the remaining API quota of every configured token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, config, err := root.load(false)
			if err != nil {
				return err
			}
			tokens, err := rotator.New(config.Tokens())
			if err != nil {
				return cfg.ErrNoTokens
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger, err := newLogger(config)
			if err != nil {
				return err
			}
			caller := githubapi.NewCaller(logger, githubapi.OptionsFromConfig(config), tokens)

			reports, err := crawler.CheckRateLimits(ctx, logger, caller)
			if err != nil {
				return err
			}
			failed := 0
			out := cmd.OutOrStdout()
			for _, r := range reports {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "%s\terror: %v\n", r.Credential, r.Err)
					continue
				}
				fmt.Fprintf(out, "%s\tcore %d/%d\tsearch %d/%d\treset %s\n",
					r.Credential, r.Core.Remaining, r.Core.Limit, r.Search.Remaining, r.Search.Limit,
					r.Core.ResetTime().Format("2006-01-02T15:04:05Z"))
			}
			if failed == len(reports) {
				return fmt.Errorf("all %d tokens failed", failed)
			}
			return nil
		},
	}
}
