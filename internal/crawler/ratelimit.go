package crawler

import (
	"context"
	"time"

	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/internal/rotator"
	"github.com/thep200/github-file-crawler/pkg/log"
)

type QuotaReport struct {
	Credential rotator.Credential
	Core       githubapi.RateBucket
	Search     githubapi.RateBucket
	Err        error
}

type RateLimitAPI interface {
	Tokens() *rotator.Rotator
	RateLimit(ctx context.Context, token rotator.Credential) (githubapi.RateLimitResponse, error)
}

// CheckRateLimits hỏi /rate_limit cho từng token và ghi log quota còn lại.
// Chỉ lỗi context mới dừng vòng lặp.
func CheckRateLimits(ctx context.Context, logger log.Logger, api RateLimitAPI) ([]QuotaReport, error) {
	credentials := api.Tokens().Credentials()
	reports := make([]QuotaReport, 0, len(credentials))
	for _, token := range credentials {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		status, err := api.RateLimit(ctx, token)
		report := QuotaReport{Credential: token, Core: status.Resources.Core, Search: status.Resources.Search, Err: err}
		reports = append(reports, report)
		if err != nil {
			logger.Error(ctx, "Token %s: %v", token, err)
			continue
		}
		logger.Info(ctx, "Token %s: core %d/%d (reset %s), search %d/%d (reset %s)",
			token,
			report.Core.Remaining, report.Core.Limit, report.Core.ResetTime().UTC().Format(time.RFC3339),
			report.Search.Remaining, report.Search.Limit, report.Search.ResetTime().UTC().Format(time.RFC3339))
	}
	return reports, nil
}
