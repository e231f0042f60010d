// Gói githubapi cung cấp một caller cho GitHub API.
// Caller gắn token hiện tại của rotator vào mỗi request, nhận diện rate limit
// và thử lại có giới hạn với token kế tiếp.

package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/internal/limiter"
	"github.com/thep200/github-file-crawler/internal/rotator"
	"github.com/thep200/github-file-crawler/pkg/log"
)

const (
	acceptJSON = "application/vnd.github.v3+json"
	acceptRaw  = "application/vnd.github.raw"
)

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond int
	CommitsPerPage    int
	// Requests that give up on transient errors in a row before the network
	// is treated as unavailable. 0 disables the check.
	MaxConsecutiveFailures int
	Retry                  RetryPolicy
}

func OptionsFromConfig(config *cfg.Config) Options {
	return Options{
		BaseURL:           config.GithubApi.ApiUrl,
		Timeout:           time.Duration(config.GithubApi.Timeout) * time.Second,
		RequestsPerSecond: config.GithubApi.RequestsPerSecond,
		CommitsPerPage:    config.GithubApi.CommitsPerPage,
		// cấu hình 0 cũng có nghĩa là tắt kiểm tra
		MaxConsecutiveFailures: config.Retry.MaxConsecutiveFailures,
		Retry: RetryPolicy{
			MaxAttempts:       config.Retry.MaxAttempts,
			RotateDelay:       time.Duration(config.Retry.RotateDelay) * time.Second,
			MaxWait:           time.Duration(config.Retry.MaxWait) * time.Second,
			FallbackReset:     time.Duration(config.Retry.FallbackReset) * time.Second,
			TransientAttempts: config.Retry.TransientAttempts,
			TransientDelay:    time.Duration(config.Retry.TransientDelay) * time.Second,
		},
	}
}

type Caller struct {
	Logger  log.Logger
	opts    Options
	tokens  *rotator.Rotator
	client  *http.Client
	limiter *limiter.RateLimiter
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
	// requests in a row that ended on transient errors
	failures atomic.Int32
}

type CallerOption func(*Caller)

func WithHTTPClient(client *http.Client) CallerOption {
	return func(c *Caller) {
		if client != nil {
			c.client = client
		}
	}
}

// WithSleep replaces the wait used between throttled attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) CallerOption {
	return func(c *Caller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

func WithClock(now func() time.Time) CallerOption {
	return func(c *Caller) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCaller(logger log.Logger, opts Options, tokens *rotator.Rotator, callerOpts ...CallerOption) *Caller {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.github.com"
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.CommitsPerPage <= 0 {
		opts.CommitsPerPage = 30
	}
	opts.Retry = opts.Retry.withDefaults()

	c := &Caller{
		Logger:  logger,
		opts:    opts,
		tokens:  tokens,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: limiter.NewRateLimiter(opts.RequestsPerSecond),
		sleep:   sleepContext,
		now:     time.Now,
	}
	for _, opt := range callerOpts {
		opt(c)
	}
	return c
}

func (c *Caller) Tokens() *rotator.Rotator {
	return c.tokens
}

// HandleRateLimit xử lý rate limit dựa trên thông tin từ header API.
// Trả về nil nếu response không phải rate limit.
func (c *Caller) HandleRateLimit(ctx context.Context, resp *http.Response, body []byte) *FetchError {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	rateRemaining := resp.Header.Get("X-RateLimit-Remaining")
	retryAfter := resp.Header.Get("Retry-After")
	mentionsLimit := strings.Contains(strings.ToLower(string(body)), "rate limit")
	if rateRemaining != "0" && retryAfter == "" && !mentionsLimit {
		return nil
	}

	fe := &FetchError{Kind: KindThrottled, StatusCode: resp.StatusCode}
	if resp.Request != nil {
		fe.URL = resp.Request.URL.String()
	}
	// Retry-After đi kèm secondary rate limit, X-RateLimit-Reset khi đó vẫn trỏ vào cửa sổ chính
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		fe.ResetAt = c.now().Add(time.Duration(seconds) * time.Second)
	} else if resetTimeInt, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		fe.ResetAt = time.Unix(resetTimeInt, 0)
	}
	return fe
}

// Get issues a GET with the current credential and, when throttled, sleeps,
// rotates to the next credential and re-issues the same request. Timeouts and
// connection resets are retried a few times with the same credential. Both
// loops are bounded by the retry policy.
func (c *Caller) Get(ctx context.Context, rawURL, accept string) ([]byte, http.Header, error) {
	policy := c.opts.Retry
	attempt, transient := 0, 0
	for {
		token := c.tokens.Current()
		body, header, err := c.once(ctx, rawURL, accept, token)
		if err == nil {
			return body, header, nil
		}

		var fe *FetchError
		if !errors.As(err, &fe) {
			return nil, nil, err
		}

		switch fe.Kind {
		case KindTransient:
			transient++
			if transient >= policy.TransientAttempts {
				return nil, nil, c.giveUp(ctx, fe, transient)
			}
			wait := policy.TransientWait(transient)
			c.Logger.Warn(ctx, "Request %s failed: %v. Thử lại sau %v (%d/%d)", rawURL, fe.Err, wait, transient+1, policy.TransientAttempts)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, nil, err
			}
			continue
		case KindThrottled:
		default:
			return nil, nil, err
		}

		attempt++
		if attempt >= policy.MaxAttempts {
			c.Logger.Error(ctx, "Rate limit persisted after %d attempts for %s", attempt, rawURL)
			return nil, nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		wait := policy.Delay(attempt, c.tokens.Len(), fe.ResetAt, c.now())
		if fe.ResetAt.IsZero() {
			c.Logger.Warn(ctx, "Rate limit hit with token %s! Không xác định được thời gian reset (nominal %v). Chờ %v rồi đổi token",
				token, policy.FallbackReset, wait)
		} else {
			c.Logger.Warn(ctx, "Rate limit hit with token %s! Reset lúc %v. Chờ %v rồi đổi token",
				token, fe.ResetAt.UTC().Format(time.RFC3339), wait.Round(time.Second))
		}

		if err := c.sleep(ctx, wait); err != nil {
			return nil, nil, err
		}
		next := c.tokens.RotateFrom(token)
		c.Logger.Info(ctx, "Switched token %s -> %s (attempt %d/%d)", token, next, attempt+1, policy.MaxAttempts)
	}
}

// giveUp trả về lỗi transient để nhánh hiện tại bị bỏ qua, trừ khi quá nhiều
// request liên tiếp cùng thất bại: khi đó coi như mất mạng.
func (c *Caller) giveUp(ctx context.Context, fe *FetchError, tries int) error {
	n := int(c.failures.Add(1))
	if limit := c.opts.MaxConsecutiveFailures; limit > 0 && n >= limit {
		c.Logger.Critical(ctx, "%d requests in a row failed, last %s: %v", n, fe.URL, fe.Err)
		return &FetchError{Kind: KindTransport, URL: fe.URL, Err: fmt.Errorf("%d consecutive requests failed: %w", n, fe.Err)}
	}
	c.Logger.Error(ctx, "Giving up on %s after %d tries: %v", fe.URL, tries, fe.Err)
	return fe
}

func (c *Caller) GetJSON(ctx context.Context, rawURL string, v interface{}) (http.Header, error) {
	body, header, err := c.Get(ctx, rawURL, acceptJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, &FetchError{Kind: KindDecode, URL: rawURL, Err: err}
	}
	return header, nil
}

func (c *Caller) once(ctx context.Context, rawURL, accept string, token rotator.Credential) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, &FetchError{Kind: KindHTTP, URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", token.Header())

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, &FetchError{Kind: roundTripKind(err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, &FetchError{Kind: KindTransient, URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	// server đã trả lời, mạng vẫn dùng được
	c.failures.Store(0)

	c.Logger.Debug(ctx, "GET %s -> %d (remaining %s)", rawURL, resp.StatusCode, resp.Header.Get("X-RateLimit-Remaining"))

	// Kiểm tra rate limit
	if fe := c.HandleRateLimit(ctx, resp, body); fe != nil {
		return nil, nil, fe
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &FetchError{Kind: KindHTTP, URL: rawURL, StatusCode: resp.StatusCode}
	}
	return body, resp.Header, nil
}

// ContentsURL builds /repos/{full_name}/contents/{path}.
func (c *Caller) ContentsURL(fullName, path string) string {
	u := c.opts.BaseURL + "/repos/" + fullName + "/contents"
	if p := escapePath(path); p != "" {
		u += "/" + p
	}
	return u
}

// ListContents returns every entry of a directory listing, following next links.
func (c *Caller) ListContents(ctx context.Context, listingURL string) ([]ContentEntry, error) {
	var entries []ContentEntry
	for next := listingURL; next != ""; {
		var page []ContentEntry
		header, err := c.GetJSON(ctx, next, &page)
		if err != nil {
			return entries, err
		}
		entries = append(entries, page...)
		next = NextLink(header.Get("Link"))
	}
	return entries, nil
}

// ListCommits returns one page of commits touching path, newest first.
func (c *Caller) ListCommits(ctx context.Context, fullName, path string) ([]CommitItem, error) {
	q := url.Values{}
	q.Set("path", path)
	q.Set("per_page", strconv.Itoa(c.opts.CommitsPerPage))
	commitsURL := fmt.Sprintf("%s/repos/%s/commits?%s", c.opts.BaseURL, fullName, q.Encode())

	var commits []CommitItem
	if _, err := c.GetJSON(ctx, commitsURL, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

func (c *Caller) RawContent(ctx context.Context, downloadURL string) (string, error) {
	body, _, err := c.Get(ctx, downloadURL, acceptRaw)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Caller) ContentAtRefURL(fullName, path, ref string) string {
	return c.ContentsURL(fullName, path) + "?ref=" + url.QueryEscape(ref)
}

func (c *Caller) ContentAtRef(ctx context.Context, fullName, path, ref string) (ContentEnvelope, error) {
	var envelope ContentEnvelope
	_, err := c.GetJSON(ctx, c.ContentAtRefURL(fullName, path, ref), &envelope)
	return envelope, err
}

// RateLimit queries /rate_limit with the given credential. The endpoint does
// not count against the quota, so there is no rotation here.
func (c *Caller) RateLimit(ctx context.Context, token rotator.Credential) (RateLimitResponse, error) {
	var status RateLimitResponse
	body, _, err := c.once(ctx, c.opts.BaseURL+"/rate_limit", acceptJSON, token)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, &FetchError{Kind: KindDecode, URL: c.opts.BaseURL + "/rate_limit", Err: err}
	}
	return status, nil
}

func escapePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
