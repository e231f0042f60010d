package cfg

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoTokens        = errors.New("no github access tokens configured")
	ErrNoExtensions    = errors.New("no file extensions configured")
	ErrInvalidMode     = errors.New("invalid crawl mode: must be \"after\" or \"before\"")
	ErrInvalidCutoff   = errors.New("invalid cutoff: must be an RFC3339 instant")
	ErrInvalidWindow   = errors.New("invalid search window: dates must be YYYY-MM-DD and from <= to")
	ErrInvalidAttempts = errors.New("invalid retry.max_attempts: must be positive")
	ErrUnknownSink     = errors.New("unknown sink kind")
)

const dateLayout = "2006-01-02"

func (c *Config) Validate() error {
	if len(c.Tokens()) == 0 {
		return ErrNoTokens
	}
	if len(c.Crawl.Extensions) == 0 {
		return ErrNoExtensions
	}
	switch strings.ToLower(c.Crawl.Mode) {
	case "after", "before":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Crawl.Mode)
	}
	if _, err := c.CutoffTime(); err != nil {
		return err
	}
	from, errFrom := time.Parse(dateLayout, c.Search.CreatedFrom)
	to, errTo := time.Parse(dateLayout, c.Search.CreatedTo)
	if errFrom != nil || errTo != nil || to.Before(from) {
		return ErrInvalidWindow
	}
	if c.Retry.MaxAttempts <= 0 {
		return ErrInvalidAttempts
	}
	for _, kind := range c.Sink.Kinds {
		switch strings.ToLower(kind) {
		case "parquet", "mysql", "sqlite", "kafka":
		default:
			return fmt.Errorf("%w: %q", ErrUnknownSink, kind)
		}
	}
	return nil
}

// Tokens trả về danh sách token đã loại bỏ khoảng trắng và token rỗng
func (c *Config) Tokens() []string {
	tokens := make([]string, 0, len(c.GithubApi.AccessTokens))
	for _, raw := range c.GithubApi.AccessTokens {
		// env values arrive as one comma separated string
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	return tokens
}

func (c *Config) CutoffTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Crawl.Cutoff)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidCutoff, c.Crawl.Cutoff)
	}
	return t.UTC(), nil
}
