package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mode.yaml"), []byte(body), 0o600))
	return dir
}

func TestViperLoader_Load(t *testing.T) {
	dir := writeConfig(t, `
github_api:
  access_tokens: ["a", "b"]
crawl:
  mode: after
  chunk_count: 7
`)
	loader, err := NewViperLoader(WithConfigPath(dir), WithWatch(false))
	require.NoError(t, err)

	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, config.Tokens())
	assert.Equal(t, "after", config.Crawl.Mode)
	assert.Equal(t, 7, config.Crawl.ChunkCount)
	// defaults fill what the file leaves out
	assert.Equal(t, "https://api.github.com", config.GithubApi.ApiUrl)
	assert.Equal(t, 10, config.Retry.MaxAttempts)
	assert.Equal(t, 3, config.Retry.TransientAttempts)
	assert.Equal(t, 5, config.Retry.MaxConsecutiveFailures)
	assert.Equal(t, 1000000, config.Kafka.MaxMessageBytes)
	assert.Equal(t, []string{".py"}, config.Crawl.Extensions)
	require.NoError(t, config.Validate())
}

func TestViperLoader_EnvOverride(t *testing.T) {
	dir := writeConfig(t, "app:\n  name: test\n")
	t.Setenv("CRAWLER_GITHUB_API_ACCESS_TOKENS", "tok1, tok2,,tok3")
	t.Setenv("CRAWLER_CRAWL_MODE", "after")

	loader, err := NewViperLoader(WithConfigPath(dir), WithWatch(false))
	require.NoError(t, err)
	config, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"tok1", "tok2", "tok3"}, config.Tokens())
	assert.Equal(t, "after", config.Crawl.Mode)
}

func TestViperLoader_MissingFile(t *testing.T) {
	loader, err := NewViperLoader(WithConfigPath(t.TempDir()), WithWatch(false))
	require.NoError(t, err)
	_, err = loader.Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"ok", func(*Config) {}, nil},
		{"no tokens", func(c *Config) { c.GithubApi.AccessTokens = []string{" ", ""} }, ErrNoTokens},
		{"no extensions", func(c *Config) { c.Crawl.Extensions = nil }, ErrNoExtensions},
		{"bad mode", func(c *Config) { c.Crawl.Mode = "during" }, ErrInvalidMode},
		{"bad cutoff", func(c *Config) { c.Crawl.Cutoff = "2022-11-01" }, ErrInvalidCutoff},
		{"reversed window", func(c *Config) { c.Search.CreatedFrom = "2024-01-01" }, ErrInvalidWindow},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, ErrInvalidAttempts},
		{"unknown sink", func(c *Config) { c.Sink.Kinds = []string{"csv"} }, ErrUnknownSink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, _ := NewMockLoader()
			config, err := mock.Load()
			require.NoError(t, err)
			tt.mutate(config)

			err = config.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestConfig_CutoffTime(t *testing.T) {
	config := &Config{Crawl: Crawl{Cutoff: "2022-11-01T02:00:00+02:00"}}
	cutoff, err := config.CutoffTime()
	require.NoError(t, err)
	assert.Equal(t, "2022-11-01T00:00:00Z", cutoff.Format("2006-01-02T15:04:05Z07:00"))
}
