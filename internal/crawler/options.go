package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/internal/sink"
)

type Mode string

const (
	// ModeAfter lấy nội dung hiện tại và ngày của commit mới nhất
	ModeAfter Mode = "after"
	// ModeBefore lấy revision cuối cùng trước mốc cutoff
	ModeBefore Mode = "before"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAfter:
		return ModeAfter, nil
	case ModeBefore:
		return ModeBefore, nil
	}
	return "", fmt.Errorf("%w: %q", cfg.ErrInvalidMode, s)
}

// Window là khoảng ngày tạo repo dùng trong search query (YYYY-MM-DD)
type Window struct {
	From string
	To   string
}

// Options gom mọi tham số của một lần crawl. Được dựng một lần từ cfg.Config
// rồi truyền vào runner, không đọc lại config trong lúc chạy.
type Options struct {
	Language        string
	AdditionalQuery string
	Extensions      []string
	Window          Window
	RepoLimit       int
	PerPage         int
	Mode            Mode
	Cutoff          time.Time
	Tokens          []string
	IgnoreList      []string
	ChunkCount      int
	Concurrency     int
	CacheSize       int
	OutputDir       string
	SkipExisting    bool
	Sink            sink.Sink
}

func OptionsFromConfig(config *cfg.Config, out sink.Sink) (Options, error) {
	if err := config.Validate(); err != nil {
		return Options{}, err
	}
	mode, err := ParseMode(config.Crawl.Mode)
	if err != nil {
		return Options{}, err
	}
	cutoff, err := config.CutoffTime()
	if err != nil {
		return Options{}, err
	}

	ignore := config.Crawl.IgnoreList
	if len(ignore) == 0 {
		ignore = cfg.DefaultIgnoreList()
	}

	return Options{
		Language:        config.Search.Language,
		AdditionalQuery: config.Search.AdditionalQuery,
		Extensions:      config.Crawl.Extensions,
		Window:          Window{From: config.Search.CreatedFrom, To: config.Search.CreatedTo},
		RepoLimit:       config.Search.RepoLimit,
		PerPage:         config.GithubApi.PerPage,
		Mode:            mode,
		Cutoff:          cutoff,
		Tokens:          config.Tokens(),
		IgnoreList:      ignore,
		ChunkCount:      config.Crawl.ChunkCount,
		Concurrency:     config.Crawl.Concurrency,
		CacheSize:       config.Crawl.CacheSize,
		OutputDir:       config.Crawl.OutputDir,
		SkipExisting:    config.Crawl.SkipExisting,
		Sink:            out,
	}, nil
}
