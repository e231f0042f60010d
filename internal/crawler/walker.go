package crawler

import (
	"context"
	"strings"

	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/log"
)

// Walker duyệt đệ quy cây thư mục của một repo qua contents API
type Walker struct {
	Logger     log.Logger
	api        ContentsAPI
	filter     *PathFilter
	selector   *Selector
	extensions []string
	stats      *Stats
}

func NewWalker(logger log.Logger, api ContentsAPI, filter *PathFilter, selector *Selector, extensions []string, stats *Stats) *Walker {
	if stats == nil {
		stats = &Stats{}
	}
	return &Walker{
		Logger:     logger,
		api:        api,
		filter:     filter,
		selector:   selector,
		extensions: extensions,
		stats:      stats,
	}
}

// Walk returns the selected records under startPath ("" is the repo root) in
// listing order. Only transport failures and cancellation are returned.
func (w *Walker) Walk(ctx context.Context, repo model.Repository, startPath string) ([]model.FileRecord, error) {
	return w.walkDir(ctx, repo, w.api.ContentsURL(repo.FullName, startPath), startPath)
}

func (w *Walker) walkDir(ctx context.Context, repo model.Repository, listingURL, dirPath string) ([]model.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := w.api.ListContents(ctx, listingURL)
	if err != nil {
		if githubapi.IsFatal(err) {
			return nil, err
		}
		// các trang đã lấy được vẫn được duyệt
		w.stats.FetchFailures.Add(1)
		w.Logger.Error(ctx, "Cannot list %s/%s: %v", repo.FullName, dirPath, err)
	}
	w.stats.Directories.Add(1)

	var records []model.FileRecord
	for _, entry := range entries {
		if w.filter.ShouldIgnore(entry.Path) {
			w.stats.Ignored.Add(1)
			continue
		}

		switch entry.Type {
		case githubapi.TypeDir:
			next := entry.Url
			if next == "" {
				next = w.api.ContentsURL(repo.FullName, entry.Path)
			}
			sub, err := w.walkDir(ctx, repo, next, entry.Path)
			records = append(records, sub...)
			if err != nil {
				return records, err
			}
		case githubapi.TypeFile:
			if !w.matches(entry.Name) {
				continue
			}
			w.stats.FilesSeen.Add(1)
			record, err := w.selector.Select(ctx, repo, entry)
			if err != nil {
				return records, err
			}
			if record != nil {
				w.stats.FilesSelected.Add(1)
				w.Logger.Info(ctx, "+ %s/%s (%s)", repo.FullName, record.FilePath, record.Timestamp)
				records = append(records, *record)
			}
		}
	}
	return records, nil
}

func (w *Walker) matches(name string) bool {
	for _, ext := range w.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
