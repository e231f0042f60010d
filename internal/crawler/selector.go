package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/log"
)

// TimestampLayout là định dạng cột timestamp của FileRecord (UTC, không có Z)
const TimestampLayout = "2006-01-02T15:04:05"

// errUndecodable đánh dấu revision có envelope hợp lệ nhưng không phải text
var errUndecodable = errors.New("undecodable revision")

// ContentsAPI is the part of the GitHub client the walker and selector use.
type ContentsAPI interface {
	ContentsURL(fullName, path string) string
	ListContents(ctx context.Context, listingURL string) ([]githubapi.ContentEntry, error)
	ListCommits(ctx context.Context, fullName, path string) ([]githubapi.CommitItem, error)
	RawContent(ctx context.Context, downloadURL string) (string, error)
	ContentAtRef(ctx context.Context, fullName, path, ref string) (githubapi.ContentEnvelope, error)
}

type Selector struct {
	Logger log.Logger
	api    ContentsAPI
	mode   Mode
	cutoff time.Time
	cache  *lru.Cache[string, string]
	stats  *Stats
}

func NewSelector(logger log.Logger, api ContentsAPI, mode Mode, cutoff time.Time, cacheSize int, stats *Stats) (*Selector, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Selector{
		Logger: logger,
		api:    api,
		mode:   mode,
		cutoff: cutoff.UTC(),
		cache:  cache,
		stats:  stats,
	}, nil
}

// Select chọn snapshot của một file theo mode. Trả về nil, nil khi file không
// có revision phù hợp hoặc bị bỏ qua do lỗi không nghiêm trọng.
func (s *Selector) Select(ctx context.Context, repo model.Repository, entry githubapi.ContentEntry) (*model.FileRecord, error) {
	commits, err := s.api.ListCommits(ctx, repo.FullName, entry.Path)
	if err != nil {
		return nil, s.skip(ctx, "list commits", repo.FullName+"/"+entry.Path, err)
	}

	if s.mode == ModeAfter {
		return s.selectAfter(ctx, repo, entry, commits)
	}
	return s.selectBefore(ctx, repo, entry, commits)
}

func (s *Selector) selectAfter(ctx context.Context, repo model.Repository, entry githubapi.ContentEntry, commits []githubapi.CommitItem) (*model.FileRecord, error) {
	commit, ok := Newest(commits)
	if !ok {
		s.Logger.Debug(ctx, "No commits for %s/%s", repo.FullName, entry.Path)
		return nil, nil
	}
	date, err := ParseCommitDate(commit.Commit.Committer.Date)
	if err != nil {
		s.stats.FetchFailures.Add(1)
		s.Logger.Warn(ctx, "Bad commit date %q for %s/%s: %v", commit.Commit.Committer.Date, repo.FullName, entry.Path, err)
		return nil, nil
	}

	content, err := s.rawContent(ctx, entry.DownloadUrl)
	if err != nil {
		return nil, s.skip(ctx, "download", repo.FullName+"/"+entry.Path, err)
	}
	return newRecord(repo, entry.Path, content, date), nil
}

func (s *Selector) selectBefore(ctx context.Context, repo model.Repository, entry githubapi.ContentEntry, commits []githubapi.CommitItem) (*model.FileRecord, error) {
	candidates := BeforeCutoff(commits, s.cutoff)
	for _, commit := range candidates {
		content, err := s.contentAtRef(ctx, repo.FullName, entry.Path, commit.Sha)
		if err != nil {
			if errors.Is(err, errUndecodable) {
				s.stats.DecodeSkipped.Add(1)
				s.Logger.Warn(ctx, "Cannot decode %s/%s@%s, trying older commit: %v", repo.FullName, entry.Path, shortSha(commit.Sha), err)
				continue
			}
			return nil, s.skip(ctx, "content at ref", repo.FullName+"/"+entry.Path, err)
		}
		// BeforeCutoff chỉ giữ commit có ngày hợp lệ
		date, _ := ParseCommitDate(commit.Commit.Committer.Date)
		return newRecord(repo, entry.Path, content, date), nil
	}

	if len(candidates) == 0 {
		s.stats.TooManyCommits.Add(1)
		s.Logger.Info(ctx, "Too many commits: %s/%s (%d fetched, none before %s)",
			repo.FullName, entry.Path, len(commits), s.cutoff.Format(TimestampLayout))
	}
	return nil, nil
}

// skip ghi log và đếm lỗi không nghiêm trọng. Lỗi transport và context vẫn
// được trả về để dừng cả lần chạy.
func (s *Selector) skip(ctx context.Context, what, target string, err error) error {
	if githubapi.IsFatal(err) {
		return err
	}
	s.stats.FetchFailures.Add(1)
	s.Logger.Error(ctx, "Skip %s (%s): %v", target, what, err)
	return nil
}

func (s *Selector) rawContent(ctx context.Context, downloadURL string) (string, error) {
	if content, ok := s.cache.Get(downloadURL); ok {
		return content, nil
	}
	content, err := s.api.RawContent(ctx, downloadURL)
	if err != nil {
		return "", err
	}
	s.cache.Add(downloadURL, content)
	return content, nil
}

func (s *Selector) contentAtRef(ctx context.Context, fullName, path, sha string) (string, error) {
	key := fullName + "@" + sha + ":" + path
	if content, ok := s.cache.Get(key); ok {
		return content, nil
	}
	envelope, err := s.api.ContentAtRef(ctx, fullName, path, sha)
	if err != nil {
		return "", err
	}
	content, err := githubapi.DecodeContent(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errUndecodable, err)
	}
	s.cache.Add(key, content)
	return content, nil
}

// ParseCommitDate parses a GitHub commit date, dropping the trailing Z and
// reading the rest as UTC.
func ParseCommitDate(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, strings.TrimSuffix(s, "Z"), time.UTC)
}

// Newest trả về commit đầu tiên (API sắp xếp mới nhất trước)
func Newest(commits []githubapi.CommitItem) (githubapi.CommitItem, bool) {
	if len(commits) == 0 {
		return githubapi.CommitItem{}, false
	}
	return commits[0], true
}

// BeforeCutoff keeps the commits dated strictly earlier than cutoff, newest
// first. Commits with an unparseable date are dropped.
func BeforeCutoff(commits []githubapi.CommitItem, cutoff time.Time) []githubapi.CommitItem {
	var out []githubapi.CommitItem
	for _, c := range commits {
		date, err := ParseCommitDate(c.Commit.Committer.Date)
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

func newRecord(repo model.Repository, path, content string, date time.Time) *model.FileRecord {
	return &model.FileRecord{
		Content:   content,
		Timestamp: date.UTC().Format(TimestampLayout),
		FilePath:  path,
		RepoName:  repo.FullName,
		RepoUrl:   repo.HtmlUrl,
	}
}

func shortSha(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
