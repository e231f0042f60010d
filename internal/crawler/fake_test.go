package crawler

import (
	"context"
	"encoding/base64"
	"io"
	"sync"

	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/log"
)

func discardLogger() log.Logger {
	return log.NewCslLoggerWith(io.Discard, log.LevelDebug)
}

// fakeGitHub serves a fixed repository snapshot from memory.
type fakeGitHub struct {
	mu       sync.Mutex
	listings map[string][]githubapi.ContentEntry
	commits  map[string][]githubapi.CommitItem
	raw      map[string]string
	refs     map[string]githubapi.ContentEnvelope
	fail     map[string]error
	calls    map[string]int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		listings: map[string][]githubapi.ContentEntry{},
		commits:  map[string][]githubapi.CommitItem{},
		raw:      map[string]string{},
		refs:     map[string]githubapi.ContentEnvelope{},
		fail:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeGitHub) record(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	return f.fail[key]
}

func (f *fakeGitHub) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.calls {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			n += v
		}
	}
	return n
}

func (f *fakeGitHub) ContentsURL(fullName, path string) string {
	return "mem://" + fullName + "/" + path
}

func (f *fakeGitHub) ListContents(_ context.Context, listingURL string) ([]githubapi.ContentEntry, error) {
	if err := f.record("list:" + listingURL); err != nil {
		return nil, err
	}
	return f.listings[listingURL], nil
}

func (f *fakeGitHub) ListCommits(_ context.Context, fullName, path string) ([]githubapi.CommitItem, error) {
	if err := f.record("commits:" + fullName + ":" + path); err != nil {
		return nil, err
	}
	return f.commits[fullName+":"+path], nil
}

func (f *fakeGitHub) RawContent(_ context.Context, downloadURL string) (string, error) {
	if err := f.record("raw:" + downloadURL); err != nil {
		return "", err
	}
	return f.raw[downloadURL], nil
}

func (f *fakeGitHub) ContentAtRef(_ context.Context, fullName, path, ref string) (githubapi.ContentEnvelope, error) {
	key := fullName + "@" + ref + ":" + path
	if err := f.record("ref:" + key); err != nil {
		return githubapi.ContentEnvelope{}, err
	}
	return f.refs[key], nil
}

func (f *fakeGitHub) SearchRepositories(context.Context, githubapi.SearchQuery) ([]githubapi.RepositoryItem, error) {
	return nil, nil
}

func (f *fakeGitHub) addDir(repo, path string, entries ...githubapi.ContentEntry) {
	f.listings[f.ContentsURL(repo, path)] = entries
}

// addFile registers a file with its commit history, newest first, and the
// text of each revision.
func (f *fakeGitHub) addFile(repo, path string, history ...revision) githubapi.ContentEntry {
	downloadURL := "raw://" + repo + "/" + path
	var commits []githubapi.CommitItem
	for _, rev := range history {
		commits = append(commits, commit(rev.sha, rev.date))
		f.refs[repo+"@"+rev.sha+":"+path] = githubapi.ContentEnvelope{
			Path:     path,
			Encoding: "base64",
			Content:  base64.StdEncoding.EncodeToString([]byte(rev.text)),
		}
	}
	f.commits[repo+":"+path] = commits
	if len(history) > 0 {
		f.raw[downloadURL] = history[0].text
	}
	return fileEntry(path, downloadURL)
}

type revision struct {
	sha, date, text string
}

func commit(sha, date string) githubapi.CommitItem {
	return githubapi.CommitItem{Sha: sha, Commit: githubapi.CommitDetail{Committer: githubapi.CommitPerson{Date: date}}}
}

func fileEntry(path, downloadURL string) githubapi.ContentEntry {
	return githubapi.ContentEntry{Name: baseName(path), Path: path, Type: githubapi.TypeFile, DownloadUrl: downloadURL}
}

func dirEntry(path string) githubapi.ContentEntry {
	return githubapi.ContentEntry{Name: baseName(path), Path: path, Type: githubapi.TypeDir}
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

var testRepo = model.Repository{FullName: "octo/app", HtmlUrl: "https://github.com/octo/app"}
