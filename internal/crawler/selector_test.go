package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
)

var testCutoff = time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC)

func threeRevisions() []revision {
	return []revision{
		{"c3", "2023-01-01T00:00:00Z", "v3"},
		{"c2", "2022-06-01T00:00:00Z", "v2"},
		{"c1", "2021-01-01T00:00:00Z", "v1"},
	}
}

func newTestSelector(t *testing.T, api ContentsAPI, mode Mode) (*Selector, *Stats) {
	t.Helper()
	stats := &Stats{}
	s, err := NewSelector(discardLogger(), api, mode, testCutoff, 16, stats)
	require.NoError(t, err)
	return s, stats
}

func TestSelector_BeforePicksLastRevisionBeforeCutoff(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", threeRevisions()...)
	s, _ := newTestSelector(t, gh, ModeBefore)

	rec, err := s.Select(context.Background(), testRepo, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "v2", rec.Content)
	assert.Equal(t, "2022-06-01T00:00:00", rec.Timestamp)
	assert.Equal(t, "a.py", rec.FilePath)
	assert.Equal(t, "octo/app", rec.RepoName)
	assert.Equal(t, "https://github.com/octo/app", rec.RepoUrl)
	assert.Zero(t, gh.count("raw:"))
}

func TestSelector_AfterTakesNewest(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", threeRevisions()...)
	s, _ := newTestSelector(t, gh, ModeAfter)

	rec, err := s.Select(context.Background(), testRepo, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "v3", rec.Content)
	assert.Equal(t, "2023-01-01T00:00:00", rec.Timestamp)
	assert.Zero(t, gh.count("ref:"))
}

func TestSelector_AfterBadCommitDateIsCounted(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", revision{"c1", "yesterday", "v1"})
	s, stats := newTestSelector(t, gh, ModeAfter)

	rec, err := s.Select(context.Background(), testRepo, entry)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.EqualValues(t, 1, stats.FetchFailures.Load())
	assert.Zero(t, gh.count("raw:"))
}

func TestSelector_AllAfterCutoffEmitsNothing(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py",
		revision{"c2", "2023-05-01T00:00:00Z", "v2"},
		revision{"c1", "2022-11-01T00:00:00Z", "v1"}, // equal to cutoff is not before
	)
	s, stats := newTestSelector(t, gh, ModeBefore)

	rec, err := s.Select(context.Background(), testRepo, entry)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.EqualValues(t, 1, stats.TooManyCommits.Load())
}

func TestSelector_NoCommits(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py")
	for _, mode := range []Mode{ModeAfter, ModeBefore} {
		s, _ := newTestSelector(t, gh, mode)
		rec, err := s.Select(context.Background(), testRepo, entry)
		require.NoError(t, err)
		assert.Nil(t, rec, mode)
	}
}

func TestSelector_DecodeFailureTriesOlderCommit(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", threeRevisions()...)
	gh.refs["octo/app@c2:a.py"] = githubapi.ContentEnvelope{Encoding: "base64", Content: "//79"} // 0xff 0xfe 0xfd
	s, stats := newTestSelector(t, gh, ModeBefore)

	rec, err := s.Select(context.Background(), testRepo, entry)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "v1", rec.Content)
	assert.Equal(t, "2021-01-01T00:00:00", rec.Timestamp)
	assert.EqualValues(t, 1, stats.DecodeSkipped.Load())
	assert.Zero(t, stats.TooManyCommits.Load())
}

func TestSelector_HTTPErrorSkipsFile(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", threeRevisions()...)
	gh.fail["commits:octo/app:a.py"] = &githubapi.FetchError{Kind: githubapi.KindHTTP, StatusCode: 404}
	s, stats := newTestSelector(t, gh, ModeBefore)

	rec, err := s.Select(context.Background(), testRepo, entry)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.EqualValues(t, 1, stats.FetchFailures.Load())
}

func TestSelector_ExhaustedThrottleSkipsFile(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", threeRevisions()...)
	gh.fail["ref:octo/app@c2:a.py"] = &githubapi.FetchError{Kind: githubapi.KindThrottled, StatusCode: 403}
	s, stats := newTestSelector(t, gh, ModeBefore)

	rec, err := s.Select(context.Background(), testRepo, entry)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.EqualValues(t, 1, stats.FetchFailures.Load())
	// no fallback to c1 when the fetch itself failed
	assert.Zero(t, gh.count("ref:octo/app@c1"))
}

func TestSelector_TransportErrorPropagates(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", threeRevisions()...)
	gh.fail["raw:"+entry.DownloadUrl] = &githubapi.FetchError{Kind: githubapi.KindTransport}
	s, _ := newTestSelector(t, gh, ModeAfter)

	_, err := s.Select(context.Background(), testRepo, entry)
	assert.True(t, githubapi.IsFatal(err))
}

func TestSelector_CachesContent(t *testing.T) {
	gh := newFakeGitHub()
	entry := gh.addFile(testRepo.FullName, "a.py", threeRevisions()...)

	for _, mode := range []Mode{ModeAfter, ModeBefore} {
		s, _ := newTestSelector(t, gh, mode)
		first, err := s.Select(context.Background(), testRepo, entry)
		require.NoError(t, err)
		second, err := s.Select(context.Background(), testRepo, entry)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
	assert.Equal(t, 1, gh.count("raw:"))
	assert.Equal(t, 1, gh.count("ref:"))
}

func TestParseCommitDate(t *testing.T) {
	got, err := ParseCommitDate("2022-06-01T13:45:10Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 6, 1, 13, 45, 10, 0, time.UTC), got)

	got, err = ParseCommitDate("2022-06-01T13:45:10")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	_, err = ParseCommitDate("yesterday")
	assert.Error(t, err)
}

func TestBeforeCutoff(t *testing.T) {
	commits := []githubapi.CommitItem{
		commit("c4", "2023-01-01T00:00:00Z"),
		commit("bad", "not a date"),
		commit("c2", "2022-06-01T00:00:00Z"),
		commit("c1", "2021-01-01T00:00:00Z"),
	}
	got := BeforeCutoff(commits, testCutoff)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].Sha)
	assert.Equal(t, "c1", got[1].Sha)

	newest, ok := Newest(commits)
	assert.True(t, ok)
	assert.Equal(t, "c4", newest.Sha)
	_, ok = Newest(nil)
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" After ")
	require.NoError(t, err)
	assert.Equal(t, ModeAfter, m)
	_, err = ParseMode("during")
	assert.Error(t, err)
}
