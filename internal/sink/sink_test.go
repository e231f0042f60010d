package sink

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/internal/model"
	kafkapkg "github.com/thep200/github-file-crawler/pkg/kafka"
	"github.com/thep200/github-file-crawler/pkg/log"
)

func testLogger() log.Logger {
	l, _ := log.NewCslLogger()
	return l
}

func sampleChunk(index int) *model.Chunk {
	return &model.Chunk{
		Index: index,
		Mode:  "before",
		Repositories: []model.Repository{
			{FullName: "octo/app", HtmlUrl: "https://github.com/octo/app"},
		},
		Records: []model.FileRecord{
			{Content: "print('a')\n", Timestamp: "2022-06-01T00:00:00", FilePath: "a.py", RepoName: "octo/app", RepoUrl: "https://github.com/octo/app"},
			{Content: "x = 1\n", Timestamp: "2021-01-01T12:30:00", FilePath: "pkg/b.py", RepoName: "octo/app", RepoUrl: "https://github.com/octo/app"},
		},
	}
}

type uploadCall struct{ key, path string }

type fakeUploader struct {
	calls []uploadCall
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, key, localPath string) error {
	u.calls = append(u.calls, uploadCall{key, localPath})
	return u.err
}

func TestParquet_FlushRoundTrip(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	p := NewParquet(testLogger(), dir, up)
	chunk := sampleChunk(3)

	done, err := p.Exists(context.Background(), chunk)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, p.Flush(context.Background(), chunk))

	path := filepath.Join(dir, "before", "chunk_003.parquet")
	assert.Equal(t, path, p.Path(chunk))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed")

	records, err := ReadParquet(path)
	require.NoError(t, err)
	assert.Equal(t, chunk.Records, records)

	done, err = p.Exists(context.Background(), chunk)
	require.NoError(t, err)
	assert.True(t, done)

	require.Len(t, up.calls, 1)
	assert.Equal(t, "before/chunk_003.parquet", up.calls[0].key)
	assert.Equal(t, path, up.calls[0].path)
}

func TestParquet_ExistsNeedsMatchingRepositories(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewParquet(testLogger(), dir, nil)
	chunk := sampleChunk(0)
	chunk.Total = 2
	require.NoError(t, p.Flush(ctx, chunk))

	meta, err := p.ReadMeta(chunk)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, chunk.Fingerprint(), meta.Fingerprint)
	assert.Equal(t, []string{"octo/app"}, meta.Repositories)
	assert.Equal(t, 2, meta.Records)
	assert.Equal(t, 2, meta.Total)

	moved := sampleChunk(0)
	moved.Repositories = append(moved.Repositories, model.Repository{FullName: "octo/lib"})
	done, err := p.Exists(ctx, moved)
	require.NoError(t, err)
	assert.False(t, done, "same index, different repositories")

	// chunk file without a sidecar is not trusted
	require.NoError(t, os.Remove(p.MetaPath(chunk)))
	done, err = p.Exists(ctx, chunk)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestParquet_Prune(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewParquet(testLogger(), dir, nil)
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Flush(ctx, sampleChunk(i)))
	}
	other := sampleChunk(3)
	other.Mode = "after"
	require.NoError(t, p.Flush(ctx, other))

	require.NoError(t, p.Prune(ctx, "before", 2))

	left, err := filepath.Glob(filepath.Join(dir, "before", "*"))
	require.NoError(t, err)
	var names []string
	for _, f := range left {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"chunk_000.parquet", "chunk_000.json", "chunk_001.parquet", "chunk_001.json"}, names)

	done, err := p.Exists(ctx, other)
	require.NoError(t, err)
	assert.True(t, done, "other modes are untouched")
	require.NoError(t, p.Prune(ctx, "missing", 0))
}

func TestParquet_UploadFailureKeepsLocalFile(t *testing.T) {
	dir := t.TempDir()
	p := NewParquet(testLogger(), dir, &fakeUploader{err: errors.New("no bucket")})
	require.NoError(t, p.Flush(context.Background(), sampleChunk(0)))

	_, err := os.Stat(filepath.Join(dir, "before", "chunk_000.parquet"))
	assert.NoError(t, err)
}

func TestSqlite_FlushUpsertAndCheckpoint(t *testing.T) {
	ctx := context.Background()
	s, err := NewSqlite(testLogger(), filepath.Join(t.TempDir(), "out", "files.db"))
	require.NoError(t, err)
	defer s.Close()

	chunk := sampleChunk(1)
	done, err := s.Exists(ctx, chunk)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.Flush(ctx, chunk))
	// flush lần hai không tạo bản ghi trùng
	chunk.Records[0].Content = "print('b')\n"
	require.NoError(t, s.Flush(ctx, chunk))

	records, err := s.Records(ctx, "before")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "print('b')\n", records[0].Content)
	assert.Equal(t, "pkg/b.py", records[1].FilePath)

	done, err = s.Exists(ctx, chunk)
	require.NoError(t, err)
	assert.True(t, done)

	other := sampleChunk(1)
	other.Mode = "after"
	done, err = s.Exists(ctx, other)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestSqlite_FingerprintAndPrune(t *testing.T) {
	ctx := context.Background()
	s, err := NewSqlite(testLogger(), filepath.Join(t.TempDir(), "files.db"))
	require.NoError(t, err)
	defer s.Close()

	first, second := sampleChunk(0), sampleChunk(1)
	second.Repositories = []model.Repository{{FullName: "octo/lib"}}
	second.Records = []model.FileRecord{{FilePath: "lib.py", RepoName: "octo/lib"}}
	require.NoError(t, s.Flush(ctx, first))
	require.NoError(t, s.Flush(ctx, second))

	moved := sampleChunk(0)
	moved.Repositories = append(moved.Repositories, second.Repositories...)
	done, err := s.Exists(ctx, moved)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.Prune(ctx, "before", 1))
	done, err = s.Exists(ctx, second)
	require.NoError(t, err)
	assert.False(t, done)
	done, err = s.Exists(ctx, first)
	require.NoError(t, err)
	assert.True(t, done)

	records, err := s.Records(ctx, "before")
	require.NoError(t, err)
	assert.Len(t, records, 2, "records of pruned chunks are removed")
}

func TestSqlite_AddsFingerprintColumnToOldDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "files.db")
	old, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE flushed_chunks (
		mode TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		records INTEGER NOT NULL,
		flushed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (mode, chunk_index)
	)`)
	require.NoError(t, err)
	_, err = old.Exec(`INSERT INTO flushed_chunks (mode, chunk_index, records) VALUES ('before', 0, 2)`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	s, err := NewSqlite(testLogger(), path)
	require.NoError(t, err)
	defer s.Close()

	// checkpoint without a fingerprint does not count
	done, err := s.Exists(ctx, sampleChunk(0))
	require.NoError(t, err)
	assert.False(t, done)
	require.NoError(t, s.Flush(ctx, sampleChunk(0)))
	done, err = s.Exists(ctx, sampleChunk(0))
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMulti_Prune(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewParquet(testLogger(), dir, nil)
	require.NoError(t, p.Flush(ctx, sampleChunk(1)))

	require.NoError(t, NewMulti(&recordingSink{name: "plain"}, p).Prune(ctx, "before", 1))
	done, err := p.Exists(ctx, sampleChunk(1))
	require.NoError(t, err)
	assert.False(t, done)
}

type recordingSink struct {
	name    string
	flushed []int
	err     error
	exists  bool
	closed  bool
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Flush(_ context.Context, chunk *model.Chunk) error {
	if r.err != nil {
		return r.err
	}
	r.flushed = append(r.flushed, chunk.Index)
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

type checkpointSink struct {
	recordingSink
}

func (c *checkpointSink) Exists(context.Context, *model.Chunk) (bool, error) {
	return c.exists, nil
}

func TestMulti(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b", err: errors.New("disk full")}
	c := &recordingSink{name: "c"}
	m := NewMulti(a, b, c)

	assert.Equal(t, "a+b+c", m.Name())
	err := m.Flush(context.Background(), sampleChunk(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: disk full")
	assert.Equal(t, []int{0}, a.flushed)
	assert.Empty(t, c.flushed)

	require.NoError(t, m.Close())
	assert.True(t, a.closed && b.closed && c.closed)
}

func TestMulti_Exists(t *testing.T) {
	ctx := context.Background()
	plain := &recordingSink{name: "plain"}

	done, err := NewMulti(plain).Exists(ctx, sampleChunk(0))
	require.NoError(t, err)
	assert.False(t, done, "no checkpointing sink means nothing to skip")

	yes := &checkpointSink{recordingSink{name: "yes", exists: true}}
	no := &checkpointSink{recordingSink{name: "no"}}

	done, _ = NewMulti(plain, yes).Exists(ctx, sampleChunk(0))
	assert.True(t, done)
	done, _ = NewMulti(yes, no).Exists(ctx, sampleChunk(0))
	assert.False(t, done)
}

type fakePublisher struct {
	batches [][]kafkapkg.Message
}

func (f *fakePublisher) PublishBatch(_ context.Context, messages []kafkapkg.Message) error {
	f.batches = append(f.batches, messages)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestKafka_FlushOneBatchKeyedByRepo(t *testing.T) {
	pub := &fakePublisher{}
	k := NewKafka(testLogger(), pub)
	require.NoError(t, k.Flush(context.Background(), sampleChunk(2)))

	require.Len(t, pub.batches, 1)
	require.Len(t, pub.batches[0], 2)
	msg := pub.batches[0][1]
	assert.Equal(t, "octo/app", msg.Key)
	fm, ok := msg.Value.(model.FileMessage)
	require.True(t, ok)
	assert.Equal(t, 2, fm.Chunk)
	assert.Equal(t, "before", fm.Mode)
	assert.Equal(t, "pkg/b.py", fm.Record.FilePath)
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	config := &cfg.Config{
		Crawl:  cfg.Crawl{OutputDir: dir},
		Sink:   cfg.Sink{Kinds: []string{"parquet", "sqlite"}},
		Sqlite: cfg.Sqlite{Path: filepath.Join(dir, "files.db")},
	}
	s, err := FromConfig(context.Background(), config, testLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "parquet+sqlite", s.Name())

	config.Sink.Kinds = []string{"csv"}
	_, err = FromConfig(context.Background(), config, testLogger())
	assert.ErrorIs(t, err, cfg.ErrUnknownSink)

	config.Sink.Kinds = []string{"kafka"}
	_, err = FromConfig(context.Background(), config, testLogger())
	assert.ErrorIs(t, err, kafkapkg.ErrNoBrokers)
}
