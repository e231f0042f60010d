package crawler

import "sync/atomic"

// Stats counts what happened during a crawl. Safe for concurrent use.
type Stats struct {
	Repositories   atomic.Int64
	Directories    atomic.Int64
	Ignored        atomic.Int64
	FilesSeen      atomic.Int64
	FilesSelected  atomic.Int64
	TooManyCommits atomic.Int64
	DecodeSkipped  atomic.Int64
	FetchFailures  atomic.Int64
	ChunksFlushed  atomic.Int64
	ChunksSkipped  atomic.Int64
}

type StatsSnapshot struct {
	Repositories   int64
	Directories    int64
	Ignored        int64
	FilesSeen      int64
	FilesSelected  int64
	TooManyCommits int64
	DecodeSkipped  int64
	FetchFailures  int64
	ChunksFlushed  int64
	ChunksSkipped  int64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Repositories:   s.Repositories.Load(),
		Directories:    s.Directories.Load(),
		Ignored:        s.Ignored.Load(),
		FilesSeen:      s.FilesSeen.Load(),
		FilesSelected:  s.FilesSelected.Load(),
		TooManyCommits: s.TooManyCommits.Load(),
		DecodeSkipped:  s.DecodeSkipped.Load(),
		FetchFailures:  s.FetchFailures.Load(),
		ChunksFlushed:  s.ChunksFlushed.Load(),
		ChunksSkipped:  s.ChunksSkipped.Load(),
	}
}
