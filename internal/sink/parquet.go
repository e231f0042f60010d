package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/log"
)

// Uploader is implemented by *objstore.Store.
type Uploader interface {
	Upload(ctx context.Context, key, localPath string) error
}

// Parquet ghi mỗi chunk thành {dir}/{mode}/chunk_NNN.parquet, kèm
// chunk_NNN.json ghi lại chunk đó gồm những repo nào.
type Parquet struct {
	Logger   log.Logger
	dir      string
	uploader Uploader
}

func NewParquet(logger log.Logger, dir string, uploader Uploader) *Parquet {
	return &Parquet{Logger: logger, dir: dir, uploader: uploader}
}

func (p *Parquet) Name() string {
	return "parquet"
}

func (p *Parquet) Path(chunk *model.Chunk) string {
	return filepath.Join(p.dir, chunk.Mode, chunk.Name()+".parquet")
}

// ChunkMeta is the sidecar written next to each parquet chunk.
type ChunkMeta struct {
	Fingerprint  string   `json:"fingerprint"`
	Total        int      `json:"total"`
	Records      int      `json:"records"`
	Repositories []string `json:"repositories"`
}

func (p *Parquet) MetaPath(chunk *model.Chunk) string {
	return filepath.Join(p.dir, chunk.Mode, chunk.Name()+".json")
}

// Flush writes to a temp file and renames it, so a reader never sees a
// partial chunk. The object store copy is best effort.
func (p *Parquet) Flush(ctx context.Context, chunk *model.Chunk) error {
	path := p.Path(chunk)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chunk dir: %w", err)
	}

	records := chunk.Records
	if records == nil {
		records = []model.FileRecord{}
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	// sidecar ghi sau cùng: thiếu sidecar thì chunk bị coi là chưa xong
	if err := p.writeMeta(chunk); err != nil {
		return err
	}
	p.Logger.Info(ctx, "Saved %d records to %s", len(records), path)

	if p.uploader != nil {
		key := filepath.ToSlash(filepath.Join(chunk.Mode, filepath.Base(path)))
		if err := p.uploader.Upload(ctx, key, path); err != nil {
			p.Logger.Error(ctx, "Upload %s failed: %v", key, err)
		}
	}
	return nil
}

func (p *Parquet) writeMeta(chunk *model.Chunk) error {
	meta := ChunkMeta{
		Fingerprint:  chunk.Fingerprint(),
		Total:        chunk.Total,
		Records:      len(chunk.Records),
		Repositories: make([]string, 0, len(chunk.Repositories)),
	}
	for _, repo := range chunk.Repositories {
		meta.Repositories = append(meta.Repositories, repo.FullName)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunk meta: %w", err)
	}

	path := p.MetaPath(chunk)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadMeta returns the sidecar of chunk, or nil if it has none.
func (p *Parquet) ReadMeta(chunk *model.Chunk) (*ChunkMeta, error) {
	data, err := os.ReadFile(p.MetaPath(chunk))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta ChunkMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", p.MetaPath(chunk), err)
	}
	return &meta, nil
}

// Exists is true when the chunk file is present and its sidecar covers the
// same repositories as chunk.
func (p *Parquet) Exists(_ context.Context, chunk *model.Chunk) (bool, error) {
	if _, err := os.Stat(p.Path(chunk)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	meta, err := p.ReadMeta(chunk)
	if err != nil || meta == nil {
		return false, err
	}
	return meta.Fingerprint == chunk.Fingerprint(), nil
}

// Prune xoá chunk_NNN.parquet và sidecar có NNN >= keep trong thư mục của mode.
// Bản đã upload lên object store không bị xoá.
func (p *Parquet) Prune(ctx context.Context, mode string, keep int) error {
	entries, err := os.ReadDir(filepath.Join(p.dir, mode))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".parquet") || strings.HasSuffix(name, ".json")) {
			continue
		}
		var index int
		if _, err := fmt.Sscanf(name, "chunk_%d.", &index); err != nil || index < keep {
			continue
		}
		path := filepath.Join(p.dir, mode, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		p.Logger.Info(ctx, "Removed stale %s", path)
	}
	return nil
}

func (p *Parquet) Close() error {
	return nil
}

// ReadParquet đọc lại một file chunk
func ReadParquet(path string) ([]model.FileRecord, error) {
	return parquet.ReadFile[model.FileRecord](path)
}
