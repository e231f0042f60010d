package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Repository là repo lấy từ search API, chỉ đọc trong quá trình duyệt cây
type Repository struct {
	FullName string `json:"full_name"`
	HtmlUrl  string `json:"html_url"`
}

// FileRecord là đơn vị đầu ra của crawler: một snapshot nội dung của một file
type FileRecord struct {
	Content   string `json:"content" parquet:"content"`
	Timestamp string `json:"timestamp" parquet:"timestamp"`
	FilePath  string `json:"file_path" parquet:"file_path"`
	RepoName  string `json:"repo_name" parquet:"repo_name"`
	RepoUrl   string `json:"repo_url" parquet:"repo_url"`
}

// Chunk gom các record của một đoạn liên tiếp trong danh sách repo, được flush một lần
type Chunk struct {
	Index int
	// số chunk của lần chạy
	Total        int
	Mode         string
	Repositories []Repository
	Records      []FileRecord
}

func (c *Chunk) Name() string {
	return fmt.Sprintf("chunk_%03d", c.Index)
}

// Fingerprint identifies which repositories a chunk covers. A checkpoint only
// counts for a later run when the fingerprints match, so changing the chunk
// count or the search result re-crawls the affected chunks.
func (c *Chunk) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%d\n", c.Mode, c.Index)
	for _, repo := range c.Repositories {
		h.Write([]byte(repo.FullName))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
