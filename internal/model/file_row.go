package model

import (
	"context"
	"fmt"
	"time"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/pkg/db"
	"github.com/thep200/github-file-crawler/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FileRow struct {
	Model
	RecordKey  string `json:"record_key" gorm:"column:record_key;type:char(64);uniqueIndex;not null"`
	Mode       string `json:"mode" gorm:"column:mode;type:varchar(16);not null"`
	ChunkIndex int    `json:"chunk_index" gorm:"column:chunk_index;default:0"`
	Content    string `json:"content" gorm:"column:content;type:longtext"`
	Timestamp  string `json:"timestamp" gorm:"column:timestamp;type:varchar(32)"`
	FilePath   string `json:"file_path" gorm:"column:file_path;type:varchar(1024);not null"`
	RepoName   string `json:"repo_name" gorm:"column:repo_name;type:varchar(255);index;not null"`
	RepoUrl    string `json:"repo_url" gorm:"column:repo_url;type:varchar(512)"`
}

func NewFileRow(config *cfg.Config, logger log.Logger, db *db.Mysql) (*FileRow, error) {
	row := &FileRow{
		Model: Model{
			Config: config,
			Logger: logger,
			Mysql:  db,
		},
	}
	return row, nil
}

func (r *FileRow) TableName() string {
	return "file_records"
}

func NewFileRowFromRecord(mode string, chunk int, record FileRecord, now time.Time) FileRow {
	return FileRow{
		Model:      Model{CreatedAt: now, UpdatedAt: now},
		RecordKey:  RecordKey(mode, record.RepoName, record.FilePath),
		Mode:       mode,
		ChunkIndex: chunk,
		Content:    record.Content,
		Timestamp:  record.Timestamp,
		FilePath:   TruncateString(record.FilePath, 1024),
		RepoName:   TruncateString(record.RepoName, 255),
		RepoUrl:    TruncateString(record.RepoUrl, 512),
	}
}

// CreateBatch ghi toàn bộ message trong một transaction, trùng key thì cập nhật
func (r *FileRow) CreateBatch(ctx context.Context, messages []FileMessage) error {
	db, err := r.Mysql.Db()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return CreateFileRows(ctx, db, messages)
}

func CreateFileRows(ctx context.Context, db *gorm.DB, messages []FileMessage) error {
	if len(messages) == 0 {
		return nil
	}

	rows := make([]FileRow, 0, len(messages))
	now := time.Now()
	for _, msg := range messages {
		rows = append(rows, NewFileRowFromRecord(msg.Mode, msg.Chunk, msg.Record, now))
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "timestamp", "chunk_index", "updated_at"}),
		}).CreateInBatches(rows, 100)

		if result.Error != nil {
			return fmt.Errorf("failed to batch create file records: %w", result.Error)
		}

		return nil
	})
}
