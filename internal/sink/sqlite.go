package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/log"
)

// Sqlite lưu record vào một file SQLite cục bộ. Bảng flushed_chunks đánh dấu
// chunk đã ghi xong, được cập nhật trong cùng transaction với record.
type Sqlite struct {
	Logger log.Logger
	db     *sql.DB
	path   string
}

func NewSqlite(logger log.Logger, path string) (*Sqlite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Sqlite{Logger: logger, db: db, path: path}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *Sqlite) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_records (
		record_key TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT,
		timestamp TEXT,
		file_path TEXT NOT NULL,
		repo_name TEXT NOT NULL,
		repo_url TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_file_records_repo ON file_records(repo_name);

	CREATE TABLE IF NOT EXISTS flushed_chunks (
		mode TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		records INTEGER NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		flushed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (mode, chunk_index)
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return s.ensureColumn(ctx, "flushed_chunks", "fingerprint", "TEXT NOT NULL DEFAULT ''")
}

// ensureColumn thêm cột cho database tạo bởi phiên bản cũ
func (s *Sqlite) ensureColumn(ctx context.Context, table, column, decl string) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

func (s *Sqlite) Name() string {
	return "sqlite"
}

func (s *Sqlite) Flush(ctx context.Context, chunk *model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO file_records (record_key, mode, chunk_index, content, timestamp, file_path, repo_name, repo_url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(record_key) DO UPDATE SET
		content = excluded.content,
		timestamp = excluded.timestamp,
		chunk_index = excluded.chunk_index,
		updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range chunk.Records {
		key := model.RecordKey(chunk.Mode, r.RepoName, r.FilePath)
		if _, err := stmt.ExecContext(ctx, key, chunk.Mode, chunk.Index, r.Content, r.Timestamp, r.FilePath, r.RepoName, r.RepoUrl); err != nil {
			return fmt.Errorf("insert %s/%s: %w", r.RepoName, r.FilePath, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO flushed_chunks (mode, chunk_index, records, fingerprint) VALUES (?, ?, ?, ?)
	ON CONFLICT(mode, chunk_index) DO UPDATE SET
		records = excluded.records,
		fingerprint = excluded.fingerprint,
		flushed_at = CURRENT_TIMESTAMP
	`, chunk.Mode, chunk.Index, len(chunk.Records), chunk.Fingerprint()); err != nil {
		return fmt.Errorf("mark chunk: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.Logger.Info(ctx, "Saved %d records of %s to %s", len(chunk.Records), chunk.Name(), s.path)
	return nil
}

func (s *Sqlite) Exists(ctx context.Context, chunk *model.Chunk) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flushed_chunks WHERE mode = ? AND chunk_index = ? AND fingerprint = ?`,
		chunk.Mode, chunk.Index, chunk.Fingerprint()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Prune xoá đánh dấu và record của các chunk có index >= keep. Record của
// repo vẫn còn trong lần chạy này sẽ được ghi lại khi chunk mới của nó flush.
func (s *Sqlite) Prune(ctx context.Context, mode string, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_records WHERE mode = ? AND chunk_index >= ?`, mode, keep); err != nil {
		return fmt.Errorf("prune records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM flushed_chunks WHERE mode = ? AND chunk_index >= ?`, mode, keep); err != nil {
		return fmt.Errorf("prune chunks: %w", err)
	}
	return tx.Commit()
}

// Records trả về các record theo repo và đường dẫn, dùng cho kiểm tra và xuất dữ liệu
func (s *Sqlite) Records(ctx context.Context, mode string) ([]model.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT content, timestamp, file_path, repo_name, repo_url
	FROM file_records WHERE mode = ?
	ORDER BY repo_name, file_path
	`, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.FileRecord
	for rows.Next() {
		var r model.FileRecord
		var content, timestamp, repoURL sql.NullString
		if err := rows.Scan(&content, &timestamp, &r.FilePath, &r.RepoName, &repoURL); err != nil {
			return nil, err
		}
		r.Content, r.Timestamp, r.RepoUrl = content.String, timestamp.String, repoURL.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Sqlite) Close() error {
	return s.db.Close()
}
