package sink

import (
	"context"

	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/db"
	"github.com/thep200/github-file-crawler/pkg/log"
)

// Mysql upsert các record của chunk vào bảng file_records trong một transaction
type Mysql struct {
	Logger log.Logger
	mysql  *db.Mysql
	rowMd  *model.FileRow
}

func NewMysql(ctx context.Context, logger log.Logger, mysql *db.Mysql) (*Mysql, error) {
	if err := mysql.Ping(ctx); err != nil {
		return nil, err
	}
	rowMd, err := model.NewFileRow(mysql.Config, logger, mysql)
	if err != nil {
		return nil, err
	}
	if err := mysql.Migrate(rowMd); err != nil {
		return nil, err
	}
	return &Mysql{Logger: logger, mysql: mysql, rowMd: rowMd}, nil
}

func (m *Mysql) Name() string {
	return "mysql"
}

func (m *Mysql) Flush(ctx context.Context, chunk *model.Chunk) error {
	if err := m.rowMd.CreateBatch(ctx, messages(chunk)); err != nil {
		return err
	}
	m.Logger.Info(ctx, "Saved %d records of %s to mysql", len(chunk.Records), chunk.Name())
	return nil
}

func (m *Mysql) Close() error {
	return m.mysql.Close()
}
