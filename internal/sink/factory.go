package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/pkg/db"
	kafkapkg "github.com/thep200/github-file-crawler/pkg/kafka"
	"github.com/thep200/github-file-crawler/pkg/log"
	"github.com/thep200/github-file-crawler/pkg/objstore"
)

// FromConfig dựng sink theo sink.kinds, mặc định là parquet
func FromConfig(ctx context.Context, config *cfg.Config, logger log.Logger) (Sink, error) {
	kinds := config.Sink.Kinds
	if len(kinds) == 0 {
		kinds = []string{"parquet"}
	}

	var sinks []Sink
	fail := func(err error) (Sink, error) {
		_ = NewMulti(sinks...).Close()
		return nil, err
	}

	for _, kind := range kinds {
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "parquet":
			var uploader Uploader
			if config.ObjectStore.Enabled {
				store, err := objstore.NewStore(config.ObjectStore)
				if err != nil {
					return fail(err)
				}
				uploader = store
			}
			sinks = append(sinks, NewParquet(logger, config.Crawl.OutputDir, uploader))
		case "mysql":
			mysql, err := db.NewMysql(config)
			if err != nil {
				return fail(fmt.Errorf("mysql sink: %w", err))
			}
			s, err := NewMysql(ctx, logger, mysql)
			if err != nil {
				return fail(fmt.Errorf("mysql sink: %w", err))
			}
			sinks = append(sinks, s)
		case "sqlite":
			path := config.Sqlite.Path
			if path == "" {
				path = filepath.Join(config.Crawl.OutputDir, "files.db")
			}
			s, err := NewSqlite(logger, path)
			if err != nil {
				return fail(fmt.Errorf("sqlite sink: %w", err))
			}
			sinks = append(sinks, s)
		case "kafka":
			producer, err := kafkapkg.NewProducer(config, logger)
			if err != nil {
				return fail(fmt.Errorf("kafka sink: %w", err))
			}
			sinks = append(sinks, NewKafka(logger, producer))
		default:
			return fail(fmt.Errorf("%w: %q", cfg.ErrUnknownSink, kind))
		}
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMulti(sinks...), nil
}
