package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/thep200/github-file-crawler/cfg"
	"github.com/thep200/github-file-crawler/internal/model"
	"github.com/thep200/github-file-crawler/pkg/db"
	"github.com/thep200/github-file-crawler/pkg/kafka"
	"github.com/thep200/github-file-crawler/pkg/log"
)

func main() {
	// Parse command line arguments
	configDir := flag.String("config-dir", "cfg/yaml", "Directory containing the config file")
	batchSize := flag.Int("batch-size", 100, "Rows per MySQL transaction")
	batchTimeout := flag.Duration("batch-timeout", 5*time.Second, "Flush a partial batch after this long")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	loader, err := cfg.NewViperLoader(cfg.WithConfigPath(*configDir), cfg.WithWatch(false))
	if err != nil {
		fmt.Printf("Failed to create config loader: %v\n", err)
		os.Exit(1)
	}
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := log.NewCslLoggerWith(os.Stderr, log.ParseLevel(config.App.LogLevel))

	// Setup context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup database
	mysql, err := db.NewMysql(config)
	if err != nil {
		logger.Error(ctx, "Failed to create database client: %v", err)
		os.Exit(1)
	}
	defer mysql.Close()
	fileRowMd, err := model.NewFileRow(config, logger, mysql)
	if err != nil {
		logger.Error(ctx, "Failed to create file row model: %v", err)
		os.Exit(1)
	}
	if err := mysql.Migrate(fileRowMd); err != nil {
		logger.Error(ctx, "Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := startFileConsumer(ctx, config, logger, fileRowMd, *batchSize, *batchTimeout); err != nil {
		logger.Error(ctx, "File consumer error: %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Received shutdown signal, gracefully shut down")
}

func startFileConsumer(ctx context.Context, config *cfg.Config, logger log.Logger, fileRowMd *model.FileRow,
	batchSize int, batchTimeout time.Duration) error {

	consumer, err := kafka.NewConsumer(config, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	// Channel to collect messages for batch processing
	messages := make(chan kafkago.Message, batchSize*2)
	batcher := newFileBatcher(logger, fileRowMd.CreateBatch, consumer.Commit, batchSize, batchTimeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		batcher.run(ctx, messages)
	}()

	logger.Info(ctx, "File consumer started, topic %s, group %s", config.Kafka.Topic, config.Kafka.GroupID)
	err = consumer.Stream(ctx, messages)
	close(messages)
	<-done
	return err
}
