package objstore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/thep200/github-file-crawler/cfg"
)

// Store mirrors local chunk files to an S3 compatible bucket
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	initOnce   sync.Once
	initErr    error
}

func NewStore(config cfg.ObjectStore) (*Store, error) {
	endpoint := strings.TrimSpace(config.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	access := strings.TrimSpace(config.AccessKey)
	secret := strings.TrimSpace(config.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("object store access key and secret key are required")
	}
	bucket := strings.TrimSpace(config.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	region := strings.TrimSpace(config.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: config.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}

	return &Store{
		client:     client,
		bucketName: bucket,
		region:     region,
		prefix:     strings.Trim(config.Prefix, "/"),
	}, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Upload copies the local file to {prefix}/{key}.
func (s *Store) Upload(ctx context.Context, key, localPath string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("store is nil")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := s.client.FPutObject(ctx, s.bucketName, ObjectKey(s.prefix, key), localPath, minio.PutObjectOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	return err
}

func (s *Store) Bucket() string {
	return s.bucketName
}

func ObjectKey(prefix, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
