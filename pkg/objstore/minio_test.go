package objstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thep200/github-file-crawler/cfg"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "before/chunk_000.parquet", ObjectKey("", "/before/chunk_000.parquet"))
	assert.Equal(t, "crawls/before/chunk_001.parquet", ObjectKey("crawls", "before/chunk_001.parquet"))
}

func TestNewStore_RequiresFields(t *testing.T) {
	_, err := NewStore(cfg.ObjectStore{})
	assert.Error(t, err)

	_, err = NewStore(cfg.ObjectStore{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)

	store, err := NewStore(cfg.ObjectStore{
		Endpoint:  "localhost:9000",
		AccessKey: "a",
		SecretKey: "b",
		Bucket:    "files",
		Prefix:    "/crawls/",
	})
	require.NoError(t, err)
	assert.Equal(t, "files", store.Bucket())
	assert.Equal(t, "crawls", store.prefix)
}
