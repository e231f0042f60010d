package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
)

const manifestName = "repositories.json"

// WriteManifest lưu danh sách repo tìm được vào {dir}/repositories.json
func WriteManifest(dir string, items []githubapi.RepositoryItem) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if items == nil {
		items = []githubapi.RepositoryItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, manifestName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

func ReadManifest(dir string) ([]githubapi.RepositoryItem, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, err
	}
	var items []githubapi.RepositoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return items, nil
}
