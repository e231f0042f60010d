package crawler

import (
	githubapi "github.com/thep200/github-file-crawler/internal/github_api"
	"github.com/thep200/github-file-crawler/internal/model"
)

// Search có thể trả về cùng một repo ở hai trang liền nhau khi kết quả thay đổi
func toRepositories(items []githubapi.RepositoryItem) []model.Repository {
	seen := make(map[string]bool, len(items))
	repos := make([]model.Repository, 0, len(items))
	for _, item := range items {
		if item.FullName == "" || seen[item.FullName] {
			continue
		}
		seen[item.FullName] = true
		repos = append(repos, model.Repository{FullName: item.FullName, HtmlUrl: item.HtmlUrl})
	}
	return repos
}
