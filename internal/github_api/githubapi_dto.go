// Gói dto cung cấp các đối tượng truyền dữ liệu cho dự án
// Chuyển đổi phản hồi của GitHub API (search, contents, commits, rate_limit) thành cấu trúc

package githubapi

import "time"

const (
	TypeFile = "file"
	TypeDir  = "dir"
)

type Owner struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

type RepositoryItem struct {
	Id              int64  `json:"id"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	HtmlUrl         string `json:"html_url"`
	CloneUrl        string `json:"clone_url"`
	Language        string `json:"language"`
	CreatedAt       string `json:"created_at"`
	Owner           Owner  `json:"owner"`
	StargazersCount int64  `json:"stargazers_count"`
	ForksCount      int64  `json:"forks_count"`
}

// Mapping response
type SearchResponse struct {
	TotalCount        int              `json:"total_count"`
	IncompleteResults bool             `json:"incomplete_results"`
	Items             []RepositoryItem `json:"items"`
}

type ContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Sha         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	DownloadUrl string `json:"download_url"`
	Url         string `json:"url"`
}

type CommitPerson struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}

type CommitDetail struct {
	Message   string       `json:"message"`
	Committer CommitPerson `json:"committer"`
}

type CommitItem struct {
	Sha    string       `json:"sha"`
	Commit CommitDetail `json:"commit"`
}

type ContentEnvelope struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Sha      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type RateBucket struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Used      int   `json:"used"`
	Reset     int64 `json:"reset"`
}

func (b RateBucket) ResetTime() time.Time {
	return time.Unix(b.Reset, 0).UTC()
}

type RateResources struct {
	Core   RateBucket `json:"core"`
	Search RateBucket `json:"search"`
}

type RateLimitResponse struct {
	Resources RateResources `json:"resources"`
}
