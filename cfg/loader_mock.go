package cfg

type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (yl *MockLoader) Load() (*Config, error) {
	return &Config{
		// App
		App: App{
			Name:     "github-file-crawler",
			Version:  "0.1.0",
			LogLevel: "info",
		},

		// GithubApi
		GithubApi: GithubApi{
			ApiUrl:            "https://api.github.com",
			AccessTokens:      []string{"mock-token"},
			RequestsPerSecond: 10,
			PerPage:           100,
			CommitsPerPage:    30,
			Timeout:           30,
		},

		// Search
		Search: Search{
			Language:    "Python",
			CreatedFrom: "2023-11-01",
			CreatedTo:   "2023-11-30",
			RepoLimit:   100,
		},

		// Crawl
		Crawl: Crawl{
			Extensions:  []string{".py"},
			IgnoreList:  DefaultIgnoreList(),
			Mode:        "before",
			Cutoff:      "2022-11-01T00:00:00Z",
			ChunkCount:  4,
			Concurrency: 1,
			CacheSize:   4096,
			OutputDir:   "data",
		},

		// Retry
		Retry: Retry{
			MaxAttempts:   10,
			RotateDelay:   3,
			MaxWait:       900,
			FallbackReset: 60,

			TransientAttempts:      3,
			TransientDelay:         1,
			MaxConsecutiveFailures: 5,
		},

		// Sink
		Sink: Sink{
			Kinds: []string{"parquet"},
		},

		// Mysql
		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Password:              "root",
			Username:              "root",
			Port:                  "3306",
			Database:              "github_crawler",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		// Sqlite
		Sqlite: Sqlite{
			Path: "data/files.db",
		},

		// Kafka
		Kafka: Kafka{
			Brokers: []string{"127.0.0.1:9092"},
			Topic:   "file-records",
			GroupID: "file-record-consumer",

			MaxMessageBytes: 1000000,
		},
	}, nil
}

// DefaultIgnoreList là danh sách thư mục bỏ qua khi duyệt cây
func DefaultIgnoreList() []string {
	return []string{
		".git",
		".github",
		".venv",
		".tox",
		"venv",
		"env",
		"virtualenv",
		"node_modules",
		"__pycache__",
		"site-packages",
		"dist",
		"build",
	}
}
