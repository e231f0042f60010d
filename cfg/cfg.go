package cfg

type (
	App struct {
		Name     string
		Version  string
		LogLevel string `mapstructure:"log_level"`
	}

	GithubApi struct {
		ApiUrl            string   `mapstructure:"api_url"`
		AccessTokens      []string `mapstructure:"access_tokens"`
		RequestsPerSecond int      `mapstructure:"requests_per_second"`
		PerPage           int      `mapstructure:"per_page"`
		CommitsPerPage    int      `mapstructure:"commits_per_page"`
		// Seconds
		Timeout int
	}

	Search struct {
		Language        string
		AdditionalQuery string `mapstructure:"additional_query"`
		// YYYY-MM-DD
		CreatedFrom string `mapstructure:"created_from"`
		CreatedTo   string `mapstructure:"created_to"`
		RepoLimit   int    `mapstructure:"repo_limit"`
	}

	Crawl struct {
		Extensions []string
		IgnoreList []string `mapstructure:"ignore_list"`
		// "after" or "before"
		Mode string
		// RFC3339 instant
		Cutoff       string
		ChunkCount   int    `mapstructure:"chunk_count"`
		Concurrency  int    `mapstructure:"concurrency"`
		CacheSize    int    `mapstructure:"cache_size"`
		OutputDir    string `mapstructure:"output_dir"`
		SkipExisting bool   `mapstructure:"skip_existing"`
	}

	// Durations are seconds.
	Retry struct {
		MaxAttempts   int `mapstructure:"max_attempts"`
		RotateDelay   int `mapstructure:"rotate_delay"`
		MaxWait       int `mapstructure:"max_wait"`
		FallbackReset int `mapstructure:"fallback_reset"`
		// timeout, connection reset
		TransientAttempts      int `mapstructure:"transient_attempts"`
		TransientDelay         int `mapstructure:"transient_delay"`
		MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures"`
	}

	Sink struct {
		// parquet, mysql, sqlite, kafka
		Kinds []string
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int `mapstructure:"max_idle_connection"`
		MaxOpenConnection     int `mapstructure:"max_open_connection"`
		MaxLifeTimeConnection int `mapstructure:"max_life_time_connection"`
	}

	Sqlite struct {
		Path string
	}

	Kafka struct {
		Brokers []string
		Topic   string
		GroupID string `mapstructure:"group_id"`
		// message lớn hơn sẽ bị bỏ qua thay vì làm hỏng cả batch
		MaxMessageBytes int `mapstructure:"max_message_bytes"`
	}

	ObjectStore struct {
		Enabled   bool
		Endpoint  string
		Region    string
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Bucket    string
		Prefix    string
		UseSSL    bool `mapstructure:"use_ssl"`
	}
)

type Config struct {
	App         App
	GithubApi   GithubApi `mapstructure:"github_api"`
	Search      Search
	Crawl       Crawl
	Retry       Retry
	Sink        Sink
	Mysql       Mysql
	Sqlite      Sqlite
	Kafka       Kafka
	ObjectStore ObjectStore `mapstructure:"object_store"`
}
