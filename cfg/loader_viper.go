package cfg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "CRAWLER"

type ViperLoader struct {
	v                     *viper.Viper
	configPath            string
	configName            string
	watch                 bool
	once                  sync.Once
	mu                    sync.RWMutex
	cfg                   *Config
	configChangeCallbacks []func(*Config)
}

type ViperOption func(*ViperLoader)

// WithConfigPath đổi thư mục chứa file cấu hình (mặc định cfg/yaml)
func WithConfigPath(path string) ViperOption {
	return func(yl *ViperLoader) {
		if path != "" {
			yl.configPath = path
		}
	}
}

func WithConfigName(name string) ViperOption {
	return func(yl *ViperLoader) {
		if name != "" {
			yl.configName = name
		}
	}
}

func WithWatch(watch bool) ViperOption {
	return func(yl *ViperLoader) {
		yl.watch = watch
	}
}

func NewViperLoader(opts ...ViperOption) (*ViperLoader, error) {
	yl := &ViperLoader{
		v:                     viper.New(),
		configPath:            "cfg/yaml",
		configName:            "mode",
		watch:                 true,
		configChangeCallbacks: make([]func(*Config), 0),
	}
	for _, opt := range opts {
		opt(yl)
	}
	return yl, nil
}

func (yl *ViperLoader) Load() (*Config, error) {
	var err error
	yl.once.Do(func() {
		err = yl.loadConfig()
		if err == nil && yl.IsWatchChange() {
			yl.v.WatchConfig()
			yl.v.OnConfigChange(func(e fsnotify.Event) {
				fmt.Printf("[INFO][CONFIG] Config file changed: %s\n", e.Name)
				if errReload := yl.reloadConfig(); errReload != nil {
					fmt.Printf("[ERROR][CONFIG] Failed to reload config: %v\n", errReload)
				}
			})
		}
	})

	if err != nil {
		return nil, err
	}

	yl.mu.RLock()
	defer yl.mu.RUnlock()
	if yl.cfg == nil {
		return nil, fmt.Errorf("[ERROR][CONFIG] config was not loaded")
	}
	return yl.cfg, nil
}

func (yl *ViperLoader) IsWatchChange() bool {
	return yl.watch
}

func (yl *ViperLoader) RegisterConfigChangeCallback(callback func(*Config)) {
	yl.mu.Lock()
	yl.configChangeCallbacks = append(yl.configChangeCallbacks, callback)
	yl.mu.Unlock()
}

func (yl *ViperLoader) loadConfig() error {
	yl.setDefaults()
	yl.v.AddConfigPath(yl.configPath)
	yl.v.SetConfigName(yl.configName)
	yl.v.SetConfigType("yaml")
	yl.v.SetEnvPrefix(envPrefix)
	yl.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	yl.v.AutomaticEnv()

	if err := yl.v.ReadInConfig(); err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to read config file: %w", err)
	}

	// Unmarshal into the config
	cfg := &Config{}
	if err := yl.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config: %w", err)
	}

	yl.mu.Lock()
	yl.cfg = cfg
	yl.mu.Unlock()

	return nil
}

func (yl *ViperLoader) reloadConfig() error {
	cfg := &Config{}
	if err := yl.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config during reload: %w", err)
	}

	yl.mu.Lock()
	yl.cfg = cfg

	// Notify all registered callbacks
	callbacks := make([]func(*Config), len(yl.configChangeCallbacks))
	copy(callbacks, yl.configChangeCallbacks)
	yl.mu.Unlock()
	for _, callback := range callbacks {
		go callback(cfg)
	}

	fmt.Println("[INFO][CONFIG] Configuration reloaded successfully")
	return nil
}

// Defaults are registered so AutomaticEnv can override keys missing from the file.
func (yl *ViperLoader) setDefaults() {
	mock, _ := NewMockLoader()
	def, _ := mock.Load()

	yl.v.SetDefault("app.name", def.App.Name)
	yl.v.SetDefault("app.version", def.App.Version)
	yl.v.SetDefault("app.log_level", def.App.LogLevel)

	yl.v.SetDefault("github_api.api_url", def.GithubApi.ApiUrl)
	yl.v.SetDefault("github_api.access_tokens", []string{})
	yl.v.SetDefault("github_api.requests_per_second", def.GithubApi.RequestsPerSecond)
	yl.v.SetDefault("github_api.per_page", def.GithubApi.PerPage)
	yl.v.SetDefault("github_api.commits_per_page", def.GithubApi.CommitsPerPage)
	yl.v.SetDefault("github_api.timeout", def.GithubApi.Timeout)

	yl.v.SetDefault("search.language", def.Search.Language)
	yl.v.SetDefault("search.additional_query", "")
	yl.v.SetDefault("search.created_from", def.Search.CreatedFrom)
	yl.v.SetDefault("search.created_to", def.Search.CreatedTo)
	yl.v.SetDefault("search.repo_limit", def.Search.RepoLimit)

	yl.v.SetDefault("crawl.extensions", def.Crawl.Extensions)
	yl.v.SetDefault("crawl.ignore_list", def.Crawl.IgnoreList)
	yl.v.SetDefault("crawl.mode", def.Crawl.Mode)
	yl.v.SetDefault("crawl.cutoff", def.Crawl.Cutoff)
	yl.v.SetDefault("crawl.chunk_count", def.Crawl.ChunkCount)
	yl.v.SetDefault("crawl.concurrency", def.Crawl.Concurrency)
	yl.v.SetDefault("crawl.cache_size", def.Crawl.CacheSize)
	yl.v.SetDefault("crawl.output_dir", def.Crawl.OutputDir)
	yl.v.SetDefault("crawl.skip_existing", false)

	yl.v.SetDefault("retry.max_attempts", def.Retry.MaxAttempts)
	yl.v.SetDefault("retry.rotate_delay", def.Retry.RotateDelay)
	yl.v.SetDefault("retry.max_wait", def.Retry.MaxWait)
	yl.v.SetDefault("retry.fallback_reset", def.Retry.FallbackReset)
	yl.v.SetDefault("retry.transient_attempts", def.Retry.TransientAttempts)
	yl.v.SetDefault("retry.transient_delay", def.Retry.TransientDelay)
	yl.v.SetDefault("retry.max_consecutive_failures", def.Retry.MaxConsecutiveFailures)

	yl.v.SetDefault("sink.kinds", def.Sink.Kinds)
	yl.v.SetDefault("sqlite.path", def.Sqlite.Path)
	yl.v.SetDefault("kafka.topic", def.Kafka.Topic)
	yl.v.SetDefault("kafka.group_id", def.Kafka.GroupID)
	yl.v.SetDefault("kafka.max_message_bytes", def.Kafka.MaxMessageBytes)
}
