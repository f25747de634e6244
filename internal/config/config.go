package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/storage"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration.
type Config struct {
	Logging  LoggingConfig
	Cache    CacheConfig
	Topics   TopicsConfig
	LLM      llm.Config
	Retry    common.RetryOptions
	Classify ClassifyConfig
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// CacheConfig controls the decision cache and its persistence.
type CacheConfig struct {
	Store              storage.Config
	TTL                time.Duration
	CheckpointInterval time.Duration
}

// TopicsConfig holds the topic selection.
type TopicsConfig struct {
	// Selected are catalog ids; "custom" is accepted and ignored.
	Selected []string
	// Custom are free-text topics.
	Custom []string
}

// ClassifyConfig controls batching.
type ClassifyConfig struct {
	BatchSize     int
	MaxItemLength int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	retry := common.DefaultRetryOptions()

	v.SetDefault("llm.provider", llm.ProviderAzure)
	v.SetDefault("llm.azure.api_version", "2024-02-15-preview")
	v.SetDefault("llm.doubao.endpoint", "https://ark.cn-beijing.volces.com")
	v.SetDefault("llm.doubao.api_version", "v3")
	v.SetDefault("llm.max_requeues", 3)
	v.SetDefault("llm.http_timeout", 60*time.Second)

	v.SetDefault("classify.batch_size", 10)
	v.SetDefault("classify.max_item_length", 200)

	v.SetDefault("retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", retry.InitialDelay)
	v.SetDefault("retry.max_delay", retry.MaxDelay)
	v.SetDefault("retry.multiplier", retry.Multiplier)
	v.SetDefault("retry.timeout", retry.Timeout)

	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.store", storage.BackendSQLite)
	v.SetDefault("cache.path", "~/.local/share/sift/cache.db")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.record", storage.DefaultRedisRecord)
	v.SetDefault("cache.checkpoint_interval", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load resolves the configuration from v. Defaults must already be set.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		LLM: LoadLLMConfig(v),
		Topics: TopicsConfig{
			Selected: stringList(v, "topics.selected"),
			Custom:   stringList(v, "topics.custom"),
		},
		Classify: ClassifyConfig{
			BatchSize:     v.GetInt("classify.batch_size"),
			MaxItemLength: v.GetInt("classify.max_item_length"),
		},
		Retry: common.RetryOptions{
			MaxAttempts:  v.GetInt("retry.max_attempts"),
			InitialDelay: v.GetDuration("retry.initial_delay"),
			MaxDelay:     v.GetDuration("retry.max_delay"),
			Multiplier:   v.GetFloat64("retry.multiplier"),
			Timeout:      v.GetDuration("retry.timeout"),
		},
		Cache: CacheConfig{
			TTL:                v.GetDuration("cache.ttl"),
			CheckpointInterval: v.GetDuration("cache.checkpoint_interval"),
			Store: storage.Config{
				Backend:  v.GetString("cache.store"),
				Path:     ExpandPath(v.GetString("cache.path")),
				RedisURL: v.GetString("cache.redis_url"),
				Record:   v.GetString("cache.record"),
			},
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringList reads a list value. A single string, as set through an
// environment variable, is split on commas.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// Validate checks values that would otherwise fail late or silently.
// Provider credentials are checked when the provider is built.
func (c *Config) Validate() error {
	if c.Classify.BatchSize <= 0 {
		return fmt.Errorf("%w: classify.batch_size must be positive", common.ErrInvalidConfig)
	}
	if c.Classify.MaxItemLength <= 0 {
		return fmt.Errorf("%w: classify.max_item_length must be positive", common.ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("%w: retry.max_attempts must be positive", common.ErrInvalidConfig)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("%w: retry.multiplier must be at least 1", common.ErrInvalidConfig)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive", common.ErrInvalidConfig)
	}
	if c.Cache.CheckpointInterval < 0 {
		return fmt.Errorf("%w: cache.checkpoint_interval cannot be negative", common.ErrInvalidConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := c.TopicLabels(); err != nil {
		return err
	}
	return nil
}

// TopicLabels resolves the selection into the labels sent to the model.
// With nothing selected and no custom topics, the whole catalog applies.
func (c *Config) TopicLabels() ([]string, error) {
	return ResolveTopics(c.Topics.Selected, c.Topics.Custom)
}

// ResolveTopics maps catalog ids to labels and appends custom topics.
func ResolveTopics(selected, custom []string) ([]string, error) {
	custom = lo.Compact(lo.Map(custom, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))

	ids := lo.Reject(lo.Compact(selected), func(id string, _ int) bool {
		return strings.EqualFold(strings.TrimSpace(id), model.CustomTopicID)
	})

	if len(ids) == 0 && len(custom) == 0 {
		return lo.Map(model.Catalog, func(t model.Topic, _ int) string { return t.Label }), nil
	}

	labels := make([]string, 0, len(ids)+len(custom))
	for _, id := range ids {
		topic, ok := model.LookupTopic(id)
		if !ok {
			return nil, fmt.Errorf("%w: unknown topic %q", common.ErrInvalidConfig, id)
		}
		labels = append(labels, topic.Label)
	}
	labels = append(labels, custom...)

	return lo.Uniq(labels), nil
}
