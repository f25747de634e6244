package llm

import (
	"log/slog"
	"strings"
	"time"
)

// Provider names accepted by NewProvider.
const (
	ProviderAzure  = "azure"
	ProviderDoubao = "doubao"
)

// Config holds configuration for one provider backend.
type Config struct {
	Provider string
	Endpoint string
	APIKey   string
	// Deployment is the Azure deployment id.
	Deployment string
	// APIVersion is the Azure api-version query value or the Doubao path version (v1, v3).
	APIVersion string
	// Model is the Doubao model or endpoint id.
	Model       string
	MinInterval time.Duration
	MaxRequeues int
	HTTPTimeout time.Duration
}

// NormalizeProvider maps aliases onto canonical provider names.
func NormalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "azure", "azure-openai", "azureopenai":
		return ProviderAzure
	case "doubao", "doubai", "ark", "volcengine":
		return ProviderDoubao
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// DefaultMinInterval returns the call cadence a provider enforces per key.
func DefaultMinInterval(provider string) time.Duration {
	switch NormalizeProvider(provider) {
	case ProviderAzure:
		return 8 * time.Second
	default:
		return time.Second
	}
}

// NewProvider creates a raw provider adapter based on the configuration.
// The adapter performs no queueing or retries.
func NewProvider(cfg Config) (Provider, error) {
	switch NormalizeProvider(cfg.Provider) {
	case ProviderAzure:
		return newAzureClient(cfg)
	case ProviderDoubao:
		return newDoubaoClient(cfg)
	case "":
		return nil, &ConfigError{Field: "provider"}
	default:
		return nil, &ConfigError{Field: "provider", Reason: "is not supported: " + cfg.Provider}
	}
}

// NewQueuedProvider creates a provider adapter wrapped in its own RequestQueue.
func NewQueuedProvider(cfg Config, logger *slog.Logger) (*RequestQueue, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = DefaultMinInterval(cfg.Provider)
	}

	return NewRequestQueue(provider, QueueOptions{
		MinInterval: minInterval,
		MaxRequeues: cfg.MaxRequeues,
	}, logger), nil
}

func httpTimeout(cfg Config) time.Duration {
	if cfg.HTTPTimeout > 0 {
		return cfg.HTTPTimeout
	}
	return 60 * time.Second
}
