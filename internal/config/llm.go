package config

import (
	"os"

	"github.com/Veraticus/sift/internal/llm"
	"github.com/spf13/viper"
)

// Environment variables consulted when no API key is configured.
const (
	AzureAPIKeyEnv  = "AZURE_OPENAI_API_KEY"
	DoubaoAPIKeyEnv = "ARK_API_KEY"
)

// LoadLLMConfig loads provider configuration from v for the selected provider.
// It follows this precedence:
// 1. Viper configuration (from config file, flags or SIFT_ env vars)
// 2. Direct environment variables (AZURE_OPENAI_API_KEY, ARK_API_KEY)
// 3. Default values
func LoadLLMConfig(v *viper.Viper) llm.Config {
	provider := llm.NormalizeProvider(v.GetString("llm.provider"))
	section := "llm." + provider + "."

	cfg := llm.Config{
		Provider:    provider,
		Endpoint:    v.GetString(section + "endpoint"),
		APIKey:      v.GetString(section + "api_key"),
		APIVersion:  v.GetString(section + "api_version"),
		MinInterval: v.GetDuration(section + "min_interval"),
		MaxRequeues: v.GetInt("llm.max_requeues"),
		HTTPTimeout: v.GetDuration("llm.http_timeout"),
	}

	switch provider {
	case llm.ProviderAzure:
		cfg.Deployment = v.GetString(section + "deployment")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv(AzureAPIKeyEnv)
		}
	case llm.ProviderDoubao:
		cfg.Model = v.GetString(section + "model")
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv(DoubaoAPIKeyEnv)
		}
	}

	return cfg
}
