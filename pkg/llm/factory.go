package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/config"
)

// NewFromConfig creates a model client for the configured provider.
func NewFromConfig(cfg *config.AIConfig, logger *zap.Logger) (Client, error) {
	clientCfg := &Config{
		Endpoint: cfg.BaseURL,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(clientCfg, logger)
	case "anthropic":
		return NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
}
