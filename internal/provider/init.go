package provider

import (
	"context"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/types"
)

// InitializeProviders builds a registry from configuration. Providers
// that cannot be constructed (usually a missing API key) are skipped
// with a warning so the rest of the application still starts.
func InitializeProviders(ctx context.Context, config *types.Config) *Registry {
	log := logging.For("provider")
	registry := NewRegistry(config)

	anthropicCfg := config.Provider["anthropic"]
	if !anthropicCfg.Disabled {
		p, err := NewAnthropicProvider(ctx, &AnthropicConfig{
			APIKey:  anthropicCfg.APIKey,
			BaseURL: anthropicCfg.BaseURL,
			Model:   anthropicCfg.Model,
		})
		if err != nil {
			log.Warn().Err(err).Msg("anthropic provider unavailable")
		} else {
			registry.Register(p)
		}
	}

	openaiCfg := config.Provider["openai"]
	if !openaiCfg.Disabled {
		p, err := NewOpenAIProvider(ctx, &OpenAIConfig{
			APIKey:  openaiCfg.APIKey,
			BaseURL: openaiCfg.BaseURL,
			Model:   openaiCfg.Model,
		})
		if err != nil {
			log.Warn().Err(err).Msg("openai provider unavailable")
		} else {
			registry.Register(p)
		}
	}

	return registry
}
