package llm

import (
	"fmt"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/anthropic"
	"github.com/haowjy/meridian-llm-go/providers/lorem"
)

// ProviderFactory creates LLM provider instances
type ProviderFactory struct {
	anthropicAPIKey string
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(anthropicAPIKey string) *ProviderFactory {
	return &ProviderFactory{anthropicAPIKey: anthropicAPIKey}
}

// GetProvider returns a provider instance for the given provider name
//
// Supported providers:
//   - "anthropic" - Claude models via Anthropic API
//   - "lorem" - Mock provider for local development (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (llmprovider.Provider, error) {
	switch providerName {
	case ProviderAnthropic:
		if f.anthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		provider, err := anthropic.NewProvider(f.anthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
		}
		return provider, nil

	case ProviderLorem:
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}
