package llm

import (
	"fmt"
	"strings"
)

// Supported providers
const (
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"
)

// ModelInfo contains parsed provider and model information
type ModelInfo struct {
	Provider string
	Model    string
}

// String renders the model the way it is recorded in the edit log.
func (m ModelInfo) String() string {
	return m.Provider + "/" + m.Model
}

// ParseModel extracts provider information from a model string
//
// Supported formats:
//   - "claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//   - "lorem-fast" → {Provider: "lorem", Model: "lorem-fast"}
//   - "anthropic/claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//
// An explicit provider must be one the server can construct.
func ParseModel(modelStr string) (*ModelInfo, error) {
	modelStr = strings.TrimSpace(modelStr)
	if modelStr == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, model, ok := strings.Cut(modelStr, "/"); ok {
		if provider == "" || model == "" {
			return nil, fmt.Errorf("invalid model format: %s (expected provider/model)", modelStr)
		}
		if provider != ProviderAnthropic && provider != ProviderLorem {
			return nil, fmt.Errorf("unsupported provider %q in model %s", provider, modelStr)
		}
		return &ModelInfo{Provider: provider, Model: model}, nil
	}

	lower := strings.ToLower(modelStr)
	switch {
	case strings.HasPrefix(lower, "claude-"):
		return &ModelInfo{Provider: ProviderAnthropic, Model: modelStr}, nil
	case strings.HasPrefix(lower, "lorem-"):
		return &ModelInfo{Provider: ProviderLorem, Model: modelStr}, nil
	}
	return nil, fmt.Errorf("unable to infer provider from model: %s", modelStr)
}

// ResolveModel combines a configured provider with a model name. A model that
// names its own provider ("lorem/lorem-fast") wins over the configured one.
func ResolveModel(provider, model string) (*ModelInfo, error) {
	provider = strings.TrimSpace(provider)
	model = strings.TrimSpace(model)
	if provider == "" || strings.Contains(model, "/") {
		return ParseModel(model)
	}
	if model == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}
	return ParseModel(provider + "/" + model)
}
