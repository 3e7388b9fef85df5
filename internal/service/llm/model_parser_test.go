package llm

import (
	"testing"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		name         string
		modelStr     string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "claude model infers anthropic",
			modelStr:     "claude-haiku-4-5",
			wantProvider: "anthropic",
			wantModel:    "claude-haiku-4-5",
		},
		{
			name:         "explicit provider",
			modelStr:     "anthropic/claude-sonnet-4-5-20250929",
			wantProvider: "anthropic",
			wantModel:    "claude-sonnet-4-5-20250929",
		},
		{
			name:         "lorem model",
			modelStr:     "lorem-fast",
			wantProvider: "lorem",
			wantModel:    "lorem-fast",
		},
		{
			name:         "surrounding whitespace",
			modelStr:     "  lorem-slow ",
			wantProvider: "lorem",
			wantModel:    "lorem-slow",
		},
		{name: "empty", modelStr: "", wantErr: true},
		{name: "unknown prefix", modelStr: "gpt-4", wantErr: true},
		{name: "unsupported explicit provider", modelStr: "openrouter/anthropic/claude-haiku-4-5", wantErr: true},
		{name: "missing model", modelStr: "anthropic/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.modelStr)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseModel(%q) expected error, got %+v", tt.modelStr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseModel(%q) unexpected error: %v", tt.modelStr, err)
			}
			if got.Provider != tt.wantProvider {
				t.Errorf("Provider = %q, want %q", got.Provider, tt.wantProvider)
			}
			if got.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", got.Model, tt.wantModel)
			}
		})
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     ModelInfo
		wantErr  bool
	}{
		{"configured provider", "anthropic", "claude-haiku-4-5", ModelInfo{ProviderAnthropic, "claude-haiku-4-5"}, false},
		{"lorem provider with any model", "lorem", "fast", ModelInfo{ProviderLorem, "fast"}, false},
		{"model names its provider", "anthropic", "lorem/fast", ModelInfo{ProviderLorem, "fast"}, false},
		{"no provider infers", "", "claude-sonnet-4-5", ModelInfo{ProviderAnthropic, "claude-sonnet-4-5"}, false},
		{"empty model", "anthropic", "", ModelInfo{}, true},
		{"unknown provider", "openai", "gpt-5", ModelInfo{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveModel(tt.provider, tt.model)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ResolveModel(%q, %q) expected error, got %+v", tt.provider, tt.model, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveModel(%q, %q) unexpected error: %v", tt.provider, tt.model, err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}
