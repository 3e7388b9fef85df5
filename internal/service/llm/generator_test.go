package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowcraft/internal/domain"
	invitationSvc "vowcraft/internal/domain/services/invitation"
	"vowcraft/internal/service/llm/llmtest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPatchGenerator_Generate(t *testing.T) {
	completer := llmtest.NewScriptedCompleter("```json\n{\"ops\": []}\n```")
	gen := NewPatchGenerator(completer, "claude-haiku-4-5", discardLogger())

	out, err := gen.Generate(context.Background(), &invitationSvc.GenerateRequest{
		Prompt:  "Change the hero title",
		Context: `{"blocks":[{"id":"hero","type":"hero"}]}`,
		Scope:   []string{"hero"},
	})
	require.NoError(t, err)
	assert.Contains(t, out.Raw, `{"ops": []}`)
	assert.Equal(t, "scripted-model", out.Model)
	assert.Equal(t, 100, out.InputTokens)

	prompt := completer.LastPrompt()
	assert.Contains(t, prompt, "Change the hero title")
	assert.Contains(t, prompt, "Scope (block ids): hero")
	assert.Contains(t, prompt, `"id":"hero"`)
}

func TestPatchGenerator_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		completer := llmtest.NewScriptedCompleter()
		completer.Err = errors.New("overloaded")
		gen := NewPatchGenerator(completer, "claude-haiku-4-5", discardLogger())

		_, err := gen.Generate(context.Background(), &invitationSvc.GenerateRequest{Prompt: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrExternalService))
		assert.Contains(t, err.Error(), "overloaded")
	})

	t.Run("empty response", func(t *testing.T) {
		gen := NewPatchGenerator(llmtest.NewScriptedCompleter(), "claude-haiku-4-5", discardLogger())

		_, err := gen.Generate(context.Background(), &invitationSvc.GenerateRequest{Prompt: "x"})
		assert.True(t, errors.Is(err, domain.ErrExternalService))
	})
}

func TestSignalExtractor(t *testing.T) {
	completer := llmtest.NewScriptedCompleter(
		`Sure! {"category": " Rustic ", "palette_tags": ["Sage", "kraft", "sage", ""], "typography_tags": ["Handwritten"]}`,
	)
	extractor := NewSignalExtractor(completer, "claude-haiku-4-5", discardLogger())

	signals, err := extractor.ExtractSignals(context.Background(), "barn wedding with greenery and kraft paper")
	require.NoError(t, err)
	assert.Equal(t, "rustic", signals.Category)
	assert.Equal(t, []string{"sage", "kraft"}, signals.PaletteTags)
	assert.Equal(t, []string{"handwritten"}, signals.TypographyTags)
	assert.Equal(t, "barn wedding with greenery and kraft paper", completer.LastPrompt())
}

func TestSignalExtractor_Unparseable(t *testing.T) {
	extractor := NewSignalExtractor(llmtest.NewScriptedCompleter("I'm not sure."), "claude-haiku-4-5", discardLogger())

	_, err := extractor.ExtractSignals(context.Background(), "something pretty")
	assert.True(t, errors.Is(err, domain.ErrExternalService))
}
