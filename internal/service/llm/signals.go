package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/template"
	invitationSvc "vowcraft/internal/domain/services/invitation"
)

const signalSystemPrompt = `You classify the look of a wedding invitation from a short description.
Reply with a single JSON object and nothing else:
{"category": "...", "palette_tags": ["..."], "typography_tags": ["..."]}
category is one word such as classic, modern, rustic, romantic, bohemian or minimal.
palette_tags are colour words (ivory, gold, sage, blush, black). typography_tags describe type
(serif, script, sans, handwritten). Use lowercase single words.`

type signalExtractor struct {
	completer Completer
	model     string
	logger    *slog.Logger
}

// NewSignalExtractor creates a SignalExtractor backed by an LLM provider.
func NewSignalExtractor(completer Completer, model string, logger *slog.Logger) invitationSvc.SignalExtractor {
	return &signalExtractor{completer: completer, model: model, logger: logger}
}

func (e *signalExtractor) ExtractSignals(ctx context.Context, reference string) (template.Signals, error) {
	resp, err := complete(ctx, e.completer, e.model, signalSystemPrompt, reference)
	if err != nil {
		return template.Signals{}, err
	}

	raw := ExtractJSON(resp.Raw)
	if raw == "" {
		return template.Signals{}, &domain.ExternalServiceError{Service: "model", Err: fmt.Errorf("no JSON object in signal response")}
	}
	var signals template.Signals
	if err := json.Unmarshal([]byte(raw), &signals); err != nil {
		return template.Signals{}, &domain.ExternalServiceError{Service: "model", Err: fmt.Errorf("decode signals: %w", err)}
	}

	signals.Category = strings.ToLower(strings.TrimSpace(signals.Category))
	signals.PaletteTags = cleanTags(signals.PaletteTags)
	signals.TypographyTags = cleanTags(signals.TypographyTags)

	e.logger.Debug("signals extracted",
		"model", resp.Model,
		"category", signals.Category,
		"palette_tags", signals.PaletteTags,
		"typography_tags", signals.TypographyTags,
	)
	return signals, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
