package invitation

import (
	"context"

	"vowcraft/internal/domain/models/template"
)

// PatchGenerator is the boundary to the generative model used for AI edits.
// Implementations return the model's raw text; parsing and validation happen
// on this side of the boundary.
type PatchGenerator interface {
	Generate(ctx context.Context, req *GenerateRequest) (*Generation, error)
}

// GenerateRequest carries the instruction and the bounded document context
type GenerateRequest struct {
	Prompt  string
	Context string   // JSON summary of the document, already size-bounded
	Scope   []string // block ids the patch may touch; empty means any
}

// Generation is a raw model response
type Generation struct {
	Raw          string
	Model        string
	InputTokens  int
	OutputTokens int
}

// SignalExtractor derives template-matching signals from a free-text reference
// (a description of the look the couple wants).
type SignalExtractor interface {
	ExtractSignals(ctx context.Context, reference string) (template.Signals, error)
}
