package invitation

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"vowcraft/internal/config"
	"vowcraft/internal/domain/models/template"
)

// TemplateService exposes the catalog and applies templates to documents
type TemplateService interface {
	// ListTemplates returns the catalog in catalog order
	ListTemplates(ctx context.Context) []template.Metadata

	// GetTemplate returns a catalog entry
	GetTemplate(ctx context.Context, templateID string) (*template.Metadata, error)

	// ApplyTemplate selects a template (explicitly, by signals, or from a reference)
	// and applies it as one patch set. When blocks would be dropped and the request
	// is not confirmed, nothing is committed and the preview is returned.
	ApplyTemplate(ctx context.Context, userID, documentID string, req *ApplyTemplateRequest) (*TemplateApplication, error)
}

// ApplyTemplateRequest represents a template application request.
// Exactly one of TemplateID, Signals or Reference selects the template; with none
// the fallback template for the document's composition is used.
type ApplyTemplateRequest struct {
	TemplateID  string            `json:"template_id,omitempty"`
	Signals     *template.Signals `json:"signals,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	BaseVersion int               `json:"base_version"`
	Confirm     bool              `json:"confirm,omitempty"`
	DryRun      bool              `json:"dry_run,omitempty"`
}

// Validate validates the template request
func (r *ApplyTemplateRequest) Validate() error {
	selectors := 0
	if r.TemplateID != "" {
		selectors++
	}
	if r.Signals != nil {
		selectors++
	}
	if r.Reference != "" {
		selectors++
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.BaseVersion, validation.Required, validation.Min(1)),
		validation.Field(&r.Reference, validation.Length(0, config.MaxPromptLength)),
		validation.Field(&r.TemplateID, validation.By(func(interface{}) error {
			if selectors > 1 {
				return validation.NewError("validation_selector", "use only one of template_id, signals or reference")
			}
			return nil
		})),
	)
}

// Selection methods
const (
	SelectionExplicit = "explicit"
	SelectionMatched  = "matched"
	SelectionFallback = "fallback"
)

// TemplateApplication reports which template was chosen and what applying it does
type TemplateApplication struct {
	Template template.Metadata `json:"template"`
	Method   string            `json:"method"`
	Score    float64           `json:"score,omitempty"`
	Preview  template.Preview  `json:"preview"`
	Applied  bool              `json:"applied"`
	Result   *CommitResult     `json:"result,omitempty"`
}
