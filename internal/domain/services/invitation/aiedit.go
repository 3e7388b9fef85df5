package invitation

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"vowcraft/internal/config"
	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
)

// AIEditService turns natural-language instructions into committed patch sets
type AIEditService interface {
	// RequestEdit asks the generative model for a patch, validates and commits it.
	// The edit is logged whatever the outcome once the document has been read.
	RequestEdit(ctx context.Context, req *AIEditRequest) (*AIEditResult, error)
}

// AIEditRequest represents an AI edit request
type AIEditRequest struct {
	UserID     string   `json:"-"`
	DocumentID string   `json:"-"`
	Prompt     string   `json:"prompt"`
	Scope      []string `json:"scope,omitempty"` // block ids the edit may touch; empty means whole document
}

// Validate validates the AI edit request
func (r *AIEditRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.Prompt, validation.Required, validation.By(notBlank), validation.Length(1, config.MaxPromptLength)),
		validation.Field(&r.Scope, validation.Length(0, config.MaxBlocksPerDocument),
			validation.Each(validation.By(blockID))),
	)
}

// AIEditResult is the outcome of a committed AI edit
type AIEditResult struct {
	EditID     string               `json:"edit_id"`
	Patch      patch.Patch          `json:"patch"`
	NewVersion int                  `json:"new_version"`
	Document   *invitation.Document `json:"document"`
	Model      string               `json:"model,omitempty"`
}

func notBlank(value interface{}) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return validation.ErrRequired
	}
	return nil
}

func blockID(value interface{}) error {
	if s, _ := value.(string); !invitation.IsValidBlockID(s) {
		return validation.NewError("validation_block_id", "must be a block id")
	}
	return nil
}
