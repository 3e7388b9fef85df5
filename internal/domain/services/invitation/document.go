package invitation

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"vowcraft/internal/config"
	"vowcraft/internal/domain/models/history"
	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
)

// DocumentService handles invitation documents: creation, manual patches,
// the status workflow and edit history.
type DocumentService interface {
	// CreateDocument creates a document at version 1 from a seed
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*invitation.Document, error)

	// GetDocument retrieves the committed document
	// userID is used for authorization check
	GetDocument(ctx context.Context, userID, documentID string) (*invitation.Document, error)

	// ListDocuments lists the user's documents
	ListDocuments(ctx context.Context, userID string) ([]invitation.Document, error)

	// PatchDocument applies a manual patch set against req.BaseVersion
	PatchDocument(ctx context.Context, userID, documentID string, req *PatchRequest) (*CommitResult, error)

	// ChangeStatus moves the document through draft -> published -> archived
	ChangeStatus(ctx context.Context, userID, documentID string, req *StatusRequest) (*CommitResult, error)

	// ListHistory lists the document's edit log, oldest first
	ListHistory(ctx context.Context, userID, documentID string, limit int) ([]history.Entry, error)

	// UndoEdit applies the inverse of a committed edit at that edit's result version
	UndoEdit(ctx context.Context, userID, editID string) (*CommitResult, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	UserID  string                  `json:"-"` // Set by handler from auth context, not from request body
	Title   string                  `json:"title"`
	Seed    invitation.Seed         `json:"seed,omitempty"`    // blank (default) or sample
	Wedding *invitation.WeddingData `json:"wedding,omitempty"` // overrides the seed's wedding data
}

// Validate validates the create request
func (r *CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, config.MaxDocumentTitleLength)),
		validation.Field(&r.Seed, validation.In(invitation.SeedBlank, invitation.SeedSample)),
		validation.Field(&r.Wedding),
	)
}

// PatchRequest is a patch set authored against a known version
type PatchRequest struct {
	BaseVersion int         `json:"base_version"`
	Ops         patch.Patch `json:"ops"`
	Audit       bool        `json:"audit,omitempty"` // record the edit in the log
}

// Validate validates the patch request envelope; the operations themselves are
// validated by the patch engine against the document.
func (r *PatchRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BaseVersion, validation.Required, validation.Min(1)),
		validation.Field(&r.Ops, validation.Length(0, config.MaxPatchOperations)),
	)
}

// StatusRequest changes the publication status
type StatusRequest struct {
	BaseVersion int               `json:"base_version"`
	Status      invitation.Status `json:"status"`
}

// Validate validates the status request
func (r *StatusRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BaseVersion, validation.Required, validation.Min(1)),
		validation.Field(&r.Status, validation.Required,
			validation.In(invitation.StatusDraft, invitation.StatusPublished, invitation.StatusArchived)),
	)
}

// CommitResult describes a committed (or no-op) patch set
type CommitResult struct {
	Document *invitation.Document `json:"document"`
	Patch    patch.Patch          `json:"patch"`
	Inverse  patch.Patch          `json:"inverse,omitempty"`
	Changed  bool                 `json:"changed"`
	EditID   string               `json:"edit_id,omitempty"` // set when the edit was logged
}
