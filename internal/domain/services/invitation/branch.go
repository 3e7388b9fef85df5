package invitation

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"vowcraft/internal/config"
	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
)

// BranchService manages full-copy branches of documents
type BranchService interface {
	// CreateBranch snapshots the document's committed state
	CreateBranch(ctx context.Context, userID, documentID string, req *CreateBranchRequest) (*invitation.Branch, error)

	// ListBranches lists a document's branches in creation order
	ListBranches(ctx context.Context, userID, documentID string) ([]invitation.Branch, error)

	// GetBranch retrieves a branch
	GetBranch(ctx context.Context, userID, branchID string) (*invitation.Branch, error)

	// PatchBranch applies a patch set to the branch's own document copy
	PatchBranch(ctx context.Context, userID, branchID string, req *PatchRequest) (*BranchCommitResult, error)

	// DeleteBranch removes a branch; the origin document is untouched
	DeleteBranch(ctx context.Context, userID, branchID string) error
}

// CreateBranchRequest represents a branch creation request
type CreateBranchRequest struct {
	Name string `json:"name,omitempty"`
}

// Validate validates the branch request
func (r *CreateBranchRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Length(0, config.MaxBranchNameLength)),
	)
}

// BranchCommitResult describes a patch applied to a branch
type BranchCommitResult struct {
	Branch  *invitation.Branch `json:"branch"`
	Patch   patch.Patch        `json:"patch"`
	Inverse patch.Patch        `json:"inverse,omitempty"`
	Changed bool               `json:"changed"`
}
