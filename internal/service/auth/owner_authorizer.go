package auth

import (
	"context"
	"errors"
	"fmt"

	"vowcraft/internal/domain"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using ownership checks.
// A user can access a resource if they own the document it belongs to:
// branches through their origin document, edit log entries through theirs.
type OwnerBasedAuthorizer struct {
	docRepo     invitationRepo.DocumentRepository
	branchRepo  invitationRepo.BranchRepository
	editLogRepo invitationRepo.EditLogRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer(
	docRepo invitationRepo.DocumentRepository,
	branchRepo invitationRepo.BranchRepository,
	editLogRepo invitationRepo.EditLogRepository,
) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{
		docRepo:     docRepo,
		branchRepo:  branchRepo,
		editLogRepo: editLogRepo,
	}
}

// CanAccessDocument checks if user owns the document
func (a *OwnerBasedAuthorizer) CanAccessDocument(ctx context.Context, userID, documentID string) error {
	ownerID, err := a.docRepo.GetOwnerID(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("check document access: %w", err)
	}
	if ownerID != userID {
		return fmt.Errorf("access denied to document %s: %w", documentID, domain.ErrForbidden)
	}
	return nil
}

// CanAccessBranch checks if user can access a branch (via its origin document)
func (a *OwnerBasedAuthorizer) CanAccessBranch(ctx context.Context, userID, branchID string) error {
	branch, err := a.branchRepo.GetByID(ctx, branchID)
	if err != nil {
		return fmt.Errorf("get branch for auth: %w", err)
	}

	// The branch copy carries the owner, so a deleted origin does not orphan access
	if branch.Document.OwnerID != userID {
		return fmt.Errorf("access denied to branch %s: %w", branchID, domain.ErrForbidden)
	}
	return nil
}

// CanAccessEdit checks if user can access an edit log entry (via its document)
func (a *OwnerBasedAuthorizer) CanAccessEdit(ctx context.Context, userID, editID string) error {
	entry, err := a.editLogRepo.GetByID(ctx, editID)
	if err != nil {
		return fmt.Errorf("get edit for auth: %w", err)
	}

	return a.CanAccessDocument(ctx, userID, entry.DocumentID)
}
