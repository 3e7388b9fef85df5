package services

import "context"

// ResourceAuthorizer checks if a user can access resources.
// Current implementation: ownership-based (user owns the invitation document).
//
// Services call the authorizer before reading resource internals.
// Absent resources surface as domain.ErrNotFound, foreign ones as domain.ErrForbidden.
type ResourceAuthorizer interface {
	// CanAccessDocument checks if user owns a document
	CanAccessDocument(ctx context.Context, userID, documentID string) error

	// CanAccessBranch checks if user can access a branch (via its origin document)
	CanAccessBranch(ctx context.Context, userID, branchID string) error

	// CanAccessEdit checks if user can access an edit log entry (via its document)
	CanAccessEdit(ctx context.Context, userID, editID string) error
}
