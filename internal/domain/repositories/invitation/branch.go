package invitation

import (
	"context"

	models "vowcraft/internal/domain/models/invitation"
)

// BranchRepository defines data access operations for branches.
// Branches follow the same conditional-write contract as documents, keyed by branch id.
type BranchRepository interface {
	// Create stores a new branch
	Create(ctx context.Context, branch *models.Branch) error

	// GetByID retrieves a branch
	GetByID(ctx context.Context, id string) (*models.Branch, error)

	// ListByOrigin lists branches forked from a document in creation order
	ListByOrigin(ctx context.Context, documentID string) ([]models.Branch, error)

	// UpdateIfVersion commits the branch document if its stored version equals expectedVersion
	UpdateIfVersion(ctx context.Context, branch *models.Branch, expectedVersion int) error

	// Delete removes a branch; returns domain.ErrNotFound if absent
	Delete(ctx context.Context, id string) error
}
