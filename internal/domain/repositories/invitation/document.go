package invitation

import (
	"context"

	models "vowcraft/internal/domain/models/invitation"
)

// DocumentRepository defines data access operations for invitation documents.
//
// Writes are conditional on the caller's expected version (compare-and-swap on
// (id, version)); exactly one writer wins per version number.
type DocumentRepository interface {
	// Create stores a new document at its initial version
	Create(ctx context.Context, doc *models.Document) error

	// GetByID retrieves the current committed document
	GetByID(ctx context.Context, id string) (*models.Document, error)

	// GetOwnerID returns only the owner of a document (used for authorization
	// before any document internals are read)
	GetOwnerID(ctx context.Context, id string) (string, error)

	// UpdateIfVersion commits doc if the stored version still equals expectedVersion.
	// Returns *domain.ConflictError when another writer committed first.
	UpdateIfVersion(ctx context.Context, doc *models.Document, expectedVersion int) error

	// ListByOwner lists an owner's documents, most recently updated first
	ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error)
}
