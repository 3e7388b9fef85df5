package invitation

import (
	"context"

	"vowcraft/internal/domain/models/history"
)

// EditLogRepository is the append-only audit log of edits.
// Entries are never updated or deleted.
type EditLogRepository interface {
	// Append stores a new entry
	Append(ctx context.Context, entry *history.Entry) error

	// GetByID retrieves a single entry
	GetByID(ctx context.Context, id string) (*history.Entry, error)

	// ListByDocument lists a document's entries, oldest first
	ListByDocument(ctx context.Context, documentID string, limit int) ([]history.Entry, error)
}
