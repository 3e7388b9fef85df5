package invitation

import "time"

// Branch is an independent copy of a document's content taken at OriginVersion.
// After creation it shares nothing with its origin; each side versions on its own.
type Branch struct {
	ID               string    `json:"id" db:"id"`
	OriginDocumentID string    `json:"origin_document_id" db:"origin_document_id"`
	OriginVersion    int       `json:"origin_version" db:"origin_version"`
	Name             string    `json:"name" db:"name"`
	Document         Document  `json:"document" db:"document"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Version returns the branch's own committed version.
func (b *Branch) Version() int {
	return b.Document.Version
}
