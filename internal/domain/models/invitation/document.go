package invitation

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"vowcraft/internal/config"
)

// Status is the publication state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// allowedTransitions lists the only legal status changes.
// published -> draft is the explicit unpublish.
var allowedTransitions = map[Status][]Status{
	StatusDraft:     {StatusPublished},
	StatusPublished: {StatusArchived, StatusDraft},
	StatusArchived:  {},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Staying in the same status is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WeddingData holds the free-form facts about the event that blocks may reference.
type WeddingData struct {
	PartnerOne   string            `json:"partner_one,omitempty"`
	PartnerTwo   string            `json:"partner_two,omitempty"`
	Date         string            `json:"date,omitempty"` // YYYY-MM-DD
	Time         string            `json:"time,omitempty"` // HH:MM
	VenueName    string            `json:"venue_name,omitempty"`
	VenueAddress string            `json:"venue_address,omitempty"`
	Hashtag      string            `json:"hashtag,omitempty"`
	ContactEmail string            `json:"contact_email,omitempty"`
	ContactPhone string            `json:"contact_phone,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func (w WeddingData) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.PartnerOne, shortText...),
		validation.Field(&w.PartnerTwo, shortText...),
		validation.Field(&w.Date, validation.Date(dateLayout)),
		validation.Field(&w.Time, validation.Date(clockLayout)),
		validation.Field(&w.VenueName, shortText...),
		validation.Field(&w.VenueAddress, longText...),
		validation.Field(&w.Hashtag, shortText...),
		validation.Field(&w.ContactEmail, is.EmailFormat),
		validation.Field(&w.ContactPhone, validation.Length(0, 32)),
		validation.Field(&w.Extra, validation.Length(0, 50)),
	)
}

// Document is a versioned, block-based invitation.
// It is mutated only through the patch engine; every committed mutation bumps Version.
type Document struct {
	ID          string      `json:"id" db:"id"`
	OwnerID     string      `json:"owner_id" db:"owner_id"`
	Title       string      `json:"title" db:"title"`
	Blocks      []Block     `json:"blocks" db:"blocks"`
	Style       StyleSystem `json:"style" db:"style"`
	WeddingData WeddingData `json:"wedding" db:"wedding"`
	Status      Status      `json:"status" db:"status"`
	Version     int         `json:"version" db:"version"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// BlockByID returns the block with the given id and its position.
func (d *Document) BlockByID(id string) (*Block, int, bool) {
	for i := range d.Blocks {
		if d.Blocks[i].ID == id {
			return &d.Blocks[i], i, true
		}
	}
	return nil, -1, false
}

// Composition returns the block types in document order.
func (d *Document) Composition() []BlockType {
	types := make([]BlockType, len(d.Blocks))
	for i, b := range d.Blocks {
		types[i] = b.Type
	}
	return types
}

// Clone returns a deep copy sharing no mutable state with d.
func (d *Document) Clone() (*Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	var cp Document
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	return &cp, nil
}

// ValidateBlock returns the reason a block is invalid, or nil.
func ValidateBlock(b Block) error {
	if !IsValidBlockID(b.ID) {
		return fmt.Errorf("invalid block id %q", b.ID)
	}
	if !IsKnownBlockType(b.Type) {
		return fmt.Errorf("block %s: unknown block type %q", b.ID, b.Type)
	}
	if b.Content == nil {
		return fmt.Errorf("block %s: missing content", b.ID)
	}
	if b.Content.BlockType() != b.Type {
		return fmt.Errorf("block %s: %s content on a %s block", b.ID, b.Content.BlockType(), b.Type)
	}
	if err := b.Content.Validate(); err != nil {
		return fmt.Errorf("block %s: %w", b.ID, err)
	}
	if err := b.Style.Validate(); err != nil {
		return fmt.Errorf("block %s style: %w", b.ID, err)
	}
	return nil
}

// IsValidBlock reports whether b satisfies its type schema.
func IsValidBlock(b Block) bool {
	return ValidateBlock(b) == nil
}

// ValidateDocument returns the first reason d is invalid, or nil.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	if err := validation.ValidateStruct(d,
		validation.Field(&d.Title, validation.Length(0, config.MaxDocumentTitleLength)),
		validation.Field(&d.Status, validation.Required, validation.By(func(interface{}) error {
			if !d.Status.IsValid() {
				return fmt.Errorf("unknown status %q", d.Status)
			}
			return nil
		})),
		validation.Field(&d.Version, validation.Min(1)),
		validation.Field(&d.Blocks, validation.Length(0, config.MaxBlocksPerDocument)),
	); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(d.Blocks))
	for _, b := range d.Blocks {
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("duplicate block id %q", b.ID)
		}
		seen[b.ID] = struct{}{}
		if err := ValidateBlock(b); err != nil {
			return err
		}
	}

	if err := d.Style.Validate(); err != nil {
		return fmt.Errorf("style: %w", err)
	}
	if err := d.WeddingData.Validate(); err != nil {
		return fmt.Errorf("wedding: %w", err)
	}
	return nil
}

// IsValidDocument reports whether d satisfies every document invariant.
func IsValidDocument(d *Document) bool {
	return ValidateDocument(d) == nil
}
