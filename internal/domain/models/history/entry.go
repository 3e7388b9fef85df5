package history

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"vowcraft/internal/domain/models/patch"
)

// Source identifies what produced an edit.
type Source string

const (
	SourceAI       Source = "ai"
	SourceManual   Source = "manual"
	SourceTemplate Source = "template"
	SourceUndo     Source = "undo"
)

// Outcome is the result of an edit attempt.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected" // failed validation, nothing applied
	OutcomeConflict  Outcome = "conflict" // base version was stale at commit time
	OutcomeFailed    Outcome = "failed"   // generative model or storage failure
	OutcomeNoop      Outcome = "noop"     // empty operation set, no new version
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewEntryID returns a time-sortable id for an entry created at t.
// Ids minted within the same millisecond still sort in creation order.
func NewEntryID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Entry is an immutable audit record of one edit attempt.
// Entries are append-only; nothing in the system updates or deletes them.
type Entry struct {
	ID            string      `json:"id" db:"id"` // ULID, sortable by creation time
	DocumentID    string      `json:"document_id" db:"document_id"`
	UserID        string      `json:"user_id" db:"user_id"`
	Source        Source      `json:"source" db:"source"`
	BaseVersion   int         `json:"base_version" db:"base_version"`
	Prompt        string      `json:"prompt,omitempty" db:"prompt"`
	Scope         []string    `json:"scope,omitempty" db:"scope"`
	Patch         patch.Patch `json:"patch,omitempty" db:"patch"`
	Inverse       patch.Patch `json:"inverse,omitempty" db:"inverse"`
	ResultVersion *int        `json:"result_version,omitempty" db:"result_version"`
	Outcome       Outcome     `json:"outcome" db:"outcome"`
	FailureReason string      `json:"failure_reason,omitempty" db:"failure_reason"`
	Model         string      `json:"model,omitempty" db:"model"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// Committed reports whether the edit produced a new version.
func (e *Entry) Committed() bool {
	return e.Outcome == OutcomeCommitted && e.ResultVersion != nil
}
