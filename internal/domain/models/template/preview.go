package template

import "vowcraft/internal/domain/models/invitation"

// BlockSummary identifies a block in a preview.
type BlockSummary struct {
	ID   string               `json:"id"`
	Type invitation.BlockType `json:"type"`
}

// Preview describes the effect of applying a template without committing it.
type Preview struct {
	Composition []invitation.BlockType `json:"composition"` // resulting block types in order
	Kept        []BlockSummary         `json:"kept"`
	Added       []BlockSummary         `json:"added"`
	Dropped     []BlockSummary         `json:"dropped"`
	TokensSet   bool                   `json:"tokens_set"`
}

// Destructive reports whether applying drops any existing block.
func (p Preview) Destructive() bool {
	return len(p.Dropped) > 0
}
