package template

import (
	"vowcraft/internal/domain/models/invitation"
)

// StyleSignature describes the look a template is built for.
type StyleSignature struct {
	PaletteTags    []string                `json:"palette_tags" yaml:"palette_tags"`
	TypographyTags []string                `json:"typography_tags" yaml:"typography_tags"`
	Tokens         *invitation.StyleTokens `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// Metadata is a read-only catalog entry.
type Metadata struct {
	ID         string                 `json:"id" yaml:"id"`
	Name       string                 `json:"name" yaml:"name"`
	Category   string                 `json:"category" yaml:"category"`
	Required   []invitation.BlockType `json:"required" yaml:"required"`
	Compatible []invitation.BlockType `json:"compatible,omitempty" yaml:"compatible"`
	Style      StyleSignature         `json:"style" yaml:"style"`
	Priority   int                    `json:"priority" yaml:"priority"`
}

// Wants reports whether blocks of type t survive applying this template.
func (m *Metadata) Wants(t invitation.BlockType) bool {
	return m.Requires(t) || containsType(m.Compatible, t)
}

// Requires reports whether t is part of the required composition.
func (m *Metadata) Requires(t invitation.BlockType) bool {
	return containsType(m.Required, t)
}

func containsType(types []invitation.BlockType, t invitation.BlockType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// Signals are the extracted style/category tags used to score template fit.
type Signals struct {
	Category       string   `json:"category,omitempty"`
	PaletteTags    []string `json:"palette_tags,omitempty"`
	TypographyTags []string `json:"typography_tags,omitempty"`
}

// IsEmpty reports whether no signal was extracted.
func (s Signals) IsEmpty() bool {
	return s.Category == "" && len(s.PaletteTags) == 0 && len(s.TypographyTags) == 0
}

// Weights tune template scoring. They are catalog configuration, not constants.
type Weights struct {
	Category   float64 `json:"category" yaml:"category"`
	Palette    float64 `json:"palette" yaml:"palette"`
	Typography float64 `json:"typography" yaml:"typography"`
	// MinScore is the relevance threshold below which no template matches.
	MinScore float64 `json:"min_score" yaml:"min_score"`
}

// DefaultWeights is used when the catalog file does not set weights.
func DefaultWeights() Weights {
	return Weights{Category: 0.4, Palette: 0.35, Typography: 0.25, MinScore: 0.3}
}

// DefaultTemplate is handed to the applier when the catalog is empty.
func DefaultTemplate() Metadata {
	return Metadata{
		ID:       "builtin-classic",
		Name:     "Classic",
		Category: "classic",
		Required: []invitation.BlockType{
			invitation.BlockHero, invitation.BlockSchedule, invitation.BlockMap,
			invitation.BlockRSVP, invitation.BlockClosing,
		},
		Compatible: invitation.AllBlockTypes,
	}
}
