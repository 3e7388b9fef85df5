package invitation

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// StyleProperty names a concrete, render-ready style value.
type StyleProperty string

// Resolvable style properties
const (
	PropBackgroundColor StyleProperty = "background_color"
	PropTextColor       StyleProperty = "text_color"
	PropAccentColor     StyleProperty = "accent_color"
	PropHeadingFont     StyleProperty = "heading_font"
	PropBodyFont        StyleProperty = "body_font"
	PropFontSize        StyleProperty = "font_size"
	PropPadding         StyleProperty = "padding"
	PropGap             StyleProperty = "gap"
	PropBorderRadius    StyleProperty = "border_radius"
	PropShadow          StyleProperty = "shadow"
	PropAnimation       StyleProperty = "animation"
)

// AllStyleProperties lists the resolvable properties in a stable order.
var AllStyleProperties = []StyleProperty{
	PropBackgroundColor, PropTextColor, PropAccentColor,
	PropHeadingFont, PropBodyFont, PropFontSize,
	PropPadding, PropGap, PropBorderRadius,
	PropShadow, PropAnimation,
}

// IsKnownStyleProperty reports whether p is resolvable.
func IsKnownStyleProperty(p StyleProperty) bool {
	for _, known := range AllStyleProperties {
		if known == p {
			return true
		}
	}
	return false
}

// Token groups
const (
	TokenGroupPalette    = "palette"
	TokenGroupTypography = "typography"
	TokenGroupSpacing    = "spacing"
	TokenGroupEffects    = "effects"
)

// TokenRefPrefix marks a value as a reference to a token, e.g. "$palette.primary".
const TokenRefPrefix = "$"

// StyleTokens is the document's base design token set.
type StyleTokens struct {
	Palette    map[string]string `json:"palette,omitempty"`
	Typography map[string]string `json:"typography,omitempty"`
	Spacing    map[string]string `json:"spacing,omitempty"`
	Effects    map[string]string `json:"effects,omitempty"`
}

// Lookup returns the token value for "group.name".
func (t StyleTokens) Lookup(group, name string) (string, bool) {
	var m map[string]string
	switch group {
	case TokenGroupPalette:
		m = t.Palette
	case TokenGroupTypography:
		m = t.Typography
	case TokenGroupSpacing:
		m = t.Spacing
	case TokenGroupEffects:
		m = t.Effects
	default:
		return "", false
	}
	v, ok := m[name]
	return v, ok
}

// StyleOverride maps properties to literal values or token references.
type StyleOverride map[StyleProperty]string

// Validate rejects properties the resolver does not know.
// Values are not checked here: malformed values degrade to defaults at resolution time.
func (o StyleOverride) Validate() error {
	var unknown []string
	for p := range o {
		if !IsKnownStyleProperty(p) {
			unknown = append(unknown, string(p))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown style properties: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// StyleSystem is the abstract style specification of a document.
type StyleSystem struct {
	Tokens         StyleTokens                 `json:"tokens"`
	TypeOverrides  map[BlockType]StyleOverride `json:"type_overrides,omitempty"`
	BlockOverrides map[string]StyleOverride    `json:"block_overrides,omitempty"`
}

// Validate checks override keys; token values are free-form.
func (s StyleSystem) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.TypeOverrides, validation.By(func(value interface{}) error {
			for t, o := range s.TypeOverrides {
				if !IsKnownBlockType(t) {
					return fmt.Errorf("unknown block type %q", t)
				}
				if err := o.Validate(); err != nil {
					return fmt.Errorf("%s: %w", t, err)
				}
			}
			return nil
		})),
		validation.Field(&s.BlockOverrides, validation.By(func(value interface{}) error {
			for id, o := range s.BlockOverrides {
				if err := o.Validate(); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
			}
			return nil
		})),
	)
}

// DefaultStyleSystem is the token set given to new documents.
func DefaultStyleSystem() StyleSystem {
	return StyleSystem{
		Tokens: StyleTokens{
			Palette: map[string]string{
				"primary":    "#8B5E3C",
				"background": "#FFFAF5",
				"text":       "#3A2E2A",
				"accent":     "#C9A227",
			},
			Typography: map[string]string{
				"heading": "Playfair Display",
				"body":    "Lato",
				"base":    "16px",
			},
			Spacing: map[string]string{
				"section": "48px",
				"gap":     "16px",
			},
			Effects: map[string]string{
				"radius": "8px",
				"shadow": "none",
			},
		},
	}
}
