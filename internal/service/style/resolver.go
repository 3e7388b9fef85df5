package style

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"vowcraft/internal/domain/models/invitation"
)

// systemDefaults is the last resort for every property.
var systemDefaults = map[invitation.StyleProperty]string{
	invitation.PropBackgroundColor: "#FFFFFF",
	invitation.PropTextColor:       "#222222",
	invitation.PropAccentColor:     "#8B5E3C",
	invitation.PropHeadingFont:     "Georgia, serif",
	invitation.PropBodyFont:        "Helvetica, Arial, sans-serif",
	invitation.PropFontSize:        "16px",
	invitation.PropPadding:         "48px",
	invitation.PropGap:             "16px",
	invitation.PropBorderRadius:    "0px",
	invitation.PropShadow:          "none",
	invitation.PropAnimation:       "none",
}

// baseTokens maps each property to the token that supplies its document-wide value.
var baseTokens = map[invitation.StyleProperty]tokenRef{
	invitation.PropBackgroundColor: {invitation.TokenGroupPalette, "background"},
	invitation.PropTextColor:       {invitation.TokenGroupPalette, "text"},
	invitation.PropAccentColor:     {invitation.TokenGroupPalette, "accent"},
	invitation.PropHeadingFont:     {invitation.TokenGroupTypography, "heading"},
	invitation.PropBodyFont:        {invitation.TokenGroupTypography, "body"},
	invitation.PropFontSize:        {invitation.TokenGroupTypography, "base"},
	invitation.PropPadding:         {invitation.TokenGroupSpacing, "section"},
	invitation.PropGap:             {invitation.TokenGroupSpacing, "gap"},
	invitation.PropBorderRadius:    {invitation.TokenGroupEffects, "radius"},
	invitation.PropShadow:          {invitation.TokenGroupEffects, "shadow"},
	invitation.PropAnimation:       {invitation.TokenGroupEffects, "animation"},
}

type tokenRef struct {
	group string
	name  string
}

func (r tokenRef) String() string {
	return invitation.TokenRefPrefix + r.group + "." + r.name
}

var (
	colorPattern  = regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|transparent)$`)
	lengthPattern = regexp.MustCompile(`^(0|\d+(\.\d+)?(px|rem|em|%|vh|vw))$`)
	unsafeChars   = regexp.MustCompile(`[;{}<>\\]`)
)

// Fallback records a property that could not be resolved from the style system.
// Implicit marks a base property whose token the document never defined; those
// take the system default by design and are reported but not counted as degraded.
type Fallback struct {
	Scope    string                   `json:"scope"` // "base", "type:{type}" or "block:{id}"
	Property invitation.StyleProperty `json:"property"`
	Value    string                   `json:"value"`
	Reason   string                   `json:"reason"`
	Implicit bool                     `json:"implicit,omitempty"`
}

// BlockRef is the input for one block: its identity and its own override layer.
type BlockRef struct {
	ID       string
	Type     invitation.BlockType
	Override invitation.StyleOverride
}

// ResolvedBlock holds the concrete values for one block.
type ResolvedBlock struct {
	ID         string                              `json:"id"`
	Type       invitation.BlockType                `json:"type"`
	Properties map[invitation.StyleProperty]string `json:"properties"`
}

// ResolvedStyle is render-ready: every property of the base and of every block has a concrete value.
type ResolvedStyle struct {
	Base      map[invitation.StyleProperty]string `json:"base"`
	Blocks    []ResolvedBlock                     `json:"blocks"`
	Fallbacks []Fallback                          `json:"fallbacks,omitempty"`
}

// Degraded returns the fallbacks caused by malformed or dangling values,
// leaving out implicit base defaults.
func (r *ResolvedStyle) Degraded() []Fallback {
	var out []Fallback
	for _, fb := range r.Fallbacks {
		if !fb.Implicit {
			out = append(out, fb)
		}
	}
	return out
}

// Block returns the resolved values of one block.
func (r *ResolvedStyle) Block(id string) (map[invitation.StyleProperty]string, bool) {
	for _, b := range r.Blocks {
		if b.ID == id {
			return b.Properties, true
		}
	}
	return nil, false
}

// StyleSystem returns a style system that resolves to the same values:
// base values become tokens and per-block differences become literal block overrides.
func (r *ResolvedStyle) StyleSystem() invitation.StyleSystem {
	tokens := invitation.StyleTokens{
		Palette:    map[string]string{},
		Typography: map[string]string{},
		Spacing:    map[string]string{},
		Effects:    map[string]string{},
	}
	for prop, ref := range baseTokens {
		value := r.Base[prop]
		switch ref.group {
		case invitation.TokenGroupPalette:
			tokens.Palette[ref.name] = value
		case invitation.TokenGroupTypography:
			tokens.Typography[ref.name] = value
		case invitation.TokenGroupSpacing:
			tokens.Spacing[ref.name] = value
		case invitation.TokenGroupEffects:
			tokens.Effects[ref.name] = value
		}
	}

	sys := invitation.StyleSystem{Tokens: tokens}
	for _, b := range r.Blocks {
		override := invitation.StyleOverride{}
		for prop, value := range b.Properties {
			if r.Base[prop] != value {
				override[prop] = value
			}
		}
		if len(override) > 0 {
			if sys.BlockOverrides == nil {
				sys.BlockOverrides = map[string]invitation.StyleOverride{}
			}
			sys.BlockOverrides[b.ID] = override
		}
	}
	return sys
}

// BlockRefs returns the block list of a resolved style without override layers.
func (r *ResolvedStyle) BlockRefs() []BlockRef {
	refs := make([]BlockRef, len(r.Blocks))
	for i, b := range r.Blocks {
		refs[i] = BlockRef{ID: b.ID, Type: b.Type}
	}
	return refs
}

// Resolve turns a style system into concrete values for the document base and each block.
// Precedence per property: block override, then style-system block override, then
// block-type override, then the base token, then the system default. A value that is a
// dangling or malformed reference, or is invalid for its property, resolves to the system
// default and is recorded in Fallbacks. Resolve never fails.
func Resolve(sys invitation.StyleSystem, blocks []BlockRef) ResolvedStyle {
	r := &resolver{sys: sys}

	out := ResolvedStyle{
		Base:   make(map[invitation.StyleProperty]string, len(invitation.AllStyleProperties)),
		Blocks: make([]ResolvedBlock, 0, len(blocks)),
	}
	for _, prop := range invitation.AllStyleProperties {
		out.Base[prop] = r.value("base", prop, baseTokens[prop].String(), true)
	}

	typeCache := map[invitation.BlockType]map[invitation.StyleProperty]string{}
	for _, ref := range blocks {
		typed, ok := typeCache[ref.Type]
		if !ok {
			typed = r.layer("type:"+string(ref.Type), out.Base, sys.TypeOverrides[ref.Type])
			typeCache[ref.Type] = typed
		}
		merged := mergeOverrides(sys.BlockOverrides[ref.ID], ref.Override)
		out.Blocks = append(out.Blocks, ResolvedBlock{
			ID:         ref.ID,
			Type:       ref.Type,
			Properties: r.layer("block:"+ref.ID, typed, merged),
		})
	}

	out.Fallbacks = r.fallbacks
	sort.SliceStable(out.Fallbacks, func(i, j int) bool {
		if out.Fallbacks[i].Scope != out.Fallbacks[j].Scope {
			return out.Fallbacks[i].Scope < out.Fallbacks[j].Scope
		}
		return out.Fallbacks[i].Property < out.Fallbacks[j].Property
	})
	return out
}

// ResolveDocument resolves a document's style system against its blocks.
func ResolveDocument(doc *invitation.Document) ResolvedStyle {
	refs := make([]BlockRef, len(doc.Blocks))
	for i, b := range doc.Blocks {
		refs[i] = BlockRef{ID: b.ID, Type: b.Type, Override: b.Style}
	}
	return Resolve(doc.Style, refs)
}

// mergeOverrides layers top over bottom.
func mergeOverrides(bottom, top invitation.StyleOverride) invitation.StyleOverride {
	if len(bottom) == 0 {
		return top
	}
	if len(top) == 0 {
		return bottom
	}
	merged := make(invitation.StyleOverride, len(bottom)+len(top))
	for k, v := range bottom {
		merged[k] = v
	}
	for k, v := range top {
		merged[k] = v
	}
	return merged
}

type resolver struct {
	sys       invitation.StyleSystem
	fallbacks []Fallback
}

// layer applies override on top of parent, resolving each overridden value.
func (r *resolver) layer(scope string, parent map[invitation.StyleProperty]string, override invitation.StyleOverride) map[invitation.StyleProperty]string {
	out := make(map[invitation.StyleProperty]string, len(parent))
	for prop, v := range parent {
		out[prop] = v
	}
	for _, prop := range invitation.AllStyleProperties {
		raw, ok := override[prop]
		if !ok {
			continue
		}
		out[prop] = r.value(scope, prop, raw, false)
	}
	return out
}

// value resolves one raw value, recording every fall back to the system default.
func (r *resolver) value(scope string, prop invitation.StyleProperty, raw string, isBase bool) string {
	resolved, err := r.deref(raw)
	if err == nil {
		err = checkValue(prop, resolved)
	}
	if err != nil {
		r.fallbacks = append(r.fallbacks, Fallback{
			Scope:    scope,
			Property: prop,
			Value:    raw,
			Reason:   err.Error(),
			Implicit: isBase && err == errMissingToken,
		})
		return systemDefaults[prop]
	}
	return resolved
}

var errMissingToken = fmt.Errorf("dangling token reference")

// deref follows a single "$group.name" reference. Token values may not themselves be references.
func (r *resolver) deref(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if !strings.HasPrefix(value, invitation.TokenRefPrefix) {
		return value, nil
	}
	group, name, ok := strings.Cut(strings.TrimPrefix(value, invitation.TokenRefPrefix), ".")
	if !ok || group == "" || name == "" {
		return "", fmt.Errorf("malformed token reference")
	}
	token, found := r.sys.Tokens.Lookup(group, name)
	if !found {
		return "", errMissingToken
	}
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, invitation.TokenRefPrefix) {
		return "", fmt.Errorf("token %s.%s is itself a reference", group, name)
	}
	return token, nil
}

func checkValue(prop invitation.StyleProperty, value string) error {
	if value == "" {
		return fmt.Errorf("empty value")
	}
	switch prop {
	case invitation.PropBackgroundColor, invitation.PropTextColor, invitation.PropAccentColor:
		if !colorPattern.MatchString(value) {
			return fmt.Errorf("invalid color %q", value)
		}
	case invitation.PropFontSize, invitation.PropPadding, invitation.PropGap, invitation.PropBorderRadius:
		if !lengthPattern.MatchString(value) {
			return fmt.Errorf("invalid length %q", value)
		}
	default:
		if len(value) > 200 || unsafeChars.MatchString(value) {
			return fmt.Errorf("invalid value %q", value)
		}
	}
	return nil
}
