package template

import (
	"fmt"
	"strings"

	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
	tmpl "vowcraft/internal/domain/models/template"
	"vowcraft/internal/service/patchengine"
)

// Applier turns a template into a single patch set for a document.
type Applier struct {
	engine *patchengine.Engine
	newID  func(invitation.BlockType) string
}

// NewApplier creates an applier. newID may be nil.
func NewApplier(engine *patchengine.Engine, newID func(invitation.BlockType) string) *Applier {
	if newID == nil {
		newID = invitation.NewBlockID
	}
	return &Applier{engine: engine, newID: newID}
}

type slot struct {
	block    invitation.Block
	existing bool
}

// Plan computes the patch that gives doc the template's composition:
//   - each required type takes the first unused block of that type, keeping its
//     content, or a new block with default content;
//   - other blocks whose type the template wants stay, after the required block
//     they followed;
//   - blocks of any other type are dropped;
//   - the template's token preset replaces the document tokens.
func (a *Applier) Plan(doc *invitation.Document, t tmpl.Metadata) (patch.Patch, tmpl.Preview, error) {
	preview := tmpl.Preview{
		Kept:    []tmpl.BlockSummary{},
		Added:   []tmpl.BlockSummary{},
		Dropped: []tmpl.BlockSummary{},
	}

	taken := make(map[string]bool, len(doc.Blocks))
	ids := make(map[string]bool, len(doc.Blocks))
	for _, b := range doc.Blocks {
		ids[b.ID] = true
	}

	slots := make([]slot, 0, len(t.Required))
	for _, rt := range t.Required {
		found := false
		for _, b := range doc.Blocks {
			if b.Type == rt && !taken[b.ID] {
				taken[b.ID] = true
				slots = append(slots, slot{block: b, existing: true})
				found = true
				break
			}
		}
		if found {
			continue
		}
		id := a.uniqueID(rt, ids)
		ids[id] = true
		slots = append(slots, slot{block: invitation.Block{
			ID:      id,
			Type:    rt,
			Content: defaultContent(rt, doc.WeddingData),
			Visible: true,
		}})
	}

	// extras keyed by the id of the required block preceding them ("" = before all)
	extras := map[string][]string{}
	var dropped []invitation.Block
	anchor := ""
	for _, b := range doc.Blocks {
		if taken[b.ID] {
			anchor = b.ID
			continue
		}
		if t.Wants(b.Type) {
			extras[anchor] = append(extras[anchor], b.ID)
			continue
		}
		dropped = append(dropped, b)
	}

	target := append([]string{}, extras[""]...)
	for _, s := range slots {
		target = append(target, s.block.ID)
		if s.existing {
			target = append(target, extras[s.block.ID]...)
		}
	}

	var ops patch.Patch

	for _, b := range dropped {
		ops = append(ops, patch.Remove(patch.BlockPath(b.ID)))
		if _, ok := doc.Style.BlockOverrides[b.ID]; ok {
			ops = append(ops, patch.Remove("/style/block_overrides/"+escape(b.ID)))
		}
		preview.Dropped = append(preview.Dropped, tmpl.BlockSummary{ID: b.ID, Type: b.Type})
	}

	// order after removals and appends, before any move
	current := make([]string, 0, len(target))
	for _, b := range doc.Blocks {
		if !containsBlock(dropped, b.ID) {
			current = append(current, b.ID)
		}
	}
	for _, s := range slots {
		if s.existing {
			continue
		}
		op, err := patch.Add(patch.AppendBlockPath, s.block)
		if err != nil {
			return nil, preview, err
		}
		ops = append(ops, op)
		current = append(current, s.block.ID)
		preview.Added = append(preview.Added, tmpl.BlockSummary{ID: s.block.ID, Type: s.block.Type})
	}

	if !sameOrder(current, target) {
		for _, id := range target {
			ops = append(ops, patch.Move(patch.BlockPath(id), patch.AppendBlockPath))
		}
	}

	if t.Style.Tokens != nil {
		op, err := patch.Replace("/style/tokens", t.Style.Tokens)
		if err != nil {
			return nil, preview, err
		}
		ops = append(ops, op)
		preview.TokensSet = true
	}

	byID := make(map[string]invitation.BlockType, len(doc.Blocks)+len(slots))
	for _, b := range doc.Blocks {
		byID[b.ID] = b.Type
	}
	for _, s := range slots {
		byID[s.block.ID] = s.block.Type
	}
	preview.Composition = make([]invitation.BlockType, len(target))
	for i, id := range target {
		preview.Composition[i] = byID[id]
		if ids[id] && !isAdded(preview.Added, id) {
			preview.Kept = append(preview.Kept, tmpl.BlockSummary{ID: id, Type: byID[id]})
		}
	}

	return ops, preview, nil
}

// ApplyTemplateToDocument returns doc with the template applied as one patch set
// at doc's version. doc itself is not modified.
func (a *Applier) ApplyTemplateToDocument(doc *invitation.Document, t tmpl.Metadata) (*invitation.Document, patch.Patch, error) {
	ops, _, err := a.Plan(doc, t)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.engine.Apply(doc, doc.Version, ops)
	if err != nil {
		return nil, nil, fmt.Errorf("apply template %s: %w", t.ID, err)
	}
	return res.Document, ops, nil
}

func (a *Applier) uniqueID(t invitation.BlockType, ids map[string]bool) string {
	if !ids[string(t)] {
		return string(t)
	}
	for {
		id := a.newID(t)
		if !ids[id] {
			return id
		}
	}
}

// defaultContent returns the content of a new block, prefilled from the wedding data.
func defaultContent(t invitation.BlockType, w invitation.WeddingData) invitation.Content {
	names := coupleNames(w)
	switch t {
	case invitation.BlockHero:
		return &invitation.HeroContent{Title: names, Date: w.Date}
	case invitation.BlockCountdown:
		c := &invitation.CountdownContent{}
		if w.Date != "" {
			clock := w.Time
			if clock == "" {
				clock = "00:00"
			}
			c.TargetTime = w.Date + "T" + clock + ":00Z"
		}
		return c
	case invitation.BlockMap:
		return &invitation.MapContent{VenueName: w.VenueName, Address: w.VenueAddress}
	case invitation.BlockClosing:
		return &invitation.ClosingContent{Signature: names}
	}
	content, _ := invitation.NewContent(t)
	return content
}

func coupleNames(w invitation.WeddingData) string {
	switch {
	case w.PartnerOne != "" && w.PartnerTwo != "":
		return w.PartnerOne + " & " + w.PartnerTwo
	default:
		return w.PartnerOne + w.PartnerTwo
	}
}

func escape(segment string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(segment)
}

func containsBlock(blocks []invitation.Block, id string) bool {
	for _, b := range blocks {
		if b.ID == id {
			return true
		}
	}
	return false
}

func isAdded(added []tmpl.BlockSummary, id string) bool {
	for _, s := range added {
		if s.ID == id {
			return true
		}
	}
	return false
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
