package aiedit

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"vowcraft/internal/domain/models/invitation"
)

// detail is one step of the context degradation ladder.
type detail struct {
	maxString int  // runes kept per string value
	maxList   int  // items kept per list value
	content   bool // include block content at all
	style     bool // include the style system
}

var ladder = []detail{
	{maxString: 280, maxList: 6, content: true, style: true},
	{maxString: 80, maxList: 3, content: true},
	{},
}

type contextBlock struct {
	ID      string               `json:"id"`
	Type    invitation.BlockType `json:"type"`
	Visible bool                 `json:"visible"`
	Content interface{}          `json:"content,omitempty"`
}

type documentContext struct {
	Title         string                  `json:"title"`
	Status        invitation.Status       `json:"status"`
	Wedding       *invitation.WeddingData `json:"wedding,omitempty"`
	Style         interface{}             `json:"style,omitempty"`
	Blocks        []contextBlock          `json:"blocks"`
	OmittedBlocks int                     `json:"omitted_blocks,omitempty"`
}

// BuildContext summarizes doc for the model within maxBytes. Every block is
// listed by id and type; content is included only for blocks in scope (all
// blocks when scope is empty). Long strings are truncated and long lists
// summarized, more aggressively as the budget tightens. When even ids do not
// fit, trailing blocks are dropped and counted.
func BuildContext(doc *invitation.Document, scope []string, maxBytes int) (string, error) {
	inScope := make(map[string]bool, len(scope))
	for _, id := range scope {
		inScope[id] = true
	}

	for _, d := range ladder {
		out, err := summarize(doc, inScope, d)
		if err != nil {
			return "", err
		}
		if len(out) <= maxBytes {
			return out, nil
		}
	}

	// Ids only and still too large: drop blocks from the end.
	minimal := documentContext{Title: truncateString(doc.Title, 80), Status: doc.Status}
	blocks := make([]contextBlock, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		blocks = append(blocks, contextBlock{ID: b.ID, Type: b.Type, Visible: b.Visible})
	}
	for n := len(blocks); n >= 0; n-- {
		minimal.Blocks = blocks[:n]
		minimal.OmittedBlocks = len(blocks) - n
		raw, err := json.Marshal(minimal)
		if err != nil {
			return "", fmt.Errorf("marshal context: %w", err)
		}
		if len(raw) <= maxBytes {
			return string(raw), nil
		}
	}
	return "", fmt.Errorf("context budget of %d bytes is too small for document %s", maxBytes, doc.ID)
}

func summarize(doc *invitation.Document, inScope map[string]bool, d detail) (string, error) {
	ctx := documentContext{
		Title:  truncateString(doc.Title, max(d.maxString, 80)),
		Status: doc.Status,
		Blocks: make([]contextBlock, 0, len(doc.Blocks)),
	}
	if d.content {
		wedding := doc.WeddingData
		ctx.Wedding = &wedding
	}
	if d.style {
		style, err := plain(doc.Style)
		if err != nil {
			return "", err
		}
		ctx.Style = trim(style, d)
	}

	for _, b := range doc.Blocks {
		cb := contextBlock{ID: b.ID, Type: b.Type, Visible: b.Visible}
		if d.content && (len(inScope) == 0 || inScope[b.ID]) {
			content, err := plain(b.Content)
			if err != nil {
				return "", err
			}
			cb.Content = trim(content, d)
		}
		ctx.Blocks = append(ctx.Blocks, cb)
	}

	raw, err := json.Marshal(ctx)
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}
	return string(raw), nil
}

// plain converts v to its generic JSON form.
func plain(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal context value: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal context value: %w", err)
	}
	return out, nil
}

func trim(v interface{}, d detail) interface{} {
	switch val := v.(type) {
	case string:
		return truncateString(val, d.maxString)
	case []interface{}:
		kept := val
		if len(val) > d.maxList {
			kept = val[:d.maxList]
		}
		out := make([]interface{}, 0, len(kept)+1)
		for _, item := range kept {
			out = append(out, trim(item, d))
		}
		if len(val) > d.maxList {
			out = append(out, fmt.Sprintf("(%d more items)", len(val)-d.maxList))
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = trim(item, d)
		}
		return out
	default:
		return v
	}
}

func truncateString(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + fmt.Sprintf("...(+%d chars)", len(runes)-limit)
}
