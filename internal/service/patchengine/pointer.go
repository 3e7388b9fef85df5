package patchengine

import (
	"fmt"
	"strconv"
	"strings"
)

// Document roots a patch may write to.
var writableRoots = map[string]bool{
	"title":   true,
	"status":  true,
	"style":   true,
	"wedding": true,
	"blocks":  true,
}

// Document roots a patch may only test.
var readOnlyRoots = map[string]bool{
	"id":         true,
	"owner_id":   true,
	"version":    true,
	"created_at": true,
	"updated_at": true,
}

// Block keys that are not content fields.
const (
	blockKeyID      = "id"
	blockKeyType    = "type"
	blockKeyContent = "content"
	blockKeyStyle   = "style"
	blockKeyVisible = "visible"
)

// location is a patch path resolved against the current tree state.
type location struct {
	raw      string
	segments []string // external (id-qualified) segments, unescaped
	root     string

	// block addressing
	blockLevel  bool // the path addresses a whole block or the append slot
	blockAppend bool // /blocks/-
	blockID     string
	blockIndex  int

	tokens   []string // tree tokens from the document root
	readOnly bool
}

// splitPath turns "/blocks/hero/title" (leading slash optional) into unescaped segments.
func splitPath(path string) ([]string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("path must address a field inside the document")
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("empty path segment")
		}
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(p, "~1", "/"), "~0", "~")
	}
	return parts, nil
}

// joinPath is the inverse of splitPath.
func joinPath(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
	}
	return "/" + strings.Join(escaped, "/")
}

// resolve maps an id-qualified path onto tree tokens using the current state.
func resolve(tree map[string]interface{}, path string) (*location, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	loc := &location{raw: path, segments: segments, root: segments[0], blockIndex: -1}

	switch {
	case readOnlyRoots[loc.root]:
		loc.tokens = segments
		loc.readOnly = true
		return loc, nil
	case !writableRoots[loc.root]:
		return nil, fmt.Errorf("unknown document field %q", loc.root)
	case loc.root != "blocks":
		loc.tokens = segments
		return loc, nil
	}

	if len(segments) == 1 {
		return nil, fmt.Errorf("the block list cannot be addressed directly; use /blocks/{id}")
	}
	if segments[1] == "-" {
		if len(segments) > 2 {
			return nil, fmt.Errorf("/blocks/- has no fields")
		}
		loc.blockLevel = true
		loc.blockAppend = true
		return loc, nil
	}

	idx := blockIndex(tree, segments[1])
	if idx < 0 {
		return nil, fmt.Errorf("unknown block %q", segments[1])
	}
	loc.blockID = segments[1]
	loc.blockIndex = idx
	base := []string{"blocks", strconv.Itoa(idx)}

	if len(segments) == 2 {
		loc.blockLevel = true
		loc.tokens = base
		return loc, nil
	}

	switch segments[2] {
	case blockKeyID, blockKeyType:
		loc.readOnly = true
		loc.tokens = append(base, segments[2:]...)
	case blockKeyContent, blockKeyStyle, blockKeyVisible:
		loc.tokens = append(base, segments[2:]...)
	default:
		// bare field names address the block's content payload
		loc.tokens = append(append(base, blockKeyContent), segments[2:]...)
	}
	return loc, nil
}

// blockIndex returns the position of the block with id in the tree, or -1.
func blockIndex(tree map[string]interface{}, id string) int {
	blocks, _ := tree["blocks"].([]interface{})
	for i, b := range blocks {
		if m, ok := b.(map[string]interface{}); ok && m[blockKeyID] == id {
			return i
		}
	}
	return -1
}

// blockIDAt returns the id of the block at idx, or "-" past the end.
func blockIDAt(tree map[string]interface{}, idx int) string {
	blocks, _ := tree["blocks"].([]interface{})
	if idx < 0 || idx >= len(blocks) {
		return "-"
	}
	if m, ok := blocks[idx].(map[string]interface{}); ok {
		if id, ok := m[blockKeyID].(string); ok {
			return id
		}
	}
	return "-"
}

// withLastSegment returns the external path with its final segment replaced.
func (l *location) withLastSegment(last string) string {
	segs := append([]string(nil), l.segments...)
	segs[len(segs)-1] = last
	return joinPath(segs)
}

// isPrefixOf reports whether l's tree tokens are a proper prefix of other's.
func (l *location) isPrefixOf(other *location) bool {
	if len(l.tokens) >= len(other.tokens) {
		return false
	}
	for i := range l.tokens {
		if l.tokens[i] != other.tokens[i] {
			return false
		}
	}
	return true
}
