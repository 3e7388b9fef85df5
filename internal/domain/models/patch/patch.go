package patch

import (
	"encoding/json"
	"fmt"
)

// OpType is a structural edit operation kind.
type OpType string

const (
	OpAdd     OpType = "add"
	OpRemove  OpType = "remove"
	OpReplace OpType = "replace"
	OpMove    OpType = "move"
	OpCopy    OpType = "copy"
	OpTest    OpType = "test"
)

// Operation is one edit in a patch set.
//
// Paths are id-qualified rather than index-based:
//   - /blocks/{blockId}            a whole block
//   - /blocks/-                    append position (add, move, copy targets)
//   - /blocks/{blockId}/{field}    a content field of that block
//   - /blocks/{blockId}/visible    the visibility flag
//   - /blocks/{blockId}/style/...  the block's style override
//   - /title, /status, /style/..., /wedding/...
//
// As a target of add, move or copy, /blocks/{blockId} means "insert before that block".
type Operation struct {
	Op    OpType          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Patch is an ordered operation set applied atomically against one base version.
type Patch []Operation

// HasValue reports whether the operation carries a value (JSON null counts).
func (o Operation) HasValue() bool {
	return len(o.Value) > 0
}

// CheckShape verifies the fields required by the operation kind are present.
func (o Operation) CheckShape() error {
	if o.Path == "" {
		return fmt.Errorf("path is required")
	}
	switch o.Op {
	case OpAdd, OpReplace, OpTest:
		if !o.HasValue() {
			return fmt.Errorf("%s requires a value", o.Op)
		}
	case OpMove, OpCopy:
		if o.From == "" {
			return fmt.Errorf("%s requires from", o.Op)
		}
	case OpRemove:
	default:
		return fmt.Errorf("unknown op %q", o.Op)
	}
	return nil
}

// Add builds an add operation, marshaling value.
func Add(path string, value interface{}) (Operation, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Operation{}, fmt.Errorf("marshal add value: %w", err)
	}
	return Operation{Op: OpAdd, Path: path, Value: raw}, nil
}

// Replace builds a replace operation, marshaling value.
func Replace(path string, value interface{}) (Operation, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Operation{}, fmt.Errorf("marshal replace value: %w", err)
	}
	return Operation{Op: OpReplace, Path: path, Value: raw}, nil
}

// Test builds a test operation, marshaling value.
func Test(path string, value interface{}) (Operation, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Operation{}, fmt.Errorf("marshal test value: %w", err)
	}
	return Operation{Op: OpTest, Path: path, Value: raw}, nil
}

// Remove builds a remove operation.
func Remove(path string) Operation {
	return Operation{Op: OpRemove, Path: path}
}

// Move builds a move operation.
func Move(from, path string) Operation {
	return Operation{Op: OpMove, From: from, Path: path}
}

// BlockPath returns the id-qualified path of a block, optionally of a field inside it.
func BlockPath(blockID string, field ...string) string {
	p := "/blocks/" + blockID
	for _, f := range field {
		p += "/" + f
	}
	return p
}

// AppendBlockPath is the append position of the block list.
const AppendBlockPath = "/blocks/-"
