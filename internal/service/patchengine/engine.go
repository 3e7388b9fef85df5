// Package patchengine applies id-qualified structural patches to invitation
// documents. Application is atomic: either every operation applies and the
// result validates, or the input document is returned untouched with an error
// naming the offending operation.
package patchengine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"vowcraft/internal/config"
	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/invitation"
	"vowcraft/internal/domain/models/patch"
)

// Result is the outcome of a successful application.
type Result struct {
	Document *invitation.Document
	// Inverse restores the input document when applied to Document.
	Inverse patch.Patch
	// Changed is false when the operation set was empty.
	Changed bool
}

// Engine applies patches. It holds no per-document state and is safe for concurrent use.
type Engine struct {
	now   func() time.Time
	newID func(invitation.BlockType) string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides how copied and id-less added blocks are named.
func WithIDGenerator(fn func(invitation.BlockType) string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:   func() time.Time { return time.Now().UTC() },
		newID: invitation.NewBlockID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply applies ops to doc if doc.Version equals baseVersion.
// doc is never modified. On success the returned document carries Version+1,
// unless ops is empty, in which case it is an unchanged copy.
func (e *Engine) Apply(doc *invitation.Document, baseVersion int, ops patch.Patch) (*Result, error) {
	if doc == nil {
		return nil, domain.NewValidation("document is required")
	}
	if doc.Version != baseVersion {
		return nil, &domain.ConflictError{
			ResourceType:    "document",
			ResourceID:      doc.ID,
			ExpectedVersion: baseVersion,
			ActualVersion:   doc.Version,
		}
	}
	return e.apply(doc, ops)
}

// Validate reports whether ops would apply cleanly to doc, without producing a version.
func (e *Engine) Validate(doc *invitation.Document, ops patch.Patch) error {
	if doc == nil {
		return domain.NewValidation("document is required")
	}
	_, err := e.apply(doc, ops)
	return err
}

func (e *Engine) apply(doc *invitation.Document, ops patch.Patch) (*Result, error) {
	if len(ops) == 0 {
		cp, err := doc.Clone()
		if err != nil {
			return nil, err
		}
		return &Result{Document: cp}, nil
	}
	if len(ops) > config.MaxPatchOperations {
		return nil, domain.NewValidation("patch has %d operations, the limit is %d", len(ops), config.MaxPatchOperations)
	}
	if doc.Status == invitation.StatusArchived {
		return nil, domain.NewValidation("archived documents are read-only")
	}

	tree, err := toTree(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	var inverses []patch.Patch
	for i, op := range ops {
		if err := op.CheckShape(); err != nil {
			return nil, domain.NewOpValidation(i, op.Path, "%v", err)
		}
		inv, err := e.applyOp(tree, op)
		if err != nil {
			return nil, domain.NewOpValidation(i, op.Path, "%v", err)
		}
		for _, root := range touchedRoots(op) {
			if err := checkSection(tree, root); err != nil {
				return nil, domain.NewOpValidation(i, op.Path, "%v", err)
			}
		}
		inverses = append(inverses, inv)
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode patched document: %w", err)
	}
	var next invitation.Document
	if err := invitation.DecodeStrict(raw, &next); err != nil {
		return nil, domain.NewValidation("patched document is malformed: %v", err)
	}

	next.ID = doc.ID
	next.OwnerID = doc.OwnerID
	next.CreatedAt = doc.CreatedAt
	next.Version = doc.Version + 1
	next.UpdatedAt = e.now()

	if !doc.Status.CanTransitionTo(next.Status) {
		return nil, domain.NewValidation("status cannot change from %s to %s", doc.Status, next.Status)
	}
	if err := invitation.ValidateDocument(&next); err != nil {
		return nil, domain.NewValidation("patched document is invalid: %v", err)
	}

	var inverse patch.Patch
	for i := len(inverses) - 1; i >= 0; i-- {
		inverse = append(inverse, inverses[i]...)
	}
	return &Result{Document: &next, Inverse: inverse, Changed: true}, nil
}

// touchedRoots returns the document sections an operation may have changed.
func touchedRoots(op patch.Operation) []string {
	roots := []string{rootOf(op.Path)}
	if op.Op == patch.OpMove {
		if r := rootOf(op.From); r != roots[0] {
			roots = append(roots, r)
		}
	}
	return roots
}

func rootOf(path string) string {
	segs, err := splitPath(path)
	if err != nil {
		return ""
	}
	return segs[0]
}

// checkSection decodes one document section strictly and validates it.
func checkSection(tree map[string]interface{}, root string) error {
	node, present := tree[root]
	switch root {
	case "blocks":
		var blocks []invitation.Block
		if err := decodeNode(node, &blocks); err != nil {
			return err
		}
		if len(blocks) > config.MaxBlocksPerDocument {
			return fmt.Errorf("document has %d blocks, the limit is %d", len(blocks), config.MaxBlocksPerDocument)
		}
		seen := make(map[string]bool, len(blocks))
		for _, b := range blocks {
			if seen[b.ID] {
				return fmt.Errorf("duplicate block id %q", b.ID)
			}
			seen[b.ID] = true
			if err := invitation.ValidateBlock(b); err != nil {
				return err
			}
		}
	case "style":
		var style invitation.StyleSystem
		if err := decodeNode(node, &style); err != nil {
			return fmt.Errorf("style: %w", err)
		}
		if err := style.Validate(); err != nil {
			return fmt.Errorf("style: %w", err)
		}
	case "wedding":
		var wedding invitation.WeddingData
		if err := decodeNode(node, &wedding); err != nil {
			return fmt.Errorf("wedding: %w", err)
		}
		if err := wedding.Validate(); err != nil {
			return fmt.Errorf("wedding: %w", err)
		}
	case "title":
		title, ok := node.(string)
		if present && !ok {
			return fmt.Errorf("title must be a string")
		}
		if len(title) > config.MaxDocumentTitleLength {
			return fmt.Errorf("title exceeds %d characters", config.MaxDocumentTitleLength)
		}
	case "status":
		status, ok := node.(string)
		if !ok || !invitation.Status(status).IsValid() {
			return fmt.Errorf("unknown status %v", node)
		}
	}
	return nil
}

func decodeNode(node interface{}, v interface{}) error {
	if node == nil {
		return nil
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return invitation.DecodeStrict(raw, v)
}

// applyOp mutates tree and returns the operations that undo the change.
func (e *Engine) applyOp(tree map[string]interface{}, op patch.Operation) (patch.Patch, error) {
	loc, err := resolve(tree, op.Path)
	if err != nil {
		return nil, err
	}
	if loc.readOnly && op.Op != patch.OpTest {
		return nil, fmt.Errorf("%s is read-only", op.Path)
	}

	switch op.Op {
	case patch.OpTest:
		return nil, e.test(tree, loc, op)
	case patch.OpAdd:
		if loc.blockLevel {
			return e.addBlock(tree, loc, op)
		}
		return e.addField(tree, loc, op)
	case patch.OpRemove:
		if loc.blockLevel {
			return e.removeBlock(tree, loc)
		}
		return e.removeField(tree, loc)
	case patch.OpReplace:
		if loc.blockLevel {
			return e.replaceBlock(tree, loc, op)
		}
		return e.replaceField(tree, loc, op)
	case patch.OpMove, patch.OpCopy:
		from, err := resolve(tree, op.From)
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		if from.readOnly && op.Op == patch.OpMove {
			return nil, fmt.Errorf("%s is read-only", op.From)
		}
		if from.blockLevel != loc.blockLevel {
			return nil, fmt.Errorf("cannot %s between a block and a field", op.Op)
		}
		if loc.blockLevel {
			if from.blockAppend {
				return nil, fmt.Errorf("from must name a block")
			}
			if op.Op == patch.OpMove {
				return e.moveBlock(tree, from, loc)
			}
			return e.copyBlock(tree, from, loc)
		}
		if op.Op == patch.OpMove {
			return e.moveField(tree, from, loc)
		}
		return e.copyField(tree, from, loc)
	default:
		return nil, fmt.Errorf("unknown op %q", op.Op)
	}
}

func (e *Engine) test(tree map[string]interface{}, loc *location, op patch.Operation) error {
	if loc.blockAppend {
		return fmt.Errorf("cannot test the append position")
	}
	want, err := parseValue(op.Value)
	if err != nil {
		return err
	}
	got, err := getAt(tree, loc.tokens)
	if err != nil {
		return err
	}
	if !equalValues(got, want) {
		return fmt.Errorf("test failed")
	}
	return nil
}

// Field operations

func (e *Engine) addField(tree map[string]interface{}, loc *location, op patch.Operation) (patch.Patch, error) {
	value, err := parseValue(op.Value)
	if err != nil {
		return nil, err
	}
	res, err := addAt(tree, loc.tokens, value)
	if err != nil {
		return nil, err
	}
	switch {
	case res.index >= 0:
		return patch.Patch{patch.Remove(loc.withLastSegment(strconv.Itoa(res.index)))}, nil
	case res.existed:
		return replaceOp(loc.raw, res.old)
	default:
		return patch.Patch{patch.Remove(loc.raw)}, nil
	}
}

func (e *Engine) removeField(tree map[string]interface{}, loc *location) (patch.Patch, error) {
	old, err := removeAt(tree, loc.tokens)
	if err != nil {
		return nil, err
	}
	return addOp(loc.raw, old)
}

func (e *Engine) replaceField(tree map[string]interface{}, loc *location, op patch.Operation) (patch.Patch, error) {
	value, err := parseValue(op.Value)
	if err != nil {
		return nil, err
	}
	// Empty fields are omitted from the encoded document, so replacing an
	// absent key of an existing object behaves like add.
	if _, err := getAt(tree, loc.tokens); err != nil {
		parent, perr := getAt(tree, loc.tokens[:len(loc.tokens)-1])
		if _, isObject := parent.(map[string]interface{}); perr == nil && isObject {
			if _, err := addAt(tree, loc.tokens, value); err != nil {
				return nil, err
			}
			return patch.Patch{patch.Remove(loc.raw)}, nil
		}
	}
	old, err := replaceAt(tree, loc.tokens, value)
	if err != nil {
		return nil, err
	}
	return replaceOp(loc.raw, old)
}

func (e *Engine) moveField(tree map[string]interface{}, from, to *location) (patch.Patch, error) {
	if from.raw == to.raw {
		return nil, nil
	}
	if from.isPrefixOf(to) {
		return nil, fmt.Errorf("cannot move a value into itself")
	}
	value, err := removeAt(tree, from.tokens)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	// the source block may have shifted position; re-resolve the target
	target, err := resolve(tree, to.raw)
	if err != nil {
		return nil, err
	}
	res, err := addAt(tree, target.tokens, value)
	if err != nil {
		return nil, err
	}
	landed := target.raw
	if res.index >= 0 {
		landed = target.withLastSegment(strconv.Itoa(res.index))
	}
	inverse := patch.Patch{patch.Move(landed, from.raw)}
	if res.existed {
		restore, err := addOp(landed, res.old)
		if err != nil {
			return nil, err
		}
		inverse = append(inverse, restore...)
	}
	return inverse, nil
}

func (e *Engine) copyField(tree map[string]interface{}, from, to *location) (patch.Patch, error) {
	value, err := getAt(tree, from.tokens)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	res, err := addAt(tree, to.tokens, deepCopy(value))
	if err != nil {
		return nil, err
	}
	switch {
	case res.index >= 0:
		return patch.Patch{patch.Remove(to.withLastSegment(strconv.Itoa(res.index)))}, nil
	case res.existed:
		return replaceOp(to.raw, res.old)
	default:
		return patch.Patch{patch.Remove(to.raw)}, nil
	}
}

// Block operations

// insertBlock places block before the anchor location, or at the end for /blocks/-.
func insertBlock(tree map[string]interface{}, anchor *location, block map[string]interface{}) error {
	blocks, _ := tree["blocks"].([]interface{})
	idx := len(blocks)
	if !anchor.blockAppend {
		idx = blockIndex(tree, anchor.blockID)
		if idx < 0 {
			return fmt.Errorf("unknown block %q", anchor.blockID)
		}
	}
	blocks = append(blocks, nil)
	copy(blocks[idx+1:], blocks[idx:])
	blocks[idx] = block
	tree["blocks"] = blocks
	return nil
}

func (e *Engine) blockValue(op patch.Operation) (map[string]interface{}, error) {
	value, err := parseValue(op.Value)
	if err != nil {
		return nil, err
	}
	block, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("block value must be an object")
	}
	blockType, _ := block[blockKeyType].(string)
	if !invitation.IsKnownBlockType(invitation.BlockType(blockType)) {
		return nil, fmt.Errorf("unknown block type %q", blockType)
	}
	if _, ok := block[blockKeyVisible]; !ok {
		block[blockKeyVisible] = true
	}
	return block, nil
}

func (e *Engine) addBlock(tree map[string]interface{}, loc *location, op patch.Operation) (patch.Patch, error) {
	block, err := e.blockValue(op)
	if err != nil {
		return nil, err
	}
	id, _ := block[blockKeyID].(string)
	if id == "" {
		id = e.newID(invitation.BlockType(block[blockKeyType].(string)))
		block[blockKeyID] = id
	}
	if blockIndex(tree, id) >= 0 {
		return nil, fmt.Errorf("block %q already exists", id)
	}
	if err := insertBlock(tree, loc, block); err != nil {
		return nil, err
	}
	return patch.Patch{patch.Remove(patch.BlockPath(id))}, nil
}

func (e *Engine) removeBlock(tree map[string]interface{}, loc *location) (patch.Patch, error) {
	if loc.blockAppend {
		return nil, fmt.Errorf("cannot remove the append position")
	}
	next := blockIDAt(tree, loc.blockIndex+1)
	old, err := removeAt(tree, loc.tokens)
	if err != nil {
		return nil, err
	}
	return addOp(blockAnchorPath(next), old)
}

func (e *Engine) replaceBlock(tree map[string]interface{}, loc *location, op patch.Operation) (patch.Patch, error) {
	if loc.blockAppend {
		return nil, fmt.Errorf("cannot replace the append position")
	}
	block, err := e.blockValue(op)
	if err != nil {
		return nil, err
	}
	id, _ := block[blockKeyID].(string)
	if id == "" {
		block[blockKeyID] = loc.blockID
	} else if id != loc.blockID {
		return nil, fmt.Errorf("replacement block id %q does not match %q", id, loc.blockID)
	}
	current, err := getAt(tree, loc.tokens)
	if err != nil {
		return nil, err
	}
	existing, _ := current.(map[string]interface{})
	existingType, _ := existing[blockKeyType].(string)
	if newType, _ := block[blockKeyType].(string); newType != existingType {
		return nil, fmt.Errorf("block type %q is immutable", existingType)
	}
	old, err := replaceAt(tree, loc.tokens, block)
	if err != nil {
		return nil, err
	}
	return replaceOp(loc.raw, old)
}

func (e *Engine) moveBlock(tree map[string]interface{}, from, to *location) (patch.Patch, error) {
	if !to.blockAppend && to.blockID == from.blockID {
		return nil, nil
	}
	origNext := blockIDAt(tree, from.blockIndex+1)
	value, err := removeAt(tree, from.tokens)
	if err != nil {
		return nil, err
	}
	if err := insertBlock(tree, to, value.(map[string]interface{})); err != nil {
		return nil, err
	}
	return patch.Patch{patch.Move(from.raw, blockAnchorPath(origNext))}, nil
}

func (e *Engine) copyBlock(tree map[string]interface{}, from, to *location) (patch.Patch, error) {
	value, err := getAt(tree, from.tokens)
	if err != nil {
		return nil, err
	}
	block := deepCopy(value).(map[string]interface{})
	blockType, _ := block[blockKeyType].(string)
	id := e.newID(invitation.BlockType(blockType))
	block[blockKeyID] = id
	if err := insertBlock(tree, to, block); err != nil {
		return nil, err
	}
	return patch.Patch{patch.Remove(patch.BlockPath(id))}, nil
}

func blockAnchorPath(id string) string {
	if id == "-" {
		return patch.AppendBlockPath
	}
	return patch.BlockPath(id)
}

func addOp(path string, value interface{}) (patch.Patch, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	return patch.Patch{{Op: patch.OpAdd, Path: path, Value: raw}}, nil
}

func replaceOp(path string, value interface{}) (patch.Patch, error) {
	raw, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	return patch.Patch{{Op: patch.OpReplace, Path: path, Value: raw}}, nil
}
