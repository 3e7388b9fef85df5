package patchengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// toTree converts v into a generic JSON tree, keeping numbers as json.Number.
func toTree(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := decodeValue(raw, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func decodeValue(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected trailing data")
	}
	return nil
}

// parseValue decodes an operation value into a tree node.
func parseValue(raw json.RawMessage) (interface{}, error) {
	var v interface{}
	if err := decodeValue(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}
	return v, nil
}

// deepCopy clones maps and slices so a node can be inserted twice.
func deepCopy(v interface{}) interface{} {
	switch n := v.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(n))
		for k, child := range n {
			cp[k] = deepCopy(child)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(n))
		for i, child := range n {
			cp[i] = deepCopy(child)
		}
		return cp
	default:
		return v
	}
}

// normalize converts numbers to float64 so 2 and 2.0 compare equal.
func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, child := range n {
			out[k] = normalize(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, child := range n {
			out[i] = normalize(child)
		}
		return out
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	default:
		return v
	}
}

func equalValues(a, b interface{}) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// encodeValue turns a tree node back into an operation value.
func encodeValue(v interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// arrayIndex parses an array token. "-" is accepted only when appending.
func arrayIndex(token string, length int, forInsert bool) (int, error) {
	if token == "-" {
		if forInsert {
			return length, nil
		}
		return 0, fmt.Errorf("index \"-\" is only valid when adding")
	}
	i, err := strconv.Atoi(token)
	if err != nil || i < 0 || (token != "0" && token[0] == '0') {
		return 0, fmt.Errorf("invalid array index %q", token)
	}
	limit := length - 1
	if forInsert {
		limit = length
	}
	if i > limit {
		return 0, fmt.Errorf("array index %d out of range", i)
	}
	return i, nil
}

// getAt reads the node at tokens.
func getAt(node interface{}, tokens []string) (interface{}, error) {
	cur := node
	for _, tok := range tokens {
		switch n := cur.(type) {
		case map[string]interface{}:
			child, ok := n[tok]
			if !ok {
				return nil, fmt.Errorf("%q does not exist", tok)
			}
			cur = child
		case []interface{}:
			i, err := arrayIndex(tok, len(n), false)
			if err != nil {
				return nil, err
			}
			cur = n[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q", tok)
		}
	}
	return cur, nil
}

// editFunc mutates the container holding key and returns the updated container.
type editFunc func(container interface{}, key string) (interface{}, error)

// edit walks to the parent of the last token and applies fn there,
// writing updated slices back into their parents.
func edit(node interface{}, tokens []string, fn editFunc) (interface{}, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	if len(tokens) == 1 {
		return fn(node, tokens[0])
	}
	switch n := node.(type) {
	case map[string]interface{}:
		child, ok := n[tokens[0]]
		if !ok {
			return nil, fmt.Errorf("%q does not exist", tokens[0])
		}
		updated, err := edit(child, tokens[1:], fn)
		if err != nil {
			return nil, err
		}
		n[tokens[0]] = updated
		return n, nil
	case []interface{}:
		i, err := arrayIndex(tokens[0], len(n), false)
		if err != nil {
			return nil, err
		}
		updated, err := edit(n[i], tokens[1:], fn)
		if err != nil {
			return nil, err
		}
		n[i] = updated
		return n, nil
	default:
		return nil, fmt.Errorf("cannot descend into %q", tokens[0])
	}
}

// addResult describes what an add displaced.
type addResult struct {
	existed bool        // a map key was overwritten
	old     interface{} // the overwritten value
	index   int         // concrete insert position for arrays, -1 for maps
}

func addAt(tree map[string]interface{}, tokens []string, value interface{}) (addResult, error) {
	res := addResult{index: -1}
	_, err := edit(tree, tokens, func(c interface{}, key string) (interface{}, error) {
		switch n := c.(type) {
		case map[string]interface{}:
			res.old, res.existed = n[key]
			n[key] = value
			return n, nil
		case []interface{}:
			i, err := arrayIndex(key, len(n), true)
			if err != nil {
				return nil, err
			}
			res.index = i
			n = append(n, nil)
			copy(n[i+1:], n[i:])
			n[i] = value
			return n, nil
		default:
			return nil, fmt.Errorf("cannot add %q to a scalar", key)
		}
	})
	return res, err
}

func removeAt(tree map[string]interface{}, tokens []string) (interface{}, error) {
	var old interface{}
	_, err := edit(tree, tokens, func(c interface{}, key string) (interface{}, error) {
		switch n := c.(type) {
		case map[string]interface{}:
			v, ok := n[key]
			if !ok {
				return nil, fmt.Errorf("%q does not exist", key)
			}
			old = v
			delete(n, key)
			return n, nil
		case []interface{}:
			i, err := arrayIndex(key, len(n), false)
			if err != nil {
				return nil, err
			}
			old = n[i]
			return append(n[:i], n[i+1:]...), nil
		default:
			return nil, fmt.Errorf("cannot remove %q from a scalar", key)
		}
	})
	return old, err
}

func replaceAt(tree map[string]interface{}, tokens []string, value interface{}) (interface{}, error) {
	var old interface{}
	_, err := edit(tree, tokens, func(c interface{}, key string) (interface{}, error) {
		switch n := c.(type) {
		case map[string]interface{}:
			v, ok := n[key]
			if !ok {
				return nil, fmt.Errorf("%q does not exist", key)
			}
			old = v
			n[key] = value
			return n, nil
		case []interface{}:
			i, err := arrayIndex(key, len(n), false)
			if err != nil {
				return nil, err
			}
			old = n[i]
			n[i] = value
			return n, nil
		default:
			return nil, fmt.Errorf("cannot replace %q in a scalar", key)
		}
	})
	return old, err
}
