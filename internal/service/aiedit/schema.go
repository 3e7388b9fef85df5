package aiedit

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"vowcraft/internal/config"
	"vowcraft/internal/domain"
	"vowcraft/internal/domain/models/patch"
	"vowcraft/internal/service/llm"
)

// patchSchema is the shape the model must reply with. Value semantics are
// checked later by the patch engine against the block schemas.
var patchSchema = fmt.Sprintf(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["ops"],
  "properties": {
    "ops": {
      "type": "array",
      "maxItems": %d,
      "items": {
        "type": "object",
        "required": ["op", "path"],
        "additionalProperties": false,
        "properties": {
          "op": {"type": "string", "enum": ["add", "remove", "replace", "move", "copy", "test"]},
          "path": {"type": "string", "minLength": 1, "maxLength": 512},
          "from": {"type": "string", "minLength": 1, "maxLength": 512},
          "value": {}
        }
      }
    }
  }
}`, config.MaxPatchOperations)

var compiledPatchSchema = mustCompile(patchSchema)

func mustCompile(schemaJSON string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid patch schema: %v", err))
	}
	return schema
}

type patchEnvelope struct {
	Ops patch.Patch `json:"ops"`
}

// ParsePatch extracts the patch set from a raw model reply and checks its shape.
// Every failure is a ValidationError.
func ParsePatch(raw string) (patch.Patch, error) {
	body := llm.ExtractJSON(raw)
	if body == "" {
		return nil, domain.NewValidation("model reply contains no JSON object")
	}

	result, err := compiledPatchSchema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, domain.NewValidation("model reply is not valid JSON: %v", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, domain.NewValidation("model reply does not match the patch schema: %s", strings.Join(errs, "; "))
	}

	var env patchEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, domain.NewValidation("decode model patch: %v", err)
	}
	for i, op := range env.Ops {
		if err := op.CheckShape(); err != nil {
			return nil, domain.NewOpValidation(i, op.Path, "%v", err)
		}
	}
	if env.Ops == nil {
		env.Ops = patch.Patch{}
	}
	return env.Ops, nil
}

// CheckScope rejects operations that address anything outside the given block ids.
// An empty scope allows the whole document.
func CheckScope(ops patch.Patch, scope []string) error {
	if len(scope) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(scope))
	for _, id := range scope {
		allowed[id] = true
	}
	for i, op := range ops {
		for _, p := range []string{op.Path, op.From} {
			if p == "" {
				continue
			}
			if id, ok := scopedBlock(p); !ok || !allowed[id] {
				return domain.NewOpValidation(i, p, "outside the requested scope %v", scope)
			}
		}
	}
	return nil
}

// scopedBlock returns the block id a path addresses, if it addresses one.
func scopedBlock(path string) (string, bool) {
	segments := strings.Split(strings.TrimPrefix(strings.TrimSpace(path), "/"), "/")
	if len(segments) < 2 || segments[0] != "blocks" || segments[1] == "-" || segments[1] == "" {
		return "", false
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(segments[1]), true
}
