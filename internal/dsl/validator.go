package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pageforge/pageforge/internal/errors"
)

// nodeSchemaJSON is the self-referential Node schema. Unknown top-level
// keys are rejected; children validate recursively.
const nodeSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"definitions": {
		"node": {
			"type": "object",
			"required": ["type", "params"],
			"additionalProperties": false,
			"properties": {
				"type": {"type": "string", "minLength": 1},
				"params": {"type": "object"},
				"children": {
					"type": "array",
					"items": {"$ref": "#/definitions/node"}
				}
			}
		}
	},
	"$ref": "#/definitions/node"
}`

// pageSchemaJSON references the Node schema for root. Meta accepts
// arbitrary extra keys but types the well-known ones.
const pageSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"definitions": {
		"node": {
			"type": "object",
			"required": ["type", "params"],
			"additionalProperties": false,
			"properties": {
				"type": {"type": "string", "minLength": 1},
				"params": {"type": "object"},
				"children": {
					"type": "array",
					"items": {"$ref": "#/definitions/node"}
				}
			}
		}
	},
	"type": "object",
	"required": ["version", "meta", "root"],
	"additionalProperties": false,
	"properties": {
		"version": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+){0,2}$"},
		"meta": {
			"type": "object",
			"properties": {
				"slug": {"type": "string"},
				"title": {"type": "string"},
				"locale": {"type": "string"}
			}
		},
		"root": {"$ref": "#/definitions/node"}
	}
}`

var (
	nodeSchema = mustCompileSchema(nodeSchemaJSON)
	pageSchema = mustCompileSchema(pageSchemaJSON)
)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("dsl: compiling schema: %v", err))
	}
	return schema
}

// ValidateNode validates a node document against the Node schema. The
// document may be a *Node, a decoded map, or raw JSON bytes. On failure
// it returns a validation error carrying the structured violations.
func ValidateNode(doc interface{}) error {
	return validate(nodeSchema, doc, errors.ErrCodeInvalidNode, "node does not conform to the composition schema")
}

// ValidatePage validates a page document against the Page schema and
// re-validates its root through ValidateNode so node-level violations
// surface with node context rather than page-level structural paths.
func ValidatePage(doc interface{}) error {
	pageErr := validate(pageSchema, doc, errors.ErrCodeInvalidPage, "page does not conform to the composition schema")

	if root, ok := rootOf(doc); ok {
		if err := ValidateNode(root); err != nil {
			return err
		}
	}

	return pageErr
}

func rootOf(doc interface{}) (interface{}, bool) {
	switch d := doc.(type) {
	case *Page:
		if d != nil && d.Root != nil {
			return d.Root, true
		}
	case Page:
		if d.Root != nil {
			return d.Root, true
		}
	case map[string]interface{}:
		if root, ok := d["root"]; ok {
			return root, true
		}
	case []byte:
		return rawRoot(d)
	case json.RawMessage:
		return rawRoot(d)
	case string:
		return rawRoot([]byte(d))
	}
	return nil, false
}

func rawRoot(raw []byte) (interface{}, bool) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, false
	}
	root, ok := decoded["root"]
	return root, ok
}

func validate(schema *gojsonschema.Schema, doc interface{}, code, message string) error {
	loader, err := loaderFor(doc)
	if err != nil {
		return errors.NewValidationError(code, message, []errors.Violation{
			{Path: "(document)", Message: err.Error()},
		})
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return errors.NewValidationError(code, message, []errors.Violation{
			{Path: "(document)", Message: err.Error()},
		})
	}

	if !result.Valid() {
		violations := make([]errors.Violation, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, errors.Violation{
				Path:    desc.Field(),
				Message: desc.Description(),
			})
		}
		return errors.NewValidationError(code, message, violations)
	}

	return nil
}

func loaderFor(doc interface{}) (gojsonschema.JSONLoader, error) {
	switch d := doc.(type) {
	case []byte:
		return gojsonschema.NewBytesLoader(d), nil
	case json.RawMessage:
		return gojsonschema.NewBytesLoader(d), nil
	case string:
		return gojsonschema.NewStringLoader(d), nil
	default:
		// Structs and maps round-trip through encoding/json so schema
		// validation sees exactly the wire shape.
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshaling document for validation: %w", err)
		}
		return gojsonschema.NewBytesLoader(raw), nil
	}
}

// DecodeNode validates raw JSON against the Node schema and decodes it.
func DecodeNode(raw []byte) (*Node, error) {
	if err := ValidateNode(raw); err != nil {
		return nil, err
	}

	var node Node
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidNode, "node document is not valid JSON", []errors.Violation{
			{Path: "(document)", Message: err.Error()},
		})
	}
	return &node, nil
}

// DecodePage validates raw JSON against the Page schema and decodes it.
func DecodePage(raw []byte) (*Page, error) {
	if err := ValidatePage(raw); err != nil {
		return nil, err
	}

	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidPage, "page document is not valid JSON", []errors.Violation{
			{Path: "(document)", Message: err.Error()},
		})
	}
	return &page, nil
}
