package extension

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchema captures the expected shape of the fields this package
// derives metadata from. It is advisory only: ingestion never fails on
// a shape violation, the violations are surfaced as warnings.
const manifestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"publisher": {"type": "string"},
		"version": {"type": "string"},
		"preview": {"type": "boolean"},
		"displayName": {"type": "string"},
		"description": {"type": "string"},
		"engines": {"type": "object", "additionalProperties": {"type": "string"}},
		"categories": {"type": "array", "items": {"type": "string"}},
		"extensionKind": {"type": "array", "items": {"type": "string"}},
		"keywords": {"type": "array", "items": {"type": "string"}},
		"license": {"type": "string"},
		"homepage": {
			"anyOf": [
				{"type": "string"},
				{"type": "object", "properties": {"url": {"type": "string"}}}
			]
		},
		"repository": {
			"anyOf": [
				{"type": "string"},
				{"type": "object", "properties": {"url": {"type": "string"}}}
			]
		},
		"bugs": {
			"anyOf": [
				{"type": "string"},
				{"type": "object", "properties": {"url": {"type": "string"}}}
			]
		},
		"icon": {"type": "string"},
		"markdown": {"type": "string"},
		"qna": {"type": "string"},
		"galleryBanner": {
			"type": "object",
			"properties": {
				"color": {"type": "string"},
				"theme": {"type": "string"}
			}
		},
		"extensionDependencies": {"type": "array", "items": {"type": "string"}},
		"extensionPack": {"type": "array", "items": {"type": "string"}}
	}
}`

var compiledManifestSchema = jsonschema.MustCompileString("package.schema.json", manifestSchema)

// ManifestWarnings checks the raw manifest against the advisory schema
// and returns one human-readable warning per shape violation. A manifest
// that is not valid JSON, or not a JSON object, yields no warnings here;
// those cases are handled by manifest loading proper.
func ManifestWarnings(raw []byte) []string {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	err := compiledManifestSchema.Validate(value)
	if err == nil {
		return nil
	}
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil
	}

	var warnings []string
	for _, line := range validationErr.BasicOutput().Errors {
		if line.InstanceLocation == "" || line.Error == "" {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s: %s", line.InstanceLocation, line.Error))
	}
	return warnings
}
