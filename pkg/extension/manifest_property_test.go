//go:build property
// +build property

// Package extension_test contains property-based tests for manifest
// field access tolerance and list normalization.
package extension_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/vsxhub/vsxhub/pkg/extension"
)

func vsixWith(files map[string][]byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(content); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func processManifest(t *testing.T, manifest map[string]any) (*extension.Metadata, error) {
	t.Helper()
	raw, err := json.Marshal(manifest)
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := vsixWith(map[string][]byte{"extension/package.json": raw})
	if err != nil {
		t.Fatal(err)
	}
	p := extension.New(bytes.NewReader(pkg), extension.Options{})
	defer p.Close()
	return p.Metadata()
}

// TestMetadataNeverFailsOnValidJSON verifies that any JSON object,
// whatever the field types, produces metadata without an error.
// Property: Metadata(obj) succeeds for all valid JSON objects
func TestMetadataNeverFailsOnValidJSON(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	fieldNames := []string{
		"name", "publisher", "version", "displayName", "description",
		"engines", "categories", "keywords", "license", "homepage",
	}

	properties.Property("metadata derivation tolerates any field types", prop.ForAll(
		func(indices []int, values []string) bool {
			manifest := make(map[string]any)
			for i := 0; i < len(indices) && i < len(values); i++ {
				field := fieldNames[((indices[i]%len(fieldNames))+len(fieldNames))%len(fieldNames)]
				switch i % 3 {
				case 0:
					manifest[field] = values[i]
				case 1:
					manifest[field] = i
				default:
					manifest[field] = []any{values[i], i}
				}
			}
			_, err := processManifest(t, manifest)
			return err == nil
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestListFieldsAreDuplicateFree verifies list normalization.
// Property: Categories(manifest) has no duplicates and preserves order
func TestListFieldsAreDuplicateFree(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("categories come back duplicate-free in first-seen order", prop.ForAll(
		func(categories []string) bool {
			md, err := processManifest(t, map[string]any{"categories": categories})
			if err != nil {
				return false
			}
			seen := make(map[string]int)
			for _, c := range md.Categories {
				seen[c]++
				if seen[c] > 1 {
					return false
				}
			}
			// Every distinct input value must survive.
			distinct := make(map[string]struct{})
			for _, c := range categories {
				distinct[c] = struct{}{}
			}
			return len(md.Categories) == len(distinct)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
