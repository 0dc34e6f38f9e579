package extension

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Manifest is the parsed package.json of an extension, together with
// the optional package.nls.json localization overlay. All accessors are
// schema-tolerant: an absent field and a field of the wrong JSON type
// both resolve to the zero result, never an error.
type Manifest struct {
	root    gjson.Result
	overlay *gjson.Result
}

// parseManifestJSON decodes entry bytes as JSON, tolerating a UTF-8
// byte order mark. The returned error is the parser's message.
func parseManifestJSON(raw []byte) (gjson.Result, error) {
	clean, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
	if err != nil {
		clean = raw
	}
	// gjson is lenient by design; run the strict parser first so that
	// malformed manifests are rejected with a real parser message.
	var probe any
	if err := json.Unmarshal(clean, &probe); err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(clean), nil
}

func newManifest(root gjson.Result, overlay *gjson.Result) *Manifest {
	return &Manifest{root: root, overlay: overlay}
}

// Field returns the raw JSON value at the given path.
func (m *Manifest) Field(path string) gjson.Result {
	return m.root.Get(path)
}

// String returns the field's string value, or "" when the field is
// absent or not a string.
func (m *Manifest) String(field string) string {
	value := m.root.Get(field)
	if value.Type != gjson.String {
		return ""
	}
	return value.Str
}

// Bool returns the field's boolean value, or false when the field is
// absent or not a boolean.
func (m *Manifest) Bool(field string) bool {
	value := m.root.Get(field)
	return value.IsBool() && value.Bool()
}

// StringList collects the string-typed elements of an array field into
// an order-preserving, duplicate-free list. Any non-array value,
// including an absent field, yields nil.
func (m *Manifest) StringList(field string) []string {
	value := m.root.Get(field)
	if !value.IsArray() {
		return nil
	}
	seen := make(map[string]struct{})
	var list []string
	value.ForEach(func(_, element gjson.Result) bool {
		if element.Type != gjson.String {
			return true
		}
		if _, ok := seen[element.Str]; ok {
			return true
		}
		seen[element.Str] = struct{}{}
		list = append(list, element.Str)
		return true
	})
	if list == nil {
		list = []string{}
	}
	return list
}

// EngineList formats an object field as one "key@value" string per
// property, in the object's field order. Non-object values yield nil.
func (m *Manifest) EngineList(field string) []string {
	value := m.root.Get(field)
	if !value.IsObject() {
		return nil
	}
	engines := []string{}
	value.ForEach(func(key, version gjson.Result) bool {
		engines = append(engines, key.Str+"@"+version.Str)
		return true
	})
	return engines
}

// URL accepts either a plain string or an object with a url string
// property. The literal empty string and the literal "." are
// placeholder values and normalize to absent.
func (m *Manifest) URL(field string) string {
	value := m.root.Get(field)
	var result string
	switch {
	case value.Type == gjson.String:
		result = value.Str
	case value.IsObject():
		if url := value.Get("url"); url.Type == gjson.String {
			result = url.Str
		}
	}
	if result == "" || result == "." {
		return ""
	}
	return result
}

// Localized returns the field's string value with localization-key
// substitution applied: a value of the form %key% (length > 2) is
// replaced by the overlay's value for key when an overlay is loaded.
// A key absent from the overlay resolves to "".
func (m *Manifest) Localized(field string) string {
	value := m.String(field)
	if m.overlay == nil || len(value) <= 2 {
		return value
	}
	if !strings.HasPrefix(value, "%") || !strings.HasSuffix(value, "%") {
		return value
	}
	key := value[1 : len(value)-1]
	// nls keys are flat literals that routinely contain dots, which
	// Get would interpret as path syntax. Look the key up verbatim.
	localized, ok := m.overlay.Map()[key]
	if !ok || localized.Type != gjson.String {
		return ""
	}
	return localized.Str
}
