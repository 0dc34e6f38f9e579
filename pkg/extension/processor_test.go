package extension

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makePackage builds an in-memory vsix archive from entry name to content.
func makePackage(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestProcessor(t *testing.T, files map[string]string, opts Options) *Processor {
	t.Helper()
	p := New(bytes.NewReader(makePackage(t, files)), opts)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

type truncatedReader struct{}

func (truncatedReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestPayloadTooLarge(t *testing.T) {
	content := makePackage(t, map[string]string{"extension/package.json": "{}"})
	p := New(bytes.NewReader(content), Options{SizeLimit: 16})
	defer func() { _ = p.Close() }()

	_, err := p.Metadata()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestMalformedArchive(t *testing.T) {
	p := New(strings.NewReader("definitely not a zip"), Options{})
	defer func() { _ = p.Close() }()

	_, err := p.Metadata()
	assert.ErrorIs(t, err, ErrMalformedArchive)
}

func TestTruncatedInput(t *testing.T) {
	p := New(truncatedReader{}, Options{})
	defer func() { _ = p.Close() }()

	_, err := p.Metadata()
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestManifestMissing(t *testing.T) {
	p := newTestProcessor(t, map[string]string{"extension/README.md": "hi"}, Options{})

	_, err := p.Metadata()
	require.ErrorIs(t, err, ErrManifestMissing)
	assert.Contains(t, err.Error(), "extension/package.json")
}

func TestManifestInvalid(t *testing.T) {
	t.Run("package.json", func(t *testing.T) {
		p := newTestProcessor(t, map[string]string{"extension/package.json": "{not json"}, Options{})
		_, err := p.Metadata()
		require.ErrorIs(t, err, ErrManifestInvalid)
		assert.Contains(t, err.Error(), "extension/package.json")
	})

	t.Run("package.nls.json", func(t *testing.T) {
		p := newTestProcessor(t, map[string]string{
			"extension/package.json":     "{}",
			"extension/package.nls.json": "][",
		}, Options{})
		_, err := p.Metadata()
		require.ErrorIs(t, err, ErrManifestInvalid)
		assert.Contains(t, err.Error(), "extension/package.nls.json")
	})
}

func TestMetadata(t *testing.T) {
	manifest := `{
		"name": "demo",
		"publisher": "acme",
		"version": "1.2.3",
		"preview": true,
		"displayName": "Demo Extension",
		"description": "Does demo things",
		"engines": {"vscode": "^1.50.0", "node": ">=14"},
		"categories": ["Linters", "Other", "Linters"],
		"extensionKind": ["workspace", "web"],
		"keywords": ["lint", "demo", "lint"],
		"license": "MIT",
		"homepage": "https://example.org",
		"repository": {"url": "https://github.com/acme/demo"},
		"bugs": ".",
		"markdown": "github",
		"qna": "marketplace",
		"galleryBanner": {"color": "#123456", "theme": "dark"}
	}`
	p := newTestProcessor(t, map[string]string{"extension/package.json": manifest}, Options{})

	md, err := p.Metadata()
	require.NoError(t, err)

	assert.Equal(t, "demo", md.Name)
	assert.Equal(t, "acme", md.Namespace)
	assert.Equal(t, "1.2.3", md.Version)
	assert.True(t, md.Preview)
	assert.Equal(t, "Demo Extension", md.DisplayName)
	assert.Equal(t, "Does demo things", md.Description)
	assert.Equal(t, []string{"vscode@^1.50.0", "node@>=14"}, md.Engines)
	assert.Equal(t, []string{"Linters", "Other"}, md.Categories)
	assert.Equal(t, []string{"workspace", "web"}, md.ExtensionKind)
	assert.Equal(t, []string{"lint", "demo"}, md.Tags)
	assert.Equal(t, "MIT", md.License)
	assert.Equal(t, "https://example.org", md.Homepage)
	assert.Equal(t, "https://github.com/acme/demo", md.Repository)
	assert.Empty(t, md.Bugs, "placeholder '.' collapses to absent")
	assert.Equal(t, "github", md.Markdown)
	assert.Equal(t, "marketplace", md.QnA)
	assert.Equal(t, "#123456", md.GalleryColor)
	assert.Equal(t, "dark", md.GalleryTheme)
}

func TestMetadataToleratesWrongTypes(t *testing.T) {
	manifest := `{
		"name": 42,
		"version": ["1.0.0"],
		"engines": "vscode",
		"categories": {"a": 1},
		"homepage": "",
		"galleryBanner": "blue",
		"preview": "yes"
	}`
	p := newTestProcessor(t, map[string]string{"extension/package.json": manifest}, Options{})

	md, err := p.Metadata()
	require.NoError(t, err)

	assert.Empty(t, md.Name)
	assert.Empty(t, md.Version)
	assert.Nil(t, md.Engines)
	assert.Nil(t, md.Categories)
	assert.Empty(t, md.Homepage)
	assert.Empty(t, md.GalleryColor)
	assert.False(t, md.Preview)
}

func TestLocalization(t *testing.T) {
	manifest := `{"displayName": "%greet%", "description": "%missing%"}`

	t.Run("with overlay", func(t *testing.T) {
		p := newTestProcessor(t, map[string]string{
			"extension/package.json":     manifest,
			"extension/package.nls.json": `{"greet": "Hello"}`,
		}, Options{})
		md, err := p.Metadata()
		require.NoError(t, err)
		assert.Equal(t, "Hello", md.DisplayName)
		assert.Empty(t, md.Description, "key absent from overlay yields no value")
	})

	t.Run("without overlay", func(t *testing.T) {
		p := newTestProcessor(t, map[string]string{"extension/package.json": manifest}, Options{})
		md, err := p.Metadata()
		require.NoError(t, err)
		assert.Equal(t, "%greet%", md.DisplayName)
	})

	t.Run("dotted keys are flat lookups", func(t *testing.T) {
		p := newTestProcessor(t, map[string]string{
			"extension/package.json": `{
				"displayName": "%ext.displayName%",
				"description": "%ext.meta.description%"
			}`,
			"extension/package.nls.json": `{
				"ext.displayName":      "Hello",
				"ext.meta.description": "World",
				"ext":                  {"displayName": "wrong"}
			}`,
		}, Options{})
		md, err := p.Metadata()
		require.NoError(t, err)
		assert.Equal(t, "Hello", md.DisplayName)
		assert.Equal(t, "World", md.Description)
	})
}

func TestManifestWithBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"name": "bom"}`)...)
	p := newTestProcessor(t, map[string]string{"extension/package.json": string(content)}, Options{})

	md, err := p.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "bom", md.Name)
}

func TestMetadataIdempotent(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"extension/package.json": `{"name": "demo", "version": "1.0.0"}`,
	}, Options{})

	first, err := p.Metadata()
	require.NoError(t, err)
	second, err := p.Metadata()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDependenciesAndBundledExtensions(t *testing.T) {
	t.Run("declared", func(t *testing.T) {
		p := newTestProcessor(t, map[string]string{
			"extension/package.json": `{
				"extensionDependencies": ["acme.core", "acme.ui", "acme.core"],
				"extensionPack": ["acme.bundle"]
			}`,
		}, Options{})

		deps, err := p.Dependencies()
		require.NoError(t, err)
		assert.Equal(t, []string{"acme.core", "acme.ui"}, deps)

		bundled, err := p.BundledExtensions()
		require.NoError(t, err)
		assert.Equal(t, []string{"acme.bundle"}, bundled)
	})

	t.Run("absent yields empty lists", func(t *testing.T) {
		p := newTestProcessor(t, map[string]string{"extension/package.json": "{}"}, Options{})

		deps, err := p.Dependencies()
		require.NoError(t, err)
		assert.Empty(t, deps)

		bundled, err := p.BundledExtensions()
		require.NoError(t, err)
		assert.Empty(t, bundled)
	})
}
