// Package extension processes uploaded extension packages: it validates
// size limits, opens the zip container, parses the package manifest and
// its optional localization overlay, derives structured metadata, and
// extracts the package's payload resources.
//
// A Processor is a single-shot, single-threaded session. Sessions own
// no shared state, so independent uploads may be processed fully in
// parallel. Close must run on every exit path to release the archive's
// backing temporary storage.
package extension

import (
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"github.com/vsxhub/vsxhub/pkg/archive"
)

const (
	packageJSONPath    = "extension/package.json"
	packageNLSJSONPath = "extension/package.nls.json"

	// DefaultSizeLimit is the hard ceiling on uploaded package size.
	DefaultSizeLimit = 512 * 1024 * 1024
)

// Options control a single processing session.
type Options struct {
	// SizeLimit overrides DefaultSizeLimit when positive.
	SizeLimit int64
	// IncludeWebResources enables extraction of the web-resource tree
	// for extensions declaring extensionKind "web".
	IncludeWebResources bool
}

// Processor ingests one uploaded extension package.
type Processor struct {
	opts     Options
	input    io.Reader
	content  []byte
	file     *archive.File
	manifest *Manifest
}

// New creates a processing session over the given upload stream.
// Nothing is read until the first accessor needs the archive.
func New(input io.Reader, opts Options) *Processor {
	if opts.SizeLimit <= 0 {
		opts.SizeLimit = DefaultSizeLimit
	}
	return &Processor{opts: opts, input: input}
}

// Close releases the archive view and its backing temporary storage.
// Safe to call when the archive was never opened.
func (p *Processor) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}

// readInput materializes the upload into memory and opens the archive
// view, at most once per session. The size ceiling is checked on the
// realized length after the read completes.
func (p *Processor) readInput() error {
	if p.file != nil {
		return nil
	}
	if p.input != nil && p.content == nil {
		content, err := io.ReadAll(p.input)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: %v", ErrTruncatedInput, err)
			}
			return err
		}
		p.content = content
	}
	if int64(len(p.content)) > p.opts.SizeLimit {
		return fmt.Errorf("%w of %d MB", ErrPayloadTooLarge, p.opts.SizeLimit/(1024*1024))
	}
	file, err := archive.Open(p.content)
	if err != nil {
		if errors.Is(err, archive.ErrMalformed) {
			return fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}
		return err
	}
	p.file = file
	return nil
}

// loadManifest parses extension/package.json and, when present, the
// extension/package.nls.json overlay. The parse is cached for the
// lifetime of the session.
func (p *Processor) loadManifest() error {
	if p.manifest != nil {
		return nil
	}
	if err := p.readInput(); err != nil {
		return err
	}

	raw := p.file.ReadEntry(packageJSONPath)
	if raw == nil {
		return fmt.Errorf("%w: %s", ErrManifestMissing, packageJSONPath)
	}
	root, err := parseManifestJSON(raw)
	if err != nil {
		return fmt.Errorf("%w in %s: %v", ErrManifestInvalid, packageJSONPath, err)
	}

	var overlay *gjson.Result
	if nlsRaw := p.file.ReadEntry(packageNLSJSONPath); nlsRaw != nil {
		parsed, err := parseManifestJSON(nlsRaw)
		if err != nil {
			return fmt.Errorf("%w in %s: %v", ErrManifestInvalid, packageNLSJSONPath, err)
		}
		overlay = &parsed
	}

	p.manifest = newManifest(root, overlay)
	return nil
}

// Manifest returns the session's cached manifest, loading it on first use.
func (p *Processor) Manifest() (*Manifest, error) {
	if err := p.loadManifest(); err != nil {
		return nil, err
	}
	return p.manifest, nil
}

// Name returns the extension name declared in the manifest.
func (p *Processor) Name() (string, error) {
	if err := p.loadManifest(); err != nil {
		return "", err
	}
	return p.manifest.String("name"), nil
}

// Namespace returns the publisher namespace declared in the manifest.
func (p *Processor) Namespace() (string, error) {
	if err := p.loadManifest(); err != nil {
		return "", err
	}
	return p.manifest.String("publisher"), nil
}

// Dependencies returns the declared inter-extension dependencies.
func (p *Processor) Dependencies() ([]string, error) {
	if err := p.loadManifest(); err != nil {
		return nil, err
	}
	if list := p.manifest.StringList("extensionDependencies"); list != nil {
		return list, nil
	}
	return []string{}, nil
}

// BundledExtensions returns the extensions packaged in this extension pack.
func (p *Processor) BundledExtensions() ([]string, error) {
	if err := p.loadManifest(); err != nil {
		return nil, err
	}
	if list := p.manifest.StringList("extensionPack"); list != nil {
		return list, nil
	}
	return []string{}, nil
}

// Metadata derives the typed extension description from the manifest.
// Every manifest field is optional here: absence or a wrong JSON type
// yields an absent value, never an error, so a malformed or evolving
// manifest schema cannot block ingestion of an otherwise valid package.
func (p *Processor) Metadata() (*Metadata, error) {
	if err := p.loadManifest(); err != nil {
		return nil, err
	}
	m := p.manifest

	md := &Metadata{
		Name:          m.String("name"),
		Namespace:     m.String("publisher"),
		Version:       m.String("version"),
		Preview:       m.Bool("preview"),
		DisplayName:   m.Localized("displayName"),
		Description:   m.Localized("description"),
		Engines:       m.EngineList("engines"),
		Categories:    m.StringList("categories"),
		ExtensionKind: m.StringList("extensionKind"),
		Tags:          m.StringList("keywords"),
		License:       m.String("license"),
		Homepage:      m.URL("homepage"),
		Repository:    m.URL("repository"),
		Bugs:          m.URL("bugs"),
		Markdown:      m.String("markdown"),
		QnA:           m.String("qna"),
	}
	if banner := m.Field("galleryBanner"); banner.IsObject() {
		if color := banner.Get("color"); color.Type == gjson.String {
			md.GalleryColor = color.Str
		}
		if theme := banner.Get("theme"); theme.Type == gjson.String {
			md.GalleryTheme = theme.Str
		}
	}
	return md, nil
}
