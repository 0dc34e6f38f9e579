package extension

// ResourceKind classifies an extracted payload resource.
type ResourceKind string

const (
	KindDownload    ResourceKind = "download"
	KindManifest    ResourceKind = "manifest"
	KindReadme      ResourceKind = "readme"
	KindChangelog   ResourceKind = "changelog"
	KindLicense     ResourceKind = "license"
	KindIcon        ResourceKind = "icon"
	KindWebResource ResourceKind = "web-resource"
)

// Metadata is the derived description of one extension version. Fields
// mirror the package manifest; absent or mistyped manifest fields leave
// the zero value. License is the one field with a write path outside
// metadata extraction: resource extraction may rewrite it (SEE ...
// LICENSE IN pattern, license file detection).
type Metadata struct {
	Name          string   `json:"name,omitempty"`
	Namespace     string   `json:"namespace,omitempty"`
	Version       string   `json:"version,omitempty"`
	Preview       bool     `json:"preview,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	Description   string   `json:"description,omitempty"`
	Engines       []string `json:"engines,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	ExtensionKind []string `json:"extension_kind,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	License       string   `json:"license,omitempty"`
	Homepage      string   `json:"homepage,omitempty"`
	Repository    string   `json:"repository,omitempty"`
	Bugs          string   `json:"bugs,omitempty"`
	Markdown      string   `json:"markdown,omitempty"`
	GalleryColor  string   `json:"gallery_color,omitempty"`
	GalleryTheme  string   `json:"gallery_theme,omitempty"`
	QnA           string   `json:"qna,omitempty"`
}

// Resource is one extracted payload blob belonging to a Metadata record.
// Resources are immutable once extracted.
type Resource struct {
	Extension *Metadata    `json:"-"`
	Kind      ResourceKind `json:"kind"`
	Name      string       `json:"name,omitempty"`
	Content   []byte       `json:"-"`
}
