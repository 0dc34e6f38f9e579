package extension

import (
	"regexp"
	"strings"

	"github.com/vsxhub/vsxhub/pkg/license"
)

const entryPrefix = "extension/"

// Alternate candidate names, tried in order with case-insensitive
// matching; the first hit wins.
var (
	readmeNames    = []string{"extension/README.md", "extension/README", "extension/README.txt"}
	licenseNames   = []string{"extension/LICENSE.md", "extension/LICENSE", "extension/LICENSE.txt"}
	changelogNames = []string{"extension/CHANGELOG.md", "extension/CHANGELOG", "extension/CHANGELOG.txt"}
)

// Matches manifest license declarations of the form
// "SEE MIT LICENSE IN LICENSE.txt" (the SPDX identifier is optional).
var licensePattern = regexp.MustCompile(`SEE( (\S+))? LICENSE IN (\S+)`)

// Resources extracts the package's payload resources in a fixed,
// deterministic order. Each step is independently optional: a missing
// or unreadable entry contributes nothing rather than failing the
// session. The one side effect is that license resolution may rewrite
// md.License (SEE ... LICENSE IN rewrite, license text detection).
func (p *Processor) Resources(md *Metadata) ([]*Resource, error) {
	if err := p.loadManifest(); err != nil {
		return nil, err
	}

	resources := []*Resource{}
	resources = append(resources, p.binary(md))
	if manifest := p.manifestResource(md); manifest != nil {
		resources = append(resources, manifest)
	}
	if readme := p.fromAlternateNames(md, KindReadme, readmeNames); readme != nil {
		resources = append(resources, readme)
	}
	if changelog := p.fromAlternateNames(md, KindChangelog, changelogNames); changelog != nil {
		resources = append(resources, changelog)
	}
	if lic := p.license(md); lic != nil {
		resources = append(resources, lic)
	}
	if icon := p.icon(md); icon != nil {
		resources = append(resources, icon)
	}
	if contains(md.ExtensionKind, "web") && p.opts.IncludeWebResources {
		resources = append(resources, p.webResources(md)...)
	}
	return resources, nil
}

// binary is the whole raw package buffer.
func (p *Processor) binary(md *Metadata) *Resource {
	return &Resource{Extension: md, Kind: KindDownload, Content: p.content}
}

// manifestResource re-reads the raw manifest entry bytes, not the
// parsed tree.
func (p *Processor) manifestResource(md *Metadata) *Resource {
	raw := p.file.ReadEntry(packageJSONPath)
	if raw == nil {
		return nil
	}
	return &Resource{Extension: md, Kind: KindManifest, Name: "package.json", Content: raw}
}

// fromAlternateNames scans an ordered candidate list case-insensitively
// and returns the first readable hit, named by its last path segment.
func (p *Processor) fromAlternateNames(md *Metadata, kind ResourceKind, names []string) *Resource {
	for _, name := range names {
		entry := p.file.FindEntryIgnoreCase(name)
		if entry == nil {
			continue
		}
		content := p.file.ReadEntryRef(entry)
		if content == nil {
			continue
		}
		return &Resource{Extension: md, Kind: kind, Name: lastSegment(entry.Name), Content: content}
	}
	return nil
}

// license resolves the license resource in two phases. Phase A: a
// manifest license of the form "SEE <id> LICENSE IN <file>" rewrites
// md.License to the (possibly empty) identifier and reads the referenced
// file. Phase B: when the pattern does not match or the referenced file
// is missing, the standard alternate-name search runs instead. Either
// way the classifier fills md.License only when it is still empty.
func (p *Processor) license(md *Metadata) *Resource {
	if md.License != "" {
		if m := licensePattern.FindStringSubmatch(md.License); m != nil {
			md.License = m[2]
			fileName := m[3]
			if content := p.file.ReadEntry(entryPrefix + fileName); content != nil {
				p.detectLicense(content, md)
				return &Resource{Extension: md, Kind: KindLicense, Name: lastSegment(fileName), Content: content}
			}
		}
	}

	found := p.fromAlternateNames(md, KindLicense, licenseNames)
	if found == nil {
		return nil
	}
	p.detectLicense(found.Content, md)
	return found
}

func (p *Processor) detectLicense(content []byte, md *Metadata) {
	if md.License == "" {
		md.License = license.Detect(content)
	}
}

// icon reads the manifest's icon field as an exact path below the
// package root; backslashes normalize to forward slashes, and there is
// no fallback search.
func (p *Processor) icon(md *Metadata) *Resource {
	iconPath := p.manifest.String("icon")
	if iconPath == "" {
		return nil
	}
	iconPath = strings.ReplaceAll(iconPath, "\\", "/")
	content := p.file.ReadEntry(entryPrefix + iconPath)
	if content == nil {
		return nil
	}
	return &Resource{Extension: md, Kind: KindIcon, Name: lastSegment(iconPath), Content: content}
}

// webResources emits one resource per entry under the package root,
// named by the full entry path. This is the only resource kind without
// a per-kind cardinality limit.
func (p *Processor) webResources(md *Metadata) []*Resource {
	var resources []*Resource
	for _, entry := range p.file.Entries() {
		if !strings.HasPrefix(entry.Name, entryPrefix) {
			continue
		}
		content := p.file.ReadEntryRef(entry)
		if content == nil {
			continue
		}
		resources = append(resources, &Resource{
			Extension: md,
			Kind:      KindWebResource,
			Name:      entry.Name,
			Content:   content,
		})
	}
	return resources
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func contains(list []string, value string) bool {
	for _, element := range list {
		if element == value {
			return true
		}
	}
	return false
}
