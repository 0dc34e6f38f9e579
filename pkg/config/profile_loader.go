package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// NamespaceProfile overrides publishing policy for one publisher
// namespace.
type NamespaceProfile struct {
	Namespace           string     `yaml:"namespace" json:"namespace"`
	SizeLimitMB         int64      `yaml:"size_limit_mb,omitempty" json:"size_limit_mb,omitempty"`
	IncludeWebResources bool       `yaml:"include_web_resources,omitempty" json:"include_web_resources,omitempty"`
	RateLimit           RateConfig `yaml:"rate_limit" json:"rate_limit"`
	AllowedLicenses     []string   `yaml:"allowed_licenses,omitempty" json:"allowed_licenses,omitempty"`
}

// RateConfig holds per-namespace publish throttling.
type RateConfig struct {
	PerMinute int `yaml:"per_minute" json:"per_minute"`
	Burst     int `yaml:"burst" json:"burst"`
}

// LoadProfile loads a namespace profile YAML by namespace. It reads
// profile_<namespace>.yaml from the profiles directory.
func LoadProfile(profilesDir, namespace string) (*NamespaceProfile, error) {
	namespace = strings.ToLower(namespace)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", namespace))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", namespace, err)
	}

	var profile NamespaceProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", namespace, err)
	}

	if profile.Namespace == "" {
		profile.Namespace = namespace
	}

	return &profile, nil
}

// LoadAllProfiles loads all profile_*.yaml files from the profiles
// directory, keyed by namespace.
func LoadAllProfiles(profilesDir string) (map[string]*NamespaceProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*NamespaceProfile, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var profile NamespaceProfile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if profile.Namespace == "" {
			// Extract namespace from filename: profile_acme.yaml -> acme
			base := filepath.Base(path)
			profile.Namespace = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[profile.Namespace] = &profile
	}

	return profiles, nil
}

// AllowsLicense reports whether the profile accepts the given license
// identifier. An empty allowlist accepts everything, including an
// unclassified license.
func (p *NamespaceProfile) AllowsLicense(license string) bool {
	if len(p.AllowedLicenses) == 0 {
		return true
	}
	for _, allowed := range p.AllowedLicenses {
		if strings.EqualFold(allowed, license) {
			return true
		}
	}
	return false
}
