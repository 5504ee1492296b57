package types

import (
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

var _ Spec = (*PackageSpec)(nil)

// PackageSpec lists the apt packages and repositories a provider asks its
// counterpart to install. YAML encoded on the wire.
type PackageSpec struct {
	// Packages to install
	Packages []PackageRequirement `json:"packages" yaml:"packages"`

	// Extra repositories needed by the packages
	Repositories []Repository `json:"repositories,omitempty" yaml:"repositories,omitempty"`
}

// PackageRequirement is a single apt package requirement.
type PackageRequirement struct {
	// Package name as known to apt
	Name string `json:"name" yaml:"name"`

	// Optional exact version to install
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Optional pin priority expression
	Pin string `json:"pin,omitempty" yaml:"pin,omitempty"`
}

// Repository is an apt source the packages may come from.
type Repository struct {
	// Source line URI, e.g. "https://ppa.launchpadcontent.net/..."
	URI string `json:"uri" yaml:"uri"`

	// Distribution suite, e.g. "noble"
	Suite string `json:"suite,omitempty" yaml:"suite,omitempty"`

	// Components, e.g. ["main", "universe"]
	Components []string `json:"components,omitempty" yaml:"components,omitempty"`

	// ASCII-armored signing key
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
}

// GetName returns the first package name, or empty for an empty spec.
func (s *PackageSpec) GetName() string {
	if len(s.Packages) == 0 {
		return ""
	}
	return s.Packages[0].Name
}

// Kind returns the spec kind.
func (s *PackageSpec) Kind() string {
	return "Packages"
}

// Validate ensures the spec is usable.
func (s *PackageSpec) Validate() error {
	if len(s.Packages) == 0 {
		return NewFieldValidationError("packages", "at least one package must be listed")
	}
	for i, pkg := range s.Packages {
		if pkg.Name == "" {
			return NewFieldValidationError("packages",
				fmt.Sprintf("packages[%d]: package name is required", i))
		}
	}
	for i, repo := range s.Repositories {
		if repo.URI == "" {
			return NewFieldValidationError("repositories",
				fmt.Sprintf("repositories[%d]: repository URI is required", i))
		}
	}
	return nil
}

// ParsePackageSpec decodes a raw YAML payload into a PackageSpec without
// validating it; validation is the requirer's job.
func ParsePackageSpec(raw string) (*PackageSpec, error) {
	var spec PackageSpec
	if err := yaml.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse package spec: %w", err)
	}
	return &spec, nil
}

// Encode serializes the spec to YAML.
func (s *PackageSpec) Encode() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode package spec: %w", err)
	}
	return string(out), nil
}
