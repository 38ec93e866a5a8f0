package driver

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed default_profile.yaml
var defaultProfile []byte

// Selector is a concrete lookup: a CSS selector, optionally narrowed to
// elements whose trimmed text matches Text, optionally replaced by the
// matched element's parent.
type Selector struct {
	CSS    string `yaml:"css"`
	Text   string `yaml:"text,omitempty"`
	Parent bool   `yaml:"parent,omitempty"`
}

// Profile maps descriptors to selectors for one version of the target's layout.
type Profile struct {
	Name      string                  `yaml:"name"`
	Version   string                  `yaml:"version"`
	Selectors map[Descriptor]Selector `yaml:"selectors"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() *Profile {
	p, err := ParseProfile(defaultProfile)
	if err != nil {
		panic(fmt.Sprintf("driver: embedded profile: %v", err))
	}
	return p
}

// LoadProfile reads a profile from path. An empty path selects the built-in profile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading selector profile: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing selector profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every descriptor is defined and every text pattern compiles.
func (p *Profile) Validate() error {
	for _, d := range Descriptors {
		sel, ok := p.Selectors[d]
		if !ok || sel.CSS == "" {
			return fmt.Errorf("selector profile %q: %s has no css selector", p.Name, d)
		}
		if sel.Text != "" {
			if _, err := regexp.Compile(sel.Text); err != nil {
				return fmt.Errorf("selector profile %q: %s text pattern: %w", p.Name, d, err)
			}
		}
	}
	return nil
}

// Lookup returns the selector for d.
func (p *Profile) Lookup(d Descriptor) (Selector, error) {
	sel, ok := p.Selectors[d]
	if !ok {
		return Selector{}, fmt.Errorf("selector profile %q: unknown descriptor %s", p.Name, d)
	}
	return sel, nil
}
