package pest

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// Resolver maps a classification label to its reference profile
type Resolver interface {
	Resolve(label string) Profile
}

// Library is an immutable set of profiles keyed by classification label
type Library struct {
	profiles map[string]Profile
}

// NewLibrary parses a YAML document mapping labels to profiles
func NewLibrary(data []byte) (*Library, error) {
	raw := make(map[string]Profile)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing pest library: %w", err)
	}

	profiles := make(map[string]Profile, len(raw))
	for label, p := range raw {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("parsing pest library: empty label")
		}
		profiles[label] = p.withDefaults(label)
	}

	return &Library{profiles: profiles}, nil
}

// DefaultLibrary returns the library compiled into the binary
func DefaultLibrary() *Library {
	lib, err := NewLibrary(defaultProfiles)
	if err != nil {
		panic(err)
	}
	return lib
}

// LoadFile reads a library from a YAML file on disk
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pest library: %w", err)
	}
	return NewLibrary(data)
}

// Resolve returns the profile for label. It never fails: unknown labels get a placeholder.
func (l *Library) Resolve(label string) Profile {
	if p, ok := l.profiles[label]; ok {
		return p
	}
	return Placeholder(label)
}

// Labels returns the known classification labels in sorted order
func (l *Library) Labels() []string {
	labels := make([]string, 0, len(l.profiles))
	for label := range l.profiles {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Profiles returns every profile sorted by title
func (l *Library) Profiles() []Profile {
	profiles := make([]Profile, 0, len(l.profiles))
	for _, p := range l.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Title < profiles[j].Title
	})
	return profiles
}

// Search returns the profiles whose title contains query, ignoring case.
// An empty query returns the whole library.
func (l *Library) Search(query string) []Profile {
	all := l.Profiles()
	if query == "" {
		return all
	}

	fold := cases.Fold()
	needle := fold.String(query)
	matches := make([]Profile, 0, len(all))
	for _, p := range all {
		if strings.Contains(fold.String(p.Title), needle) {
			matches = append(matches, p)
		}
	}
	return matches
}
