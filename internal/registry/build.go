// Package registry loads and validates build profiles from YAML files and
// indexes them by name.
package registry

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/model"
)

// ParseBuild decodes one build profile and checks its internal consistency.
func ParseBuild(data []byte) (*model.Build, error) {
	var b model.Build
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrap(err, "registry: decode build")
	}
	if err := lint(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadBuild reads and parses a build profile file.
func LoadBuild(path string) (*model.Build, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read %s", path)
	}
	b, err := ParseBuild(data)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: parse %s", path)
	}
	return b, nil
}

// lint validates structure that needs no catalog: naming, per-affix weight
// uniqueness, finite weights, and modifier sanity.
func lint(b *model.Build) error {
	var errs []string

	if b.Name == "" {
		errs = append(errs, "build name is required")
	}
	if len(b.Weights) == 0 {
		errs = append(errs, "build has no weights")
	}

	seen := make(map[string]bool, len(b.Weights))
	for i, w := range b.Weights {
		if w.AffixID == "" {
			errs = append(errs, fmt.Sprintf("weight %d has empty affix id", i))
			continue
		}
		if seen[w.AffixID] {
			errs = append(errs, fmt.Sprintf("duplicate weight for affix %q", w.AffixID))
		}
		seen[w.AffixID] = true

		if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			errs = append(errs, fmt.Sprintf("weight for %q is not finite", w.AffixID))
		}
		if err := lintModifier(w.AffixID, w.Modifier); err != "" {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("registry: build %q invalid: %s", b.Name, strings.Join(errs, "; "))
	}
	return nil
}

func lintModifier(affixID string, m *model.ConditionalModifier) string {
	if m == nil {
		return ""
	}
	switch m.Kind {
	case model.ModifierLinear, "":
		return ""
	case model.ModifierThreshold:
		if m.PostScale < 0 {
			return fmt.Sprintf("threshold modifier for %q has negative post_scale", affixID)
		}
	case model.ModifierDiminishing:
		if m.Exponent <= 0 || m.Exponent > 1 {
			return fmt.Sprintf("diminishing modifier for %q needs exponent in (0,1]", affixID)
		}
	default:
		return fmt.Sprintf("unknown modifier kind %q for %q", m.Kind, affixID)
	}
	return ""
}

// Validate checks a build against the catalog: every affix id must exist and
// the class restriction, when set, must be a known class.
func Validate(b *model.Build, cat *catalog.Catalog) error {
	var errs []string
	if b.Class != "" && cat.Class(b.Class) == nil {
		errs = append(errs, fmt.Sprintf("unknown class %q", b.Class))
	}
	for _, w := range b.Weights {
		if cat.Affix(w.AffixID) == nil {
			errs = append(errs, fmt.Sprintf("unknown affix %q", w.AffixID))
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("registry: build %q failed catalog validation: %s", b.Name, strings.Join(errs, "; "))
	}
	return nil
}

// Registry is an indexed collection of build profiles.
type Registry struct {
	builds []model.Build
	byName map[string]*model.Build
}

// LoadDir parses every .yaml/.yml file in dir as a build profile.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read dir %s", dir)
	}

	r := &Registry{byName: make(map[string]*model.Build)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		b, err := LoadBuild(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := r.byName[b.Name]; dup {
			return nil, eris.Errorf("registry: duplicate build name %q", b.Name)
		}
		r.builds = append(r.builds, *b)
		r.byName[b.Name] = &r.builds[len(r.builds)-1]
	}

	// Rebuild pointers: appends above may have reallocated the backing array.
	for i := range r.builds {
		r.byName[r.builds[i].Name] = &r.builds[i]
	}
	return r, nil
}

// ByName returns the build with the given name, or nil.
func (r *Registry) ByName(name string) *model.Build { return r.byName[name] }

// Names returns all build names sorted ascending.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builds))
	for i := range r.builds {
		names = append(names, r.builds[i].Name)
	}
	sort.Strings(names)
	return names
}
