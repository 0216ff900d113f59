// Package catalog holds the read-only reference data (affixes, aspects, item
// types, classes) behind indexed lookups. A Catalog is built once at process
// start and is safe for concurrent readers.
package catalog

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/normalize"
)

// Catalog is the immutable reference data set.
type Catalog struct {
	affixes   []model.CatalogAffix
	aspects   []model.CatalogAspect
	itemTypes []model.ItemType
	classes   []model.Class

	affixByID  map[string]*model.CatalogAffix
	aspectByID map[string]*model.CatalogAspect
	typeByID   map[string]*model.ItemType
	classByID  map[string]*model.Class

	// foldedNames[i] is the matching key of affixes[i]; trigrams maps each
	// trigram of a folded affix name to the affix indices containing it.
	foldedNames       []string
	trigrams          map[string][]int
	foldedAspectNames []string
	foldedTypeNames   []string
}

// New builds an indexed catalog. Internal ids must be unique per collection.
func New(affixes []model.CatalogAffix, aspects []model.CatalogAspect, itemTypes []model.ItemType, classes []model.Class) (*Catalog, error) {
	c := &Catalog{
		affixes:    affixes,
		aspects:    aspects,
		itemTypes:  itemTypes,
		classes:    classes,
		affixByID:  make(map[string]*model.CatalogAffix, len(affixes)),
		aspectByID: make(map[string]*model.CatalogAspect, len(aspects)),
		typeByID:   make(map[string]*model.ItemType, len(itemTypes)),
		classByID:  make(map[string]*model.Class, len(classes)),
		trigrams:   make(map[string][]int),
	}

	c.foldedNames = make([]string, len(affixes))
	for i := range c.affixes {
		a := &c.affixes[i]
		if a.InternalID == "" {
			return nil, eris.Errorf("catalog: affix %q has empty internal id", a.Name)
		}
		if _, dup := c.affixByID[a.InternalID]; dup {
			return nil, eris.Errorf("catalog: duplicate affix id %q", a.InternalID)
		}
		c.affixByID[a.InternalID] = a
		c.foldedNames[i] = normalize.Fold(a.Name)
		for _, tg := range trigramSet(c.foldedNames[i]) {
			c.trigrams[tg] = append(c.trigrams[tg], i)
		}
	}

	c.foldedAspectNames = make([]string, len(aspects))
	for i := range c.aspects {
		a := &c.aspects[i]
		if _, dup := c.aspectByID[a.InternalID]; dup {
			return nil, eris.Errorf("catalog: duplicate aspect id %q", a.InternalID)
		}
		c.aspectByID[a.InternalID] = a
		c.foldedAspectNames[i] = normalize.Fold(a.Name)
	}

	c.foldedTypeNames = make([]string, len(itemTypes))
	for i := range c.itemTypes {
		t := &c.itemTypes[i]
		if _, dup := c.typeByID[t.InternalID]; dup {
			return nil, eris.Errorf("catalog: duplicate item type id %q", t.InternalID)
		}
		c.typeByID[t.InternalID] = t
		c.foldedTypeNames[i] = normalize.Fold(t.Name)
	}

	for i := range c.classes {
		cl := &c.classes[i]
		if _, dup := c.classByID[cl.InternalID]; dup {
			return nil, eris.Errorf("catalog: duplicate class id %q", cl.InternalID)
		}
		c.classByID[cl.InternalID] = cl
	}

	return c, nil
}

// Affix returns the affix with the given internal id, or nil.
func (c *Catalog) Affix(id string) *model.CatalogAffix { return c.affixByID[id] }

// Aspect returns the aspect with the given internal id, or nil.
func (c *Catalog) Aspect(id string) *model.CatalogAspect { return c.aspectByID[id] }

// ItemType returns the item type with the given internal id, or nil.
func (c *Catalog) ItemType(id string) *model.ItemType { return c.typeByID[id] }

// Class returns the class with the given internal id, or nil.
func (c *Catalog) Class(id string) *model.Class { return c.classByID[id] }

// Affixes returns the full affix collection. Callers must not modify it.
func (c *Catalog) Affixes() []model.CatalogAffix { return c.affixes }

// Aspects returns the full aspect collection. Callers must not modify it.
func (c *Catalog) Aspects() []model.CatalogAspect { return c.aspects }

// ItemTypes returns the full item type collection.
func (c *Catalog) ItemTypes() []model.ItemType { return c.itemTypes }

// Classes returns the full class collection.
func (c *Catalog) Classes() []model.Class { return c.classes }

// Candidate pairs an affix with its folded display name for scoring.
type Candidate struct {
	Affix      *model.CatalogAffix
	FoldedName string
}

// Candidates returns the affixes compatible with the item context whose
// folded names share at least minTrigrams trigrams with the query. Results
// are ordered by catalog position, so candidate iteration is deterministic.
func (c *Catalog) Candidates(foldedQuery, itemType string, class string, minTrigrams int) []Candidate {
	if minTrigrams < 1 {
		minTrigrams = 1
	}
	counts := make(map[int]int)
	for _, tg := range trigramSet(foldedQuery) {
		for _, idx := range c.trigrams[tg] {
			counts[idx]++
		}
	}

	idxs := make([]int, 0, len(counts))
	for idx, n := range counts {
		if n >= minTrigrams {
			idxs = append(idxs, idx)
		}
	}
	sort.Ints(idxs)

	var out []Candidate
	for _, idx := range idxs {
		a := &c.affixes[idx]
		if !a.AllowsItemType(itemType) {
			continue
		}
		if class != "" && !a.AllowsClass(class) {
			continue
		}
		out = append(out, Candidate{Affix: a, FoldedName: c.foldedNames[idx]})
	}
	return out
}

// MatchItemType finds the item type whose name appears in the folded header
// text, preferring the longest name so "two-handed sword" beats "sword".
func (c *Catalog) MatchItemType(text string) *model.ItemType {
	folded := normalize.Fold(text)
	best := -1
	bestLen := 0
	for i, name := range c.foldedTypeNames {
		if name == "" {
			continue
		}
		if strings.Contains(folded, name) && len(name) > bestLen {
			best = i
			bestLen = len(name)
		}
	}
	if best < 0 {
		return nil
	}
	return &c.itemTypes[best]
}

// MatchAspect finds the aspect whose name appears in the folded power text,
// preferring the longest match. Returns nil when no name is present.
func (c *Catalog) MatchAspect(text string) *model.CatalogAspect {
	folded := normalize.Fold(text)
	best := -1
	bestLen := 0
	for i, name := range c.foldedAspectNames {
		if name == "" {
			continue
		}
		if strings.Contains(folded, name) && len(name) > bestLen {
			best = i
			bestLen = len(name)
		}
	}
	if best < 0 {
		return nil
	}
	return &c.aspects[best]
}

// trigramSet returns the distinct letter trigrams of s, space-padded the way
// the pg_trgm extension pads words. Queries shorter than three runes fall
// back to the whole padded string.
func trigramSet(s string) []string {
	s = "  " + s + " "
	runes := []rune(s)
	if len(runes) < 3 {
		return []string{string(runes)}
	}
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i+3 <= len(runes); i++ {
		tg := string(runes[i : i+3])
		if _, ok := seen[tg]; ok {
			continue
		}
		seen[tg] = struct{}{}
		out = append(out, tg)
	}
	return out
}
