// Package model defines the value types shared across the extraction and
// scoring pipeline. All types here are plain values: once constructed they
// are never mutated, so they are safe to share across concurrent pipelines.
package model

// AffixCategory groups affixes by the kind of stat they modify.
type AffixCategory string

const (
	CategoryOffensive AffixCategory = "offensive"
	CategoryDefensive AffixCategory = "defensive"
	CategoryUtility   AffixCategory = "utility"
	CategoryResource  AffixCategory = "resource"
	CategoryMobility  AffixCategory = "mobility"
)

// Class is a playable character class reference entry.
type Class struct {
	InternalID string `json:"internal_id" yaml:"internal_id"`
	Name       string `json:"name" yaml:"name"`
}

// ItemType is an equipment slot classification (helm, sword, ring, ...).
type ItemType struct {
	InternalID string `json:"internal_id" yaml:"internal_id"`
	Name       string `json:"name" yaml:"name"`
	Slot       string `json:"slot,omitempty" yaml:"slot,omitempty"`
	IsWeapon   bool   `json:"is_weapon" yaml:"is_weapon"`
	IsArmor    bool   `json:"is_armor" yaml:"is_armor"`
}

// ValueRange is an inclusive [Lo,Hi] roll range. A fixed roll has Lo == Hi.
type ValueRange struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Contains reports whether v falls inside the range.
func (r ValueRange) Contains(v float64) bool {
	return v >= r.Lo && v <= r.Hi
}

// Width returns the span of the range.
func (r ValueRange) Width() float64 {
	return r.Hi - r.Lo
}

// CatalogAffix is a reference affix definition. Loaded once at startup and
// read-only thereafter.
type CatalogAffix struct {
	InternalID string        `json:"internal_id" yaml:"internal_id"`
	Name       string        `json:"name" yaml:"name"`
	Category   AffixCategory `json:"category" yaml:"category"`

	// Range is nil when the affix has no documented roll range.
	Range        *ValueRange `json:"range,omitempty" yaml:"range,omitempty"`
	IsPercentage bool        `json:"is_percentage" yaml:"is_percentage"`
	IsImplicit   bool        `json:"is_implicit" yaml:"is_implicit"`
	IsTempering  bool        `json:"is_tempering" yaml:"is_tempering"`

	// Empty slices mean unrestricted, mirroring the NULL array columns of
	// the reference schema.
	AllowedItemTypes []string `json:"allowed_item_types,omitempty" yaml:"allowed_item_types,omitempty"`
	AllowedClasses   []string `json:"allowed_classes,omitempty" yaml:"allowed_classes,omitempty"`

	// PriorityTier breaks resolver ties: 1 is highest, 10 lowest.
	PriorityTier int `json:"priority_tier" yaml:"priority_tier"`
}

// AllowsItemType reports whether the affix may roll on the given item type.
func (a *CatalogAffix) AllowsItemType(itemType string) bool {
	return allows(a.AllowedItemTypes, itemType)
}

// AllowsClass reports whether the affix may roll on gear for the given class.
func (a *CatalogAffix) AllowsClass(class string) bool {
	return allows(a.AllowedClasses, class)
}

// CatalogAspect is a reference legendary or unique power definition.
type CatalogAspect struct {
	InternalID string        `json:"internal_id" yaml:"internal_id"`
	Name       string        `json:"name" yaml:"name"`
	Category   AffixCategory `json:"category" yaml:"category"`

	Range          *ValueRange `json:"range,omitempty" yaml:"range,omitempty"`
	ScalingFormula string      `json:"scaling_formula,omitempty" yaml:"scaling_formula,omitempty"`

	AllowedItemTypes []string `json:"allowed_item_types,omitempty" yaml:"allowed_item_types,omitempty"`
	AllowedClasses   []string `json:"allowed_classes,omitempty" yaml:"allowed_classes,omitempty"`
	IsUniquePower    bool     `json:"is_unique_power" yaml:"is_unique_power"`
}

// AllowsItemType reports whether the aspect may appear on the given item type.
func (a *CatalogAspect) AllowsItemType(itemType string) bool {
	return allows(a.AllowedItemTypes, itemType)
}

// AllowsClass reports whether the aspect may appear on gear for the given class.
func (a *CatalogAspect) AllowsClass(class string) bool {
	return allows(a.AllowedClasses, class)
}

func allows(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
