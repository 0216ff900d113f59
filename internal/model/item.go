package model

// Rarity is the quality tier printed in the tooltip header.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityMagic     Rarity = "magic"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
	RarityUnique    Rarity = "unique"
	RarityMythic    Rarity = "mythic"
)

// ResolvedAffix is one affix line matched against the catalog. Duplicate
// rolls of the same catalog affix are kept as separate entries; Order is the
// extraction order from the tooltip and is never re-sorted.
type ResolvedAffix struct {
	AffixID      string  `json:"affix_id"`
	Roll         float64 `json:"roll"`
	GreaterAffix bool    `json:"greater_affix"`
	Tempered     bool    `json:"tempered"`
	Implicit     bool    `json:"implicit"`
	Order        int     `json:"order"`
	// Confidence is the resolver match confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Widened marks a roll accepted outside the documented catalog range
	// (greater affix or tempering overshoot).
	Widened bool `json:"widened"`
}

// SocketState describes one gem socket on an item.
type SocketState struct {
	Index   int    `json:"index"`
	GemType string `json:"gem_type,omitempty"`
	Empty   bool   `json:"empty"`
}

// Provenance carries extraction diagnostics through to the comparison output
// so a score is never presented without a traceable basis.
type Provenance struct {
	// Confidence is the aggregate extraction confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// SourceRef identifies the originating capture (path, hash, request id).
	SourceRef string `json:"source_ref,omitempty"`
	Source    string `json:"source,omitempty"` // ocr, manual, import
	// Unresolved holds affix-line texts that no catalog entry matched.
	Unresolved []string `json:"unresolved,omitempty"`
	// Unclassified holds token texts that fit no semantic category.
	Unclassified []string `json:"unclassified,omitempty"`
	// Dropped holds resolved affixes discarded by the compatibility check.
	Dropped []string `json:"dropped,omitempty"`
}

// ItemSnapshot is the fully resolved, immutable representation of one
// physical item instance. Invariant: no entry in Affixes references a catalog
// affix disallowed for ItemTypeID or ClassRestriction.
type ItemSnapshot struct {
	Name             string  `json:"name"`
	ItemTypeID       string  `json:"item_type_id"`
	Rarity           Rarity  `json:"rarity"`
	ClassRestriction *string `json:"class_restriction,omitempty"`

	ItemPower    *int `json:"item_power,omitempty"`
	Quality      *int `json:"quality,omitempty"`
	QualityBonus int  `json:"quality_bonus"`

	Ancestral    bool `json:"ancestral"`
	Unique       bool `json:"unique"`
	Mythic       bool `json:"mythic"`
	Sanctified   bool `json:"sanctified"`
	AccountBound bool `json:"account_bound"`
	Modifiable   bool `json:"modifiable"`

	LevelRequirement *int `json:"level_requirement,omitempty"`

	Affixes []ResolvedAffix `json:"affixes"`

	AspectID   *string  `json:"aspect_id,omitempty"`
	AspectRoll *float64 `json:"aspect_roll,omitempty"`

	Sockets []SocketState `json:"sockets,omitempty"`

	// UniquePowerText is the verbatim power body, embedded range annotations
	// included.
	UniquePowerText string `json:"unique_power_text,omitempty"`

	Provenance Provenance `json:"provenance"`
}

// AffixesByID returns every resolved affix referencing the given catalog id,
// in extraction order.
func (s *ItemSnapshot) AffixesByID(affixID string) []ResolvedAffix {
	var out []ResolvedAffix
	for _, a := range s.Affixes {
		if a.AffixID == affixID {
			out = append(out, a)
		}
	}
	return out
}
