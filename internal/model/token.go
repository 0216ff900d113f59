package model

// ColorTag is the tooltip text color reported by the OCR front end.
type ColorTag string

const (
	ColorNormal    ColorTag = "normal"
	ColorMagic     ColorTag = "magic"
	ColorLegendary ColorTag = "legendary"
	ColorPositive  ColorTag = "positive"
	ColorNegative  ColorTag = "negative"
)

// TooltipRegion identifies which block of the tooltip a token came from.
type TooltipRegion string

const (
	RegionHeader      TooltipRegion = "header"
	RegionPrimaryStat TooltipRegion = "primary_stat"
	RegionAffixes     TooltipRegion = "affixes"
	RegionUniquePower TooltipRegion = "unique_power"
	RegionFooter      TooltipRegion = "footer"
)

// Bounds is the pixel bounding box of a token on the source screenshot.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RawToken is one text fragment produced by the OCR front end. Consumed once
// by the normalizer and discarded.
type RawToken struct {
	Text       string        `json:"text"`
	Region     TooltipRegion `json:"region"`
	Color      ColorTag      `json:"color"`
	Line       int           `json:"line"`
	Bounds     Bounds        `json:"bounds"`
	Confidence float64       `json:"confidence"`
}

// FieldKind is the semantic category assigned to a normalized field.
type FieldKind string

const (
	FieldName         FieldKind = "name"
	FieldType         FieldKind = "type"
	FieldAffixLine    FieldKind = "affix_line"
	FieldAspectText   FieldKind = "aspect_text"
	FieldStatLine     FieldKind = "stat_line"
	FieldFooter       FieldKind = "footer"
	FieldUnclassified FieldKind = "unclassified"
)

// Polarity marks whether a line represents a stat gain or loss.
type Polarity string

const (
	PolarityNone Polarity = ""
	PolarityGain Polarity = "gain"
	PolarityLoss Polarity = "loss"
)

// NormalizedField is the cleaned, classified form of one or more raw tokens.
// Transient: it exists only between normalization and snapshot construction.
type NormalizedField struct {
	Kind FieldKind `json:"kind"`
	Text string    `json:"text"`

	// Value is the extracted roll value, nil when the line carries no number.
	Value *float64 `json:"value,omitempty"`
	// Range is the bracketed [lo-hi] annotation, nil when absent.
	Range    *ValueRange `json:"range,omitempty"`
	Percent  bool        `json:"percent"`
	Polarity Polarity    `json:"polarity,omitempty"`

	// Flags recovered from decorative glyphs, never left embedded in Text.
	GreaterAffix    bool `json:"greater_affix"`
	Tempered        bool `json:"tempered"`
	Implicit        bool `json:"implicit"`
	Socket          bool `json:"socket"`
	ClassRestricted bool `json:"class_restricted"`

	// SourceLines are the line indices of the contributing raw tokens.
	SourceLines []int `json:"source_lines,omitempty"`
	// Confidence is the minimum OCR confidence of the contributing tokens.
	Confidence float64 `json:"confidence"`
}
