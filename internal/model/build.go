package model

// ModifierKind selects the conditional transform applied to a contribution.
type ModifierKind string

const (
	// ModifierLinear leaves the contribution unchanged.
	ModifierLinear ModifierKind = "linear"
	// ModifierThreshold re-scales the contribution once the roll crosses
	// Point.
	ModifierThreshold ModifierKind = "threshold"
	// ModifierDiminishing applies a concave transform to the roll beyond
	// Inflection.
	ModifierDiminishing ModifierKind = "diminishing"
)

// ConditionalModifier is the tagged-variant descriptor attached to a build
// weight. Only the fields of the selected Kind are meaningful.
type ConditionalModifier struct {
	Kind ModifierKind `json:"kind" yaml:"kind"`

	// Threshold fields.
	Point     float64 `json:"point,omitempty" yaml:"point,omitempty"`
	PostScale float64 `json:"post_scale,omitempty" yaml:"post_scale,omitempty"`

	// Diminishing-curve fields. Exponent must be in (0,1] for the curve to
	// stay concave.
	Inflection float64 `json:"inflection,omitempty" yaml:"inflection,omitempty"`
	Exponent   float64 `json:"exponent,omitempty" yaml:"exponent,omitempty"`
}

// BuildWeight expresses how much one affix matters to a build.
type BuildWeight struct {
	AffixID string `json:"affix_id" yaml:"affix"`
	// Weight may be negative to penalize an affix.
	Weight float64 `json:"weight" yaml:"weight"`
	// Priority orders the breakdown; lower rank means higher priority.
	Priority int `json:"priority" yaml:"priority"`
	// Required disqualifies any snapshot missing this affix entirely.
	Required bool                 `json:"required" yaml:"required"`
	Modifier *ConditionalModifier `json:"modifier,omitempty" yaml:"modifier,omitempty"`
	Notes    string               `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Build is a named weighting profile for one character configuration.
// Weight entries are unique per affix; the registry enforces this at load.
type Build struct {
	Name    string        `json:"name" yaml:"name"`
	Class   string        `json:"class" yaml:"class"`
	Weights []BuildWeight `json:"weights" yaml:"weights"`
}

// WeightFor returns the weight entry for the given affix id, or nil.
func (b *Build) WeightFor(affixID string) *BuildWeight {
	for i := range b.Weights {
		if b.Weights[i].AffixID == affixID {
			return &b.Weights[i]
		}
	}
	return nil
}
