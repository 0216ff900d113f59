// Package score computes deterministic build-weighted item scores with
// explainable per-affix breakdowns.
package score

import (
	"math"
	"sort"

	"github.com/d4tools/loothound/internal/model"
)

// DisqualifiedTotal is the floor assigned to a snapshot missing a required
// affix. The comparator treats any disqualified snapshot as losing to a
// qualified one regardless of numbers.
const DisqualifiedTotal = -math.MaxFloat64

// Score evaluates one snapshot against one build. It is a pure function:
// identical inputs yield an identical total and an identically ordered
// breakdown (build weight priority rank ascending, ties by affix id).
func Score(snap *model.ItemSnapshot, build *model.Build) model.ScoreResult {
	res := model.ScoreResult{
		Breakdown: make([]model.Contribution, 0, len(build.Weights)),
	}

	for _, w := range build.Weights {
		matches := snap.AffixesByID(w.AffixID)
		if len(matches) == 0 && w.Required {
			res.Disqualified = true
			res.MissingRequired = append(res.MissingRequired, w.AffixID)
		}

		// Duplicate rolls each contribute independently and are summed
		// into one breakdown entry.
		contribution := 0.0
		for _, ra := range matches {
			contribution += apply(w.Modifier, ra.Roll, w.Weight)
		}
		res.Total += contribution
		res.Breakdown = append(res.Breakdown, model.Contribution{
			AffixID: w.AffixID,
			Amount:  contribution,
			Rolls:   len(matches),
		})
	}

	orderBreakdown(res.Breakdown, build)
	sort.Strings(res.MissingRequired)

	if res.Disqualified {
		res.Total = DisqualifiedTotal
	}
	return res
}

// apply evaluates the conditional-modifier transform for a single roll.
func apply(m *model.ConditionalModifier, roll, weight float64) float64 {
	if m == nil {
		return roll * weight
	}
	switch m.Kind {
	case model.ModifierThreshold:
		// Past the breakpoint the whole contribution is re-scaled.
		if roll >= m.Point {
			return roll * weight * m.PostScale
		}
		return roll * weight
	case model.ModifierDiminishing:
		// Concave transform beyond the inflection point: the excess is
		// raised to Exponent (in (0,1]) before weighting.
		if roll > m.Inflection {
			effective := m.Inflection + math.Pow(roll-m.Inflection, m.Exponent)
			return effective * weight
		}
		return roll * weight
	default: // ModifierLinear and unset kinds
		return roll * weight
	}
}

// orderBreakdown sorts contributions by the owning weight's priority rank,
// ties broken by affix id ascending.
func orderBreakdown(breakdown []model.Contribution, build *model.Build) {
	rank := make(map[string]int, len(build.Weights))
	for _, w := range build.Weights {
		rank[w.AffixID] = w.Priority
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		ri, rj := rank[breakdown[i].AffixID], rank[breakdown[j].AffixID]
		if ri != rj {
			return ri < rj
		}
		return breakdown[i].AffixID < breakdown[j].AffixID
	})
}
