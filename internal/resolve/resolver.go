// Package resolve matches normalized affix lines against the catalog using
// fuzzy name similarity, validated against the item context and the known
// roll ranges.
package resolve

import (
	"fmt"
	"math"

	"github.com/agext/levenshtein"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/config"
	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/normalize"
)

// FailureReason classifies why a line failed to resolve.
type FailureReason string

const (
	ReasonNoCandidates    FailureReason = "no_candidates"
	ReasonBelowThreshold  FailureReason = "below_threshold"
	ReasonValueOutOfRange FailureReason = "value_out_of_range"
)

// Failure is a non-fatal resolution failure. The snapshot builder decides
// whether the line is retained as unresolved or dropped.
type Failure struct {
	Text       string
	Reason     FailureReason
	BestID     string
	Similarity float64
}

// Error implements error.
func (f *Failure) Error() string {
	if f.BestID == "" {
		return fmt.Sprintf("resolve: %q: %s", f.Text, f.Reason)
	}
	return fmt.Sprintf("resolve: %q: %s (best %q at %.2f)", f.Text, f.Reason, f.BestID, f.Similarity)
}

// Resolver fuzzy-matches affix lines against a catalog.
type Resolver struct {
	cat *catalog.Catalog
	cfg config.ResolverConfig
}

// New creates a Resolver over the given catalog and tunables.
func New(cat *catalog.Catalog, cfg config.ResolverConfig) *Resolver {
	return &Resolver{cat: cat, cfg: cfg}
}

// Resolve matches one affix-line field against the catalog under the given
// item-type/class context. order is the extraction position, preserved on
// the result. A *Failure return is non-fatal and reported upward.
func (r *Resolver) Resolve(field model.NormalizedField, itemType string, class string, order int) (*model.ResolvedAffix, error) {
	if field.Kind != model.FieldAffixLine {
		return nil, eris.Errorf("resolve: field kind %q is not an affix line", field.Kind)
	}

	query := normalize.Fold(field.Text)
	candidates := r.cat.Candidates(query, itemType, class, r.cfg.TrigramMin)
	if len(candidates) == 0 {
		return nil, &Failure{Text: field.Text, Reason: ReasonNoCandidates}
	}

	best := pickBest(query, candidates, field.Value)
	if best.similarity < r.cfg.MinSimilarity {
		return nil, &Failure{
			Text:       field.Text,
			Reason:     ReasonBelowThreshold,
			BestID:     best.affix.InternalID,
			Similarity: best.similarity,
		}
	}

	widened, err := r.checkRange(field, best.affix)
	if err != nil {
		return nil, err
	}

	var roll float64
	if field.Value != nil {
		roll = *field.Value
	}

	zap.L().Debug("resolve: matched affix",
		zap.String("text", field.Text),
		zap.String("affix_id", best.affix.InternalID),
		zap.Float64("similarity", best.similarity),
		zap.Bool("widened", widened),
	)

	return &model.ResolvedAffix{
		AffixID:      best.affix.InternalID,
		Roll:         roll,
		GreaterAffix: field.GreaterAffix,
		Tempered:     field.Tempered,
		Implicit:     field.Implicit || best.affix.IsImplicit,
		Order:        order,
		Confidence:   best.similarity,
		Widened:      widened,
	}, nil
}

type scored struct {
	affix      *model.CatalogAffix
	similarity float64
}

// pickBest scores every candidate by normalized edit-distance similarity and
// selects the winner. Similarity ties are broken by the tightest range
// containing the observed value, then by catalog priority tier, then by
// internal id ascending so the choice is deterministic.
func pickBest(query string, candidates []catalog.Candidate, value *float64) scored {
	best := scored{similarity: -1}
	for _, cand := range candidates {
		sim := levenshtein.Similarity(query, cand.FoldedName, nil)
		switch {
		case sim > best.similarity:
			best = scored{affix: cand.Affix, similarity: sim}
		case sim == best.similarity && best.affix != nil:
			if preferOver(cand.Affix, best.affix, value) {
				best = scored{affix: cand.Affix, similarity: sim}
			}
		}
	}
	return best
}

// preferOver reports whether a should replace b as the best candidate at
// equal similarity.
func preferOver(a, b *model.CatalogAffix, value *float64) bool {
	if value != nil {
		aw := containWidth(a, *value)
		bw := containWidth(b, *value)
		if aw != bw {
			return aw < bw
		}
	}
	if a.PriorityTier != b.PriorityTier {
		return a.PriorityTier < b.PriorityTier
	}
	return a.InternalID < b.InternalID
}

// containWidth returns the range width when the affix range contains v, and
// +Inf otherwise, so containing ranges always beat non-containing ones.
func containWidth(a *model.CatalogAffix, v float64) float64 {
	if a.Range == nil || !a.Range.Contains(v) {
		return math.Inf(1)
	}
	return a.Range.Width()
}

// checkRange validates the observed value against the catalog range. Values
// beyond the tolerance band are accepted with the widened flag when the line
// carries a greater-affix or tempering mark; otherwise they are a failure.
func (r *Resolver) checkRange(field model.NormalizedField, affix *model.CatalogAffix) (widened bool, err error) {
	if field.Value == nil || affix.Range == nil {
		return false, nil
	}
	v := *field.Value
	if field.Polarity == model.PolarityLoss {
		v = math.Abs(v)
	}

	tol := affix.Range.Width() * r.cfg.RangeTolerancePct
	if tol == 0 {
		tol = math.Abs(affix.Range.Hi) * r.cfg.RangeTolerancePct
	}
	if v >= affix.Range.Lo-tol && v <= affix.Range.Hi+tol {
		return false, nil
	}
	if field.GreaterAffix || field.Tempered {
		return true, nil
	}
	return false, &Failure{
		Text:   field.Text,
		Reason: ReasonValueOutOfRange,
		BestID: affix.InternalID,
	}
}
