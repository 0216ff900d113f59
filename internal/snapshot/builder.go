// Package snapshot assembles normalized fields and resolved affixes into one
// immutable item snapshot.
package snapshot

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/normalize"
)

// ConstructionError reports a mandatory field missing from the extraction.
// Fatal for the single item; other in-flight items are unaffected.
type ConstructionError struct {
	Missing string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("snapshot: mandatory field %q missing", e.Missing)
}

// Source identifies where an extraction came from.
type Source struct {
	Ref  string // path, image hash, or request id
	Kind string // ocr, manual, import
}

// Builder constructs item snapshots validated against the catalog.
type Builder struct {
	cat *catalog.Catalog
}

// NewBuilder creates a Builder over the given catalog.
func NewBuilder(cat *catalog.Catalog) *Builder {
	return &Builder{cat: cat}
}

// rarityRanks maps header keywords to rarity tiers and the 0-8 quality
// scale used by the comparison history schema.
var rarityRanks = []struct {
	keyword string
	rarity  model.Rarity
	quality int
}{
	{"mythic", model.RarityMythic, 8},
	{"unique", model.RarityUnique, 6},
	{"legendary", model.RarityLegendary, 4},
	{"rare", model.RarityRare, 2},
	{"magic", model.RarityMagic, 1},
	{"common", model.RarityCommon, 0},
}

// Build assembles a snapshot from the normalized fields and the resolver
// output for its affix lines. unresolved carries the affix-line texts the
// resolver failed on; they are retained in provenance, never coerced to an
// arbitrary affix. Returns a *ConstructionError when name or item type is
// missing.
func (b *Builder) Build(fields []model.NormalizedField, affixes []model.ResolvedAffix, unresolved []string, src Source) (*model.ItemSnapshot, error) {
	snap := &model.ItemSnapshot{
		Modifiable: true,
		Provenance: model.Provenance{
			SourceRef:  src.Ref,
			Source:     src.Kind,
			Unresolved: unresolved,
		},
	}

	var typeText string
	var footerTexts []string

	for _, f := range fields {
		switch f.Kind {
		case model.FieldName:
			snap.Name = f.Text
		case model.FieldType:
			typeText = f.Text
			b.applyHeaderMarkers(snap, f.Text)
		case model.FieldStatLine:
			applyStatLine(snap, f)
		case model.FieldAspectText:
			applyPower(b.cat, snap, f.Text)
		case model.FieldFooter:
			footerTexts = append(footerTexts, f.Text)
			b.applyFooter(snap, f)
		case model.FieldUnclassified:
			snap.Provenance.Unclassified = append(snap.Provenance.Unclassified, f.Text)
		case model.FieldAffixLine:
			if f.Socket {
				snap.Sockets = append(snap.Sockets, socketState(len(snap.Sockets), f.Text))
			}
		}
	}

	if snap.Name == "" {
		return nil, &ConstructionError{Missing: "name"}
	}
	it := b.cat.MatchItemType(typeText)
	if it == nil {
		return nil, &ConstructionError{Missing: "item_type"}
	}
	snap.ItemTypeID = it.InternalID

	if snap.ClassRestriction == nil {
		snap.ClassRestriction = b.matchClass(append(footerTexts, typeText))
	}

	snap.Affixes = b.filterCompatible(snap, affixes)
	snap.QualityBonus = countTempered(snap.Affixes)
	snap.Provenance.Confidence = aggregateConfidence(snap.Affixes, fields)

	return snap, nil
}

// applyHeaderMarkers derives rarity and the ancestral/sanctified flags from
// explicit header keywords only; nothing is inferred from affix composition.
func (b *Builder) applyHeaderMarkers(snap *model.ItemSnapshot, text string) {
	folded := normalize.Fold(text)
	for _, rr := range rarityRanks {
		if strings.Contains(folded, rr.keyword) {
			snap.Rarity = rr.rarity
			q := rr.quality
			snap.Quality = &q
			break
		}
	}
	snap.Unique = snap.Rarity == model.RarityUnique
	snap.Mythic = snap.Rarity == model.RarityMythic
	if strings.Contains(folded, "ancestral") {
		snap.Ancestral = true
	}
	if strings.Contains(folded, "sanctified") {
		snap.Sanctified = true
	}
}

func applyStatLine(snap *model.ItemSnapshot, f model.NormalizedField) {
	if f.Value == nil {
		return
	}
	folded := normalize.Fold(f.Text)
	if strings.Contains(folded, "item power") {
		p := int(*f.Value)
		snap.ItemPower = &p
	}
}

// applyPower stores the verbatim power body and tries to identify the aspect
// it names. The roll, when the aspect scales, is the first number embedded in
// the text.
func applyPower(cat *catalog.Catalog, snap *model.ItemSnapshot, text string) {
	if snap.UniquePowerText != "" {
		snap.UniquePowerText += " " + text
	} else {
		snap.UniquePowerText = text
	}
	if asp := cat.MatchAspect(snap.UniquePowerText); asp != nil {
		id := asp.InternalID
		snap.AspectID = &id
		if asp.Range != nil {
			if v, ok := normalize.FirstNumber(snap.UniquePowerText); ok {
				snap.AspectRoll = &v
			}
		}
	}
}

func (b *Builder) applyFooter(snap *model.ItemSnapshot, f model.NormalizedField) {
	folded := normalize.Fold(f.Text)
	switch {
	case strings.Contains(folded, "requires level") || strings.Contains(folded, "level"):
		if f.Value != nil {
			lvl := int(*f.Value)
			snap.LevelRequirement = &lvl
		}
	case strings.Contains(folded, "account bound"):
		snap.AccountBound = true
	case strings.Contains(folded, "not modifiable"):
		snap.Modifiable = false
	}
}

// matchClass scans texts for a class name from the catalog.
func (b *Builder) matchClass(texts []string) *string {
	for _, t := range texts {
		folded := normalize.Fold(t)
		for _, cl := range b.cat.Classes() {
			if strings.Contains(folded, normalize.Fold(cl.Name)) {
				id := cl.InternalID
				return &id
			}
		}
	}
	return nil
}

// filterCompatible is the defensive double-check of the data-model
// invariant: any resolved affix disallowed for the snapshot's item type or
// class is dropped and recorded in provenance. Order is preserved exactly as
// extracted; duplicates are kept.
func (b *Builder) filterCompatible(snap *model.ItemSnapshot, affixes []model.ResolvedAffix) []model.ResolvedAffix {
	class := ""
	if snap.ClassRestriction != nil {
		class = *snap.ClassRestriction
	}
	out := make([]model.ResolvedAffix, 0, len(affixes))
	for _, ra := range affixes {
		ca := b.cat.Affix(ra.AffixID)
		if ca == nil || !ca.AllowsItemType(snap.ItemTypeID) || (class != "" && !ca.AllowsClass(class)) {
			zap.L().Warn("snapshot: dropping incompatible affix",
				zap.String("affix_id", ra.AffixID),
				zap.String("item_type", snap.ItemTypeID),
				zap.String("class", class),
			)
			snap.Provenance.Dropped = append(snap.Provenance.Dropped, ra.AffixID)
			continue
		}
		out = append(out, ra)
	}
	return out
}

func socketState(index int, text string) model.SocketState {
	folded := normalize.Fold(text)
	st := model.SocketState{Index: index, Empty: strings.Contains(folded, "empty")}
	if !st.Empty {
		st.GemType = strings.TrimSpace(strings.TrimSuffix(folded, "socket"))
	}
	return st
}

func countTempered(affixes []model.ResolvedAffix) int {
	n := 0
	for _, a := range affixes {
		if a.Tempered {
			n++
		}
	}
	return n
}

// aggregateConfidence combines resolver match confidence with the OCR
// confidence of the underlying tokens. With no resolved affixes it falls
// back to the mean field confidence.
func aggregateConfidence(affixes []model.ResolvedAffix, fields []model.NormalizedField) float64 {
	if len(affixes) > 0 {
		sum := 0.0
		for _, a := range affixes {
			sum += a.Confidence
		}
		return sum / float64(len(affixes))
	}
	if len(fields) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range fields {
		sum += f.Confidence
	}
	return sum / float64(len(fields))
}
