// Package normalize turns raw OCR tokens into classified, cleaned fields.
// It owns no catalog knowledge: it fixes glyph damage, parses numbers and
// bracket ranges, and assigns a semantic category per token region.
package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/d4tools/loothound/internal/model"
)

// Normalize converts an ordered token sequence into an ordered field
// sequence. Tokens that fit no semantic category become unclassified fields
// with zero numeric content; nothing is dropped silently.
func Normalize(tokens []model.RawToken) []model.NormalizedField {
	var fields []model.NormalizedField
	var power *powerBlock

	headerSeen := 0
	for _, tok := range tokens {
		if tok.Region == model.RegionUniquePower {
			if power == nil {
				power = &powerBlock{confidence: tok.Confidence}
			}
			power.add(tok)
			continue
		}
		// A non-power token closes an open power block; reading order is
		// preserved in the output.
		if power != nil {
			fields = append(fields, power.field())
			power = nil
		}

		switch tok.Region {
		case model.RegionHeader:
			fields = append(fields, headerField(tok, headerSeen))
			headerSeen++
		case model.RegionPrimaryStat:
			fields = append(fields, statField(tok))
		case model.RegionAffixes:
			fields = append(fields, affixField(tok))
		case model.RegionFooter:
			fields = append(fields, footerField(tok))
		default:
			zap.L().Debug("normalize: unknown token region",
				zap.String("region", string(tok.Region)),
				zap.Int("line", tok.Line),
			)
			fields = append(fields, unclassified(tok))
		}
	}
	if power != nil {
		fields = append(fields, power.field())
	}
	return fields
}

// powerBlock accumulates a multi-line unique-power or flavor-text block.
type powerBlock struct {
	parts      []string
	lines      []int
	confidence float64
}

func (p *powerBlock) add(tok model.RawToken) {
	text, _ := stripGlyphs(tok.Text)
	p.parts = append(p.parts, strings.TrimSpace(text))
	p.lines = append(p.lines, tok.Line)
	if tok.Confidence < p.confidence {
		p.confidence = tok.Confidence
	}
}

// field joins the block in reading order, line breaks collapsed to single
// spaces. Embedded numeric and range annotations stay verbatim.
func (p *powerBlock) field() model.NormalizedField {
	return model.NormalizedField{
		Kind:        model.FieldAspectText,
		Text:        strings.Join(p.parts, " "),
		SourceLines: p.lines,
		Confidence:  p.confidence,
	}
}

// headerField classifies header tokens: the first line is the item name,
// later lines carry the rarity/type designation.
func headerField(tok model.RawToken, seen int) model.NormalizedField {
	text, flags := stripGlyphs(tok.Text)
	kind := model.FieldType
	if seen == 0 {
		kind = model.FieldName
	}
	return model.NormalizedField{
		Kind:            kind,
		Text:            cleanText(text),
		ClassRestricted: flags[flagClassRestricted],
		SourceLines:     []int{tok.Line},
		Confidence:      tok.Confidence,
	}
}

// statField parses a primary stat line such as "1,245 Item Power".
func statField(tok model.RawToken) model.NormalizedField {
	text, flags := stripGlyphs(tok.Text)
	rest, value, found := parseNumber(text)
	if !found {
		return unclassified(tok)
	}
	f := model.NormalizedField{
		Kind:        model.FieldStatLine,
		Text:        cleanText(rest),
		Value:       &value,
		Implicit:    flags[flagImplicit],
		SourceLines: []int{tok.Line},
		Confidence:  tok.Confidence,
	}
	if strings.Contains(rest, "%") {
		f.Percent = true
	}
	return f
}

// affixField parses an affix line such as "+72.0% All Stats [66 - 74]%".
// An unparseable bracket annotation makes the whole line unclassified: a
// mangled range cannot be trusted to carry any numeric content.
func affixField(tok model.RawToken) model.NormalizedField {
	text, flags := stripGlyphs(tok.Text)

	rest, lo, hi, present, ok := parseBracket(text)
	if present && !ok {
		return unclassified(tok)
	}

	sign := leadingSign(rest)
	percent := strings.Contains(rest, "%")
	rest = strings.ReplaceAll(rest, "%", "")
	rest, value, found := parseNumber(rest)

	// Socket glyph lines ("Empty Socket") carry no roll value.
	if flags[flagSocket] || isSocketText(rest) {
		return model.NormalizedField{
			Kind:        model.FieldAffixLine,
			Text:        cleanText(rest),
			Socket:      true,
			SourceLines: []int{tok.Line},
			Confidence:  tok.Confidence,
		}
	}

	f := model.NormalizedField{
		Kind:            model.FieldAffixLine,
		Text:            cleanText(rest),
		Percent:         percent,
		Polarity:        polarity(sign, tok.Color),
		GreaterAffix:    flags[flagGreater],
		Tempered:        flags[flagTempered],
		Implicit:        flags[flagImplicit],
		ClassRestricted: flags[flagClassRestricted],
		SourceLines:     []int{tok.Line},
		Confidence:      tok.Confidence,
	}
	if found {
		f.Value = &value
	}
	if present {
		f.Range = &model.ValueRange{Lo: lo, Hi: hi}
	}
	return f
}

// footerField parses footer lines (level requirement, binding, sell value).
func footerField(tok model.RawToken) model.NormalizedField {
	text, flags := stripGlyphs(tok.Text)
	f := model.NormalizedField{
		Kind:            model.FieldFooter,
		ClassRestricted: flags[flagClassRestricted],
		SourceLines:     []int{tok.Line},
		Confidence:      tok.Confidence,
	}
	rest, value, found := parseNumber(text)
	if found {
		f.Value = &value
		f.Text = cleanText(rest)
	} else {
		f.Text = cleanText(text)
	}
	return f
}

func unclassified(tok model.RawToken) model.NormalizedField {
	return model.NormalizedField{
		Kind:        model.FieldUnclassified,
		Text:        strings.TrimSpace(tok.Text),
		SourceLines: []int{tok.Line},
		Confidence:  tok.Confidence,
	}
}

// leadingSign returns '+', '-', or 0 for the first non-space character.
func leadingSign(s string) byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t':
			continue
		case '+', '-':
			return s[i]
		default:
			return 0
		}
	}
	return 0
}

// polarity derives gain/loss from the leading sign and text color. Positive,
// magic, and legendary colors with a leading plus read as gains; red text or
// a leading minus reads as a loss.
func polarity(sign byte, color model.ColorTag) model.Polarity {
	if sign == '-' || color == model.ColorNegative {
		return model.PolarityLoss
	}
	if sign == '+' {
		switch color {
		case model.ColorPositive, model.ColorMagic, model.ColorLegendary:
			return model.PolarityGain
		}
	}
	return model.PolarityNone
}

func isSocketText(s string) bool {
	return strings.Contains(Fold(s), "socket")
}
