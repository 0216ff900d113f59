package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4tools/loothound/internal/model"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "critical strike damage", Fold("Crïtical Strike Damage"))
	assert.Equal(t, "all stats", Fold("All—Stats"))
	assert.Equal(t, "72 0 all stats", Fold("  +72.0% All Stats "))
	assert.Equal(t, "", Fold("  %+- "))
}

func TestNormalize_AffixLine(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{
			Text:       "+72.0% All Stats [66 - 74]%",
			Region:     model.RegionAffixes,
			Color:      model.ColorMagic,
			Line:       3,
			Confidence: 0.97,
		},
	})
	require.Len(t, fields, 1)

	f := fields[0]
	assert.Equal(t, model.FieldAffixLine, f.Kind)
	assert.Equal(t, "All Stats", f.Text)
	require.NotNil(t, f.Value)
	assert.Equal(t, 72.0, *f.Value)
	require.NotNil(t, f.Range)
	assert.Equal(t, 66.0, f.Range.Lo)
	assert.Equal(t, 74.0, f.Range.Hi)
	assert.True(t, f.Percent)
	assert.Equal(t, model.PolarityGain, f.Polarity)
	assert.False(t, f.GreaterAffix)
	assert.Equal(t, []int{3}, f.SourceLines)
	assert.Equal(t, 0.97, f.Confidence)
}

func TestNormalize_GreaterAffixGlyph(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "✦ +92.0% Critical Strike Damage [56 - 70]%", Region: model.RegionAffixes, Color: model.ColorMagic},
	})
	require.Len(t, fields, 1)

	f := fields[0]
	assert.Equal(t, model.FieldAffixLine, f.Kind)
	assert.True(t, f.GreaterAffix)
	assert.Equal(t, "Critical Strike Damage", f.Text)
	require.NotNil(t, f.Value)
	assert.Equal(t, 92.0, *f.Value)
}

func TestNormalize_TemperedGlyph(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "⚒ +40.0% Vulnerable Damage", Region: model.RegionAffixes, Color: model.ColorMagic},
	})
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Tempered)
	assert.False(t, fields[0].GreaterAffix)
}

func TestNormalize_MangledBracketIsUnclassified(t *testing.T) {
	// A bracket annotation that fails to parse poisons the whole line; the
	// original text is preserved for provenance.
	fields := Normalize([]model.RawToken{
		{Text: "+10.5% Attack Speed [??]", Region: model.RegionAffixes, Color: model.ColorMagic},
	})
	require.Len(t, fields, 1)
	assert.Equal(t, model.FieldUnclassified, fields[0].Kind)
	assert.Equal(t, "+10.5% Attack Speed [??]", fields[0].Text)
	assert.Nil(t, fields[0].Value)
}

func TestNormalize_SocketLines(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "⬦ Empty Socket", Region: model.RegionAffixes},
		{Text: "Empty Socket", Region: model.RegionAffixes},
	})
	require.Len(t, fields, 2)
	for _, f := range fields {
		assert.Equal(t, model.FieldAffixLine, f.Kind)
		assert.True(t, f.Socket)
		assert.Nil(t, f.Value)
	}
}

func TestNormalize_Header(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "Doombringer", Region: model.RegionHeader, Color: model.ColorLegendary, Line: 0},
		{Text: "Ancestral Legendary Sword", Region: model.RegionHeader, Line: 1},
	})
	require.Len(t, fields, 2)
	assert.Equal(t, model.FieldName, fields[0].Kind)
	assert.Equal(t, "Doombringer", fields[0].Text)
	assert.Equal(t, model.FieldType, fields[1].Kind)
	assert.Equal(t, "Ancestral Legendary Sword", fields[1].Text)
}

func TestNormalize_StatLineThousands(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "1,245 Item Power", Region: model.RegionPrimaryStat},
	})
	require.Len(t, fields, 1)
	assert.Equal(t, model.FieldStatLine, fields[0].Kind)
	require.NotNil(t, fields[0].Value)
	assert.Equal(t, 1245.0, *fields[0].Value)
	assert.Equal(t, "Item Power", fields[0].Text)
}

func TestNormalize_PowerBlockJoinsLines(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "Lucky Hit: Up to a 15% chance to", Region: model.RegionUniquePower, Line: 5, Confidence: 0.9},
		{Text: "summon a storm dealing [x] damage", Region: model.RegionUniquePower, Line: 6, Confidence: 0.7},
		{Text: "Requires Level 60", Region: model.RegionFooter, Line: 7, Confidence: 0.95},
	})
	require.Len(t, fields, 2)

	power := fields[0]
	assert.Equal(t, model.FieldAspectText, power.Kind)
	assert.Equal(t, "Lucky Hit: Up to a 15% chance to summon a storm dealing [x] damage", power.Text)
	assert.Equal(t, []int{5, 6}, power.SourceLines)
	assert.Equal(t, 0.7, power.Confidence)

	assert.Equal(t, model.FieldFooter, fields[1].Kind)
}

func TestNormalize_Polarity(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "-5.0% Movement Speed", Region: model.RegionAffixes, Color: model.ColorNegative},
		{Text: "+8.0% Attack Speed", Region: model.RegionAffixes, Color: model.ColorNormal},
	})
	require.Len(t, fields, 2)
	assert.Equal(t, model.PolarityLoss, fields[0].Polarity)
	require.NotNil(t, fields[0].Value)
	assert.Equal(t, -5.0, *fields[0].Value)
	// A plus sign on uncolored text is not enough to call it a gain.
	assert.Equal(t, model.PolarityNone, fields[1].Polarity)
}

func TestNormalize_Footer(t *testing.T) {
	fields := Normalize([]model.RawToken{
		{Text: "Requires Level 60", Region: model.RegionFooter},
		{Text: "Account Bound", Region: model.RegionFooter},
	})
	require.Len(t, fields, 2)
	require.NotNil(t, fields[0].Value)
	assert.Equal(t, 60.0, *fields[0].Value)
	assert.Equal(t, "Requires Level", fields[0].Text)
	assert.Nil(t, fields[1].Value)
	assert.Equal(t, "Account Bound", fields[1].Text)
}
