package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/model"
)

const validBuildYAML = `
name: whirlwind
class: barbarian
weights:
  - affix: all_stats
    weight: 10
    priority: 1
    required: true
  - affix: critical_strike_damage
    weight: 5
    priority: 2
    modifier:
      kind: diminishing
      inflection: 100
      exponent: 0.5
`

func TestParseBuild(t *testing.T) {
	b, err := ParseBuild([]byte(validBuildYAML))
	require.NoError(t, err)

	assert.Equal(t, "whirlwind", b.Name)
	assert.Equal(t, "barbarian", b.Class)
	require.Len(t, b.Weights, 2)

	assert.Equal(t, "all_stats", b.Weights[0].AffixID)
	assert.Equal(t, 10.0, b.Weights[0].Weight)
	assert.True(t, b.Weights[0].Required)

	require.NotNil(t, b.Weights[1].Modifier)
	assert.Equal(t, model.ModifierDiminishing, b.Weights[1].Modifier.Kind)
	assert.Equal(t, 0.5, b.Weights[1].Modifier.Exponent)
}

func TestParseBuild_MissingName(t *testing.T) {
	_, err := ParseBuild([]byte("weights:\n  - affix: all_stats\n    weight: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestParseBuild_NoWeights(t *testing.T) {
	_, err := ParseBuild([]byte("name: empty\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no weights")
}

func TestParseBuild_DuplicateAffix(t *testing.T) {
	yaml := `
name: dup
weights:
  - affix: all_stats
    weight: 1
  - affix: all_stats
    weight: 2
`
	_, err := ParseBuild([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate weight")
}

func TestParseBuild_BadExponent(t *testing.T) {
	yaml := `
name: bad
weights:
  - affix: all_stats
    weight: 1
    modifier:
      kind: diminishing
      exponent: 1.5
`
	_, err := ParseBuild([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exponent")
}

func TestParseBuild_UnknownModifierKind(t *testing.T) {
	yaml := `
name: bad
weights:
  - affix: all_stats
    weight: 1
    modifier:
      kind: exponential
`
	_, err := ParseBuild([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown modifier kind")
}

func TestValidate(t *testing.T) {
	cat, err := catalog.New(
		[]model.CatalogAffix{
			{InternalID: "all_stats", Name: "All Stats"},
			{InternalID: "critical_strike_damage", Name: "Critical Strike Damage"},
		},
		nil, nil,
		[]model.Class{{InternalID: "barbarian", Name: "Barbarian"}},
	)
	require.NoError(t, err)

	b, err := ParseBuild([]byte(validBuildYAML))
	require.NoError(t, err)
	require.NoError(t, Validate(b, cat))

	b.Weights[0].AffixID = "unknown_affix"
	err = Validate(b, cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown affix")

	b, _ = ParseBuild([]byte(validBuildYAML))
	b.Class = "wizard"
	err = Validate(b, cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown class")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "whirlwind.yaml"), []byte(validBuildYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frost.yml"), []byte(`
name: frost
weights:
  - affix: cold_damage
    weight: 3
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"frost", "whirlwind"}, r.Names())
	require.NotNil(t, r.ByName("whirlwind"))
	assert.Len(t, r.ByName("whirlwind").Weights, 2)
	assert.Nil(t, r.ByName("missing"))
}

func TestLoadDir_DuplicateName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(validBuildYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(validBuildYAML), 0o644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate build name")
}

func TestLoadBuild_MissingFile(t *testing.T) {
	_, err := LoadBuild(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
