package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4tools/loothound/internal/model"
)

func testSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testCatalogData() *CatalogData {
	return &CatalogData{
		Affixes: []model.CatalogAffix{
			{InternalID: "all_stats", Name: "All Stats", Range: &model.ValueRange{Lo: 50, Hi: 80}, PriorityTier: 2},
			{InternalID: "critical_strike_damage", Name: "Critical Strike Damage", AllowedItemTypes: []string{"sword"}, PriorityTier: 1},
		},
		Aspects: []model.CatalogAspect{
			{InternalID: "edgemasters", Name: "Edgemaster's Aspect", IsUniquePower: false},
		},
		ItemTypes: []model.ItemType{
			{InternalID: "sword", Name: "Sword", Slot: "weapon", IsWeapon: true},
		},
		Classes: []model.Class{
			{InternalID: "barbarian", Name: "Barbarian"},
		},
	}
}

func TestSQLite_CatalogRoundTrip(t *testing.T) {
	st := testSQLite(t)
	ctx := context.Background()

	require.NoError(t, st.SaveCatalog(ctx, testCatalogData()))

	data, err := st.LoadCatalog(ctx)
	require.NoError(t, err)

	require.Len(t, data.Affixes, 2)
	require.Len(t, data.Aspects, 1)
	require.Len(t, data.ItemTypes, 1)
	require.Len(t, data.Classes, 1)

	// Payloads come back ordered by internal id.
	assert.Equal(t, "all_stats", data.Affixes[0].InternalID)
	require.NotNil(t, data.Affixes[0].Range)
	assert.Equal(t, 80.0, data.Affixes[0].Range.Hi)
	assert.Equal(t, []string{"sword"}, data.Affixes[1].AllowedItemTypes)
	assert.True(t, data.ItemTypes[0].IsWeapon)
}

func TestSQLite_SaveCatalogReplaces(t *testing.T) {
	st := testSQLite(t)
	ctx := context.Background()

	require.NoError(t, st.SaveCatalog(ctx, testCatalogData()))

	smaller := &CatalogData{
		Affixes: []model.CatalogAffix{{InternalID: "maximum_life", Name: "Maximum Life"}},
	}
	require.NoError(t, st.SaveCatalog(ctx, smaller))

	data, err := st.LoadCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, data.Affixes, 1)
	assert.Equal(t, "maximum_life", data.Affixes[0].InternalID)
	assert.Empty(t, data.Classes)
}

func comparisonFixture(id, build string, createdAt time.Time) *model.ComparisonResult {
	return &model.ComparisonResult{
		ID:        id,
		BuildName: build,
		CreatedAt: createdAt,
		ItemA:     &model.ItemSnapshot{Name: "A", ItemTypeID: "sword"},
		ItemB:     &model.ItemSnapshot{Name: "B", ItemTypeID: "sword"},
		ScoreA:    model.ScoreResult{Total: 100},
		ScoreB:    model.ScoreResult{Total: 40},
		Delta:     60,
		Winner:    model.WinnerA,
	}
}

func TestSQLite_ComparisonHistory(t *testing.T) {
	st := testSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveComparison(ctx, comparisonFixture("cmp-1", "whirlwind", base)))
	require.NoError(t, st.SaveComparison(ctx, comparisonFixture("cmp-2", "whirlwind", base.Add(time.Hour))))
	require.NoError(t, st.SaveComparison(ctx, comparisonFixture("cmp-3", "frost", base.Add(2*time.Hour))))

	all, err := st.ListComparisons(ctx, ComparisonFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "cmp-3", all[0].ID)
	assert.Equal(t, "cmp-1", all[2].ID)
	assert.Equal(t, model.WinnerA, all[0].Winner)
	assert.Equal(t, "A", all[0].ItemA.Name)

	filtered, err := st.ListComparisons(ctx, ComparisonFilter{BuildName: "whirlwind"})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "cmp-2", filtered[0].ID)

	limited, err := st.ListComparisons(ctx, ComparisonFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "cmp-3", limited[0].ID)

	paged, err := st.ListComparisons(ctx, ComparisonFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "cmp-2", paged[0].ID)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := testSQLite(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Migrate(context.Background()))
}
