package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/config"
	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/pipeline"
	"github.com/d4tools/loothound/internal/registry"
	"github.com/d4tools/loothound/internal/store"
)

func testServer(t *testing.T) *server {
	t.Helper()

	cat, err := catalog.New(
		[]model.CatalogAffix{
			{InternalID: "all_stats", Name: "All Stats", Range: &model.ValueRange{Lo: 50, Hi: 80}, PriorityTier: 2},
			{InternalID: "critical_strike_damage", Name: "Critical Strike Damage", Range: &model.ValueRange{Lo: 10.5, Hi: 297.5}, PriorityTier: 1},
		},
		nil,
		[]model.ItemType{{InternalID: "sword", Name: "Sword", IsWeapon: true}},
		[]model.Class{{InternalID: "barbarian", Name: "Barbarian"}},
	)
	require.NoError(t, err)

	p := pipeline.New(cat,
		config.ResolverConfig{MinSimilarity: 0.72, RangeTolerancePct: 0.25, TrigramMin: 1},
		config.ScoreConfig{Epsilon: 1e-9},
	)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "whirlwind.yaml"), []byte(`
name: whirlwind
weights:
  - affix: all_stats
    weight: 10
    priority: 1
  - affix: critical_strike_damage
    weight: 5
    priority: 2
`), 0o644))
	builds, err := registry.LoadDir(dir)
	require.NoError(t, err)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	return &server{pipeline: p, builds: builds, store: st}
}

func serverTokens() []model.RawToken {
	return []model.RawToken{
		{Text: "Doombringer", Region: model.RegionHeader, Color: model.ColorLegendary, Line: 0, Confidence: 0.99},
		{Text: "Ancestral Legendary Sword", Region: model.RegionHeader, Line: 1, Confidence: 0.98},
		{Text: "+72.0% All Stats [66 - 74]%", Region: model.RegionAffixes, Color: model.ColorMagic, Line: 2, Confidence: 0.96},
	}
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestServer_Health(t *testing.T) {
	ts := httptest.NewServer(testServer(t).router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Score(t *testing.T) {
	ts := httptest.NewServer(testServer(t).router())
	defer ts.Close()

	resp := postJSON(t, ts, "/v1/score", scoreRequest{
		Build:  "whirlwind",
		Tokens: serverTokens(),
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Snapshot model.ItemSnapshot `json:"snapshot"`
		Score    model.ScoreResult  `json:"score"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Doombringer", out.Snapshot.Name)
	assert.InDelta(t, 720.0, out.Score.Total, 1e-9)
}

func TestServer_ScoreUnknownBuild(t *testing.T) {
	ts := httptest.NewServer(testServer(t).router())
	defer ts.Close()

	resp := postJSON(t, ts, "/v1/score", scoreRequest{Build: "nope", Tokens: serverTokens()})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Compare(t *testing.T) {
	ts := httptest.NewServer(testServer(t).router())
	defer ts.Close()

	tokensB := []model.RawToken{
		{Text: "Lesser Blade", Region: model.RegionHeader, Color: model.ColorMagic, Line: 0, Confidence: 0.99},
		{Text: "Legendary Sword", Region: model.RegionHeader, Line: 1, Confidence: 0.98},
		{Text: "+50.0% Critical Strike Damage", Region: model.RegionAffixes, Color: model.ColorMagic, Line: 2, Confidence: 0.96},
	}

	resp := postJSON(t, ts, "/v1/compare", compareRequest{
		Build:   "whirlwind",
		TokensA: serverTokens(),
		TokensB: tokensB,
		Save:    true,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res model.ComparisonResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, model.WinnerA, res.Winner)
	assert.InDelta(t, 720.0, res.ScoreA.Total, 1e-9)
	assert.InDelta(t, 250.0, res.ScoreB.Total, 1e-9)

	// The saved result shows up in the history listing.
	listResp, err := http.Get(ts.URL + "/v1/comparisons?build=whirlwind")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var listing struct {
		Comparisons []model.ComparisonResult `json:"comparisons"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listing))
	require.Len(t, listing.Comparisons, 1)
	assert.Equal(t, res.ID, listing.Comparisons[0].ID)
}

func TestServer_CompareMissingTokens(t *testing.T) {
	ts := httptest.NewServer(testServer(t).router())
	defer ts.Close()

	resp := postJSON(t, ts, "/v1/compare", compareRequest{Build: "whirlwind"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ListBuilds(t *testing.T) {
	ts := httptest.NewServer(testServer(t).router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/builds")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"whirlwind"}, out["builds"])
}
