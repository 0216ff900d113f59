package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/pipeline"
	"github.com/d4tools/loothound/internal/store"
)

// openStore constructs the configured persistence backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// loadCatalog reads the reference data from the store and indexes it.
func loadCatalog(ctx context.Context, st store.Store) (*catalog.Catalog, error) {
	data, err := st.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(data.Affixes) == 0 {
		return nil, eris.New("catalog is empty; run 'loothound catalog load' or 'catalog sync' first")
	}
	return catalog.New(data.Affixes, data.Aspects, data.ItemTypes, data.Classes)
}

// newPipeline builds the extraction pipeline over the stored catalog.
func newPipeline(ctx context.Context, st store.Store) (*pipeline.Pipeline, error) {
	cat, err := loadCatalog(ctx, st)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cat, cfg.Resolver, cfg.Score), nil
}

// tokenDump is the on-disk format produced by the OCR front end: either a
// bare token array or an object with a "tokens" key.
type tokenDump struct {
	Tokens []model.RawToken `json:"tokens"`
}

// readTokens loads a token dump file.
func readTokens(path string) ([]model.RawToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read token dump %s", path)
	}

	var dump tokenDump
	if err := json.Unmarshal(data, &dump); err == nil && len(dump.Tokens) > 0 {
		return dump.Tokens, nil
	}
	var tokens []model.RawToken
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, eris.Wrapf(err, "parse token dump %s", path)
	}
	return tokens, nil
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}
