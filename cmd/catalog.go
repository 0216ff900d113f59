package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d4tools/loothound/internal/catalog"
	"github.com/d4tools/loothound/internal/fetcher"
	"github.com/d4tools/loothound/internal/store"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the reference catalog",
}

var catalogLoadCmd = &cobra.Command{
	Use:   "load <seed.json>",
	Short: "Load catalog reference data from a local seed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		payload, err := fetcher.LoadSeedFile(args[0])
		if err != nil {
			return err
		}
		return saveSeed(ctx, payload)
	},
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download catalog reference data from the configured seed URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := fetcher.NewSeedClient(cfg.Catalog)
		payload, err := client.Fetch(ctx)
		if err != nil {
			return err
		}
		return saveSeed(ctx, payload)
	},
}

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog collection sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		data, err := st.LoadCatalog(ctx)
		if err != nil {
			return err
		}
		return printJSON(map[string]int{
			"affixes":    len(data.Affixes),
			"aspects":    len(data.Aspects),
			"item_types": len(data.ItemTypes),
			"classes":    len(data.Classes),
		})
	},
}

// saveSeed validates the payload by indexing it, then persists it.
func saveSeed(ctx context.Context, payload *fetcher.SeedPayload) error {
	if _, err := catalog.New(payload.Affixes, payload.Aspects, payload.ItemTypes, payload.Classes); err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	if err := st.SaveCatalog(ctx, &store.CatalogData{
		Affixes:   payload.Affixes,
		Aspects:   payload.Aspects,
		ItemTypes: payload.ItemTypes,
		Classes:   payload.Classes,
	}); err != nil {
		return err
	}

	zap.L().Info("catalog: saved",
		zap.Int("affixes", len(payload.Affixes)),
		zap.Int("aspects", len(payload.Aspects)),
		zap.Int("item_types", len(payload.ItemTypes)),
		zap.Int("classes", len(payload.Classes)),
	)
	return nil
}

func init() {
	catalogCmd.AddCommand(catalogLoadCmd, catalogSyncCmd, catalogStatusCmd)
	rootCmd.AddCommand(catalogCmd)
}
