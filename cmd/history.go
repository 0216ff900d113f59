package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/d4tools/loothound/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved comparison results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		buildName, _ := cmd.Flags().GetString("build")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		results, err := st.ListComparisons(ctx, store.ComparisonFilter{
			BuildName: buildName,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}
		return printJSON(results)
	},
}

func init() {
	f := historyCmd.Flags()
	f.String("build", "", "filter by build name")
	f.Int("limit", 20, "maximum results")
	f.Int("offset", 0, "results to skip")

	rootCmd.AddCommand(historyCmd)
}
