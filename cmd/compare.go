package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d4tools/loothound/internal/registry"
	"github.com/d4tools/loothound/internal/snapshot"
)

var compareCmd = &cobra.Command{
	Use:   "compare <item-a.json> <item-b.json>",
	Short: "Compare two item token dumps under a build profile",
	Long: `Extracts both token dumps into item snapshots and scores them against
the given build profile. Prints the full comparison result, including the
per-affix breakdown for each item, as JSON.

Examples:
  # Compare two OCR dumps under a build
  compare helm_a.json helm_b.json --build builds/whirlwind.yaml

  # Compare without writing to the history
  compare helm_a.json helm_b.json --build builds/whirlwind.yaml --save=false`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.String("build", "", "path to the build profile YAML (required)")
	f.Bool("save", true, "save the result to the comparison history")
	compareCmd.MarkFlagRequired("build")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	buildPath, _ := cmd.Flags().GetString("build")
	save, _ := cmd.Flags().GetBool("save")

	build, err := registry.LoadBuild(buildPath)
	if err != nil {
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

	p, err := newPipeline(ctx, st)
	if err != nil {
		return err
	}

	tokensA, err := readTokens(args[0])
	if err != nil {
		return err
	}
	tokensB, err := readTokens(args[1])
	if err != nil {
		return err
	}

	res, err := p.Compare(tokensA, tokensB, build,
		snapshot.Source{Ref: args[0], Kind: "ocr"},
		snapshot.Source{Ref: args[1], Kind: "ocr"},
	)
	if err != nil {
		return err
	}

	if save {
		if err := st.SaveComparison(ctx, res); err != nil {
			zap.L().Warn("compare: failed to save history", zap.Error(err))
		}
	}

	return printJSON(res)
}
