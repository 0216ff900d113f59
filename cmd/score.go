package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/registry"
	"github.com/d4tools/loothound/internal/snapshot"
)

var scoreCmd = &cobra.Command{
	Use:   "score <item.json>",
	Short: "Score one item token dump against a build profile",
	Long: `Extracts the token dump into an item snapshot and scores it against the
given build profile. Prints the snapshot, total, and per-affix breakdown.

Examples:
  score helm.json --build builds/whirlwind.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("build", "", "path to the build profile YAML (required)")
	scoreCmd.MarkFlagRequired("build")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	buildPath, _ := cmd.Flags().GetString("build")
	build, err := registry.LoadBuild(buildPath)
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := newPipeline(ctx, st)
	if err != nil {
		return err
	}

	tokens, err := readTokens(args[0])
	if err != nil {
		return err
	}

	snap, result, err := p.ScoreTokens(tokens, build, snapshot.Source{Ref: args[0], Kind: "ocr"})
	if err != nil {
		return err
	}

	return printJSON(struct {
		Snapshot *model.ItemSnapshot `json:"snapshot"`
		Score    model.ScoreResult   `json:"score"`
	}{snap, result})
}
