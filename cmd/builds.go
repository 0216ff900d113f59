package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/registry"
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "Manage build profiles",
}

var buildsLintCmd = &cobra.Command{
	Use:   "lint <build.yaml|dir>",
	Short: "Validate build profiles against the catalog",
	Long: `Parses the given build profile (or every profile in a directory) and
checks it against the stored catalog: affix ids must exist, class
restrictions must name a known class, and modifiers must be well formed.`,
	Args: cobra.ExactArgs(1),
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
		cat, err := loadCatalog(ctx, st)
		if err != nil {
			return err
		}

		builds, err := loadBuildArg(args[0])
		if err != nil {
			return err
		}
		for _, b := range builds {
			if err := registry.Validate(b, cat); err != nil {
				return err
			}
			zap.L().Info("builds: profile valid",
				zap.String("name", b.Name),
				zap.Int("weights", len(b.Weights)),
			)
		}
		return nil
	},
}

var buildsListCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List build profiles in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Server.BuildsDir
		if len(args) == 1 {
			dir = args[0]
		}
		r, err := registry.LoadDir(dir)
		if err != nil {
			return err
		}
		return printJSON(map[string][]string{"builds": r.Names()})
	},
}

// loadBuildArg accepts either one profile file or a directory of profiles.
func loadBuildArg(path string) ([]*model.Build, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "builds: stat %s", path)
	}
	if !info.IsDir() {
		b, err := registry.LoadBuild(path)
		if err != nil {
			return nil, err
		}
		return []*model.Build{b}, nil
	}
	r, err := registry.LoadDir(path)
	if err != nil {
		return nil, err
	}
	builds := make([]*model.Build, 0, len(r.Names()))
	for _, name := range r.Names() {
		builds = append(builds, r.ByName(name))
	}
	return builds, nil
}

func init() {
	buildsCmd.AddCommand(buildsLintCmd, buildsListCmd)
	rootCmd.AddCommand(buildsCmd)
}
