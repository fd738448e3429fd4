package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/cmd/commodore/cliutil"
	"github.com/projectsyn/commodore-go/pkg/logger"
	"github.com/projectsyn/commodore-go/pkg/pipeline"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

var compileFlags cliutil.CompileFlags
var workingDir string

func init() {
	Cmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVar(&compileFlags.APIURL, "api-url", "", "cluster registry API base URL")
	compileCmd.Flags().StringVar(&compileFlags.APIToken, "api-token", "", "cluster registry API bearer token")
	compileCmd.Flags().BoolVar(&compileFlags.Local, "local", false, "skip registry lookups and Git fetches, use the working directory as-is")
	compileCmd.Flags().BoolVar(&compileFlags.Push, "push", false, "push the catalog commit to its remote")
	compileCmd.Flags().BoolVar(&compileFlags.Interactive, "interactive", false, "prompt before pushing the catalog commit")
	compileCmd.Flags().BoolVar(&compileFlags.Force, "force", false, "discard dirty dependency worktrees instead of failing")
	compileCmd.Flags().StringVarP(&compileFlags.Migration, "migration", "m", "", "diff migration to apply while staging the catalog")
	compileCmd.Flags().StringArrayVarP(&compileFlags.DynamicSet, "dynamic-facts", "d", nil, "additional cluster fact KEY=VALUE, may be repeated")
	compileCmd.Flags().StringVar(&workingDir, "working-dir", "", "working directory (default: $COMMODORE_WORKING_DIR or the current directory)")
}

var compileCmd = &cobra.Command{
	Use:   "compile <cluster-id>",
	Short: "Compile the full catalog for a cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clusterID := args[0]
		log := logger.Get()
		defer logger.SyncGlobal()

		cfg, err := cliutil.BuildConfig(compileFlags)
		if err != nil {
			return err
		}
		if workingDir != "" {
			cfg.WorkingDir = workingDir
		}

		coordinator := &pipeline.Coordinator{
			Dirs:     workdir.New(cfg.WorkingDir),
			Config:   cfg,
			Registry: cliutil.RegistryClient(cfg),
			Tools:    toolprovider.New(),
			GitAuth:  cliutil.GitAuth(cfg),
		}
		if cfg.Interactive && cliutil.Yes {
			log.Infof("--yes set: skipping interactive push confirmation, pushing unconditionally")
			cfg.Interactive = false
			cfg.Push = true
		} else if cfg.Interactive {
			coordinator.Prompt = cliutil.StdinPrompter
		}

		log.Infof("Compiling catalog for cluster %s", clusterID)
		result, err := coordinator.Compile(context.Background(), clusterID)
		if err != nil {
			return err
		}

		log.Successf("Compiled %d target(s) for cluster %s", len(result.Aliases), clusterID)
		for _, comp := range result.Components {
			fmt.Printf("  %s: %s (%s)\n", comp.Name, comp.Version, comp.ShortSHA)
		}
		return nil
	},
}
