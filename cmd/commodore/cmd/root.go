package cmd

import (
	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/cmd/commodore/cliutil"
	"github.com/projectsyn/commodore-go/cmd/commodore/cmd/catalog"
	"github.com/projectsyn/commodore-go/cmd/commodore/cmd/component"
	"github.com/projectsyn/commodore-go/cmd/commodore/cmd/inventory"
	"github.com/projectsyn/commodore-go/cmd/commodore/cmd/pkgcmd"
	"github.com/projectsyn/commodore-go/pkg/logger"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "commodore",
	Short: "Commodore compiles a GitOps configuration catalog for a cluster",
	Long: `Commodore resolves a cluster's class hierarchy, fetches its
component and package dependencies, compiles them with the configured
templating engine, and writes the result to a catalog repository.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logOpts := logger.DefaultOptions()
		logOpts.ColorConsole = true
		if cliutil.Verbose {
			logOpts.ConsoleLevel = logger.DebugLevel
		}
		logger.Init(logOpts)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&cliutil.Verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVarP(&cliutil.Yes, "yes", "y", false, "assume yes to all prompts and run non-interactively")

	rootCmd.AddCommand(catalog.Cmd)
	rootCmd.AddCommand(component.Cmd)
	rootCmd.AddCommand(pkgcmd.Cmd)
	rootCmd.AddCommand(inventory.Cmd)
}
