package inventory

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/pkg/lint"
)

func init() {
	Cmd.AddCommand(lintCmd)
}

var lintCmd = &cobra.Command{
	Use:   "lint <paths>...",
	Short: "Check class files for dependency-specification shape issues",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		findings, err := lint.LintDependencySpecs(args)
		if err != nil {
			return err
		}
		for _, f := range findings {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", f.Path, f.Message)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d finding(s)\n", len(findings))
		return nil
	},
}
