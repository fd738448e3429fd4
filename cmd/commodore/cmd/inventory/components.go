package inventory

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/pkg/discovery"
)

func init() {
	Cmd.AddCommand(componentsCmd)
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the components and aliases discovered from applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := evaluateTarget("cluster")
		if err != nil {
			return err
		}
		disc, err := discovery.ParseApplications(inv)
		if err != nil {
			return err
		}
		for _, alias := range disc.AliasOrder {
			base := disc.AliasToBase[alias]
			if alias == base {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", alias)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (alias of %s)\n", alias, base)
			}
		}
		return nil
	},
}
