package inventory

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/pkg/discovery"
)

func init() {
	Cmd.AddCommand(packagesCmd)
}

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List the packages discovered from applications",
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
		params, err := inv.GetMapAt("parameters")
		if err != nil {
			return err
		}
		bound, err := discovery.BindVersions(params, disc)
		if err != nil {
			return err
		}
		for _, name := range disc.PackageNames {
			pkg := bound.Packages[name]
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s@%s\n", name, pkg.Spec.URL, pkg.Spec.Version)
		}
		return nil
	},
}
