package inventory

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	Cmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [target]",
	Short: "Print a target's fully-merged parameter tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "cluster"
		if len(args) == 1 {
			target = args[0]
		}
		inv, err := evaluateTarget(target)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(inv.Raw())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}
