// Package component implements the `commodore component` command group:
// compiling a single component outside of a full cluster compile
// (SPEC_FULL.md §14.3).
package component

import "github.com/spf13/cobra"

// Cmd is the `component` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "component",
	Short: "Work with individual components",
}
