// Package catalog implements the `commodore catalog` command group:
// compiling a cluster's full catalog and listing clusters known to the
// registry (spec.md §6).
package catalog

import "github.com/spf13/cobra"

// Cmd is the `catalog` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "catalog",
	Short: "Compile and inspect cluster catalogs",
}
