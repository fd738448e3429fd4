// Package pkgcmd implements the `commodore package` command group. It is
// named pkgcmd, not package, because "package" is a Go keyword.
package pkgcmd

import "github.com/spf13/cobra"

// Cmd is the `package` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "package",
	Short: "Work with individual packages",
}
