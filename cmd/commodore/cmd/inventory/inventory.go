// Package inventory implements the `commodore inventory` command group:
// inspecting an already-compiled working directory's class hierarchy
// (spec.md §6 `inventory show | components | packages | lint`).
package inventory

import (
	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/pkg/config"
	"github.com/projectsyn/commodore-go/pkg/inventory"
	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/value"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

// Cmd is the `inventory` command group, added to the root command.
var Cmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inspect a compiled working directory's class hierarchy",
}

var workingDir string

func init() {
	Cmd.PersistentFlags().StringVar(&workingDir, "working-dir", "", "working directory (default: $COMMODORE_WORKING_DIR or the current directory)")
}

// dirs resolves the working directory these commands read from, honouring
// --working-dir, COMMODORE_WORKING_DIR, then the current directory, the
// same resolution order pkg/config.FromEnvironment/SetDefaults use for a
// compile.
func dirs() workdir.Dirs {
	c := &config.Config{WorkingDir: workingDir}
	config.FromEnvironment(c)
	config.SetDefaults(c)
	return workdir.New(c.WorkingDir)
}

// evaluateTarget evaluates targetName against the working directory's
// on-disk class tree, the same Resolver the Compilation Pipeline uses.
func evaluateTarget(targetName string) (value.Value, error) {
	resolver := inventory.NewResolver(dirs(), inventory.Options{IgnoreClassNotFound: true})
	target := model.Target{Name: targetName}
	if targetName == "cluster" {
		target = model.Target{Name: "cluster", Classes: model.BootstrapClassList(), Bootstrap: true}
	}
	return resolver.Evaluate(target)
}
