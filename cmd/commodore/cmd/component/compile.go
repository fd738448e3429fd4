package component

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/cmd/commodore/cliutil"
	"github.com/projectsyn/commodore-go/pkg/adhoc"
	"github.com/projectsyn/commodore-go/pkg/logger"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
)

var (
	alias       string
	name        string
	valueFiles  []string
	searchPaths []string
	outputPath  string
	tmpDir      string
	keepDir     bool
)

func init() {
	Cmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&alias, "alias", "a", "", "alias to compile the component as (default: the component's own name)")
	compileCmd.Flags().StringArrayVarP(&valueFiles, "values", "f", nil, "extra class file to merge on top of the component's defaults, may be repeated")
	compileCmd.Flags().StringArrayVarP(&searchPaths, "search-path", "J", nil, "extra jsonnet library search path, may be repeated")
	compileCmd.Flags().StringVarP(&outputPath, "output", "o", "", "compiled output directory (default: <workspace>/compiled)")
	compileCmd.Flags().StringVarP(&name, "name", "n", "", "component name, if it cannot be derived from <path>")
	compileCmd.Flags().StringVar(&tmpDir, "tmp-dir", "", "reuse this directory as the ad hoc workspace instead of a generated temp dir")
	compileCmd.Flags().BoolVar(&keepDir, "keep-dir", false, "keep the ad hoc workspace after compiling")
}

var compileCmd = &cobra.Command{
	Use:   "compile <path>",
	Short: "Compile a single component outside of a full cluster compile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		componentPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		compName := resolveName(name, alias, componentPath)

		log := logger.Get()
		defer logger.SyncGlobal()
		log.Infof("Compiling component %s from %s", compName, componentPath)

		result, err := adhoc.Compile(context.Background(), toolprovider.New(), adhoc.Options{
			Name:          compName,
			ComponentPath: componentPath,
			ValueFiles:    valueFiles,
			SearchPaths:   searchPaths,
			OutputPath:    outputPath,
			TmpDir:        tmpDir,
			KeepDir:       keepDir,
		})
		if err != nil {
			return err
		}

		log.Successf("Component %s compiled", compName)
		if result.Kept {
			log.Infof("Workspace kept at %s", result.WorkDir)
		}
		return nil
	},
}

// resolveName picks the component name: an explicit -n wins, then -a, then
// the path's base directory with any "component-" prefix stripped (the
// reference implementation's default derivation).
func resolveName(name, alias, path string) string {
	if name != "" {
		return name
	}
	if alias != "" {
		return alias
	}
	base := filepath.Base(path)
	return strings.TrimPrefix(base, "component-")
}
