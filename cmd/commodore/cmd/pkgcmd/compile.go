package pkgcmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/projectsyn/commodore-go/pkg/adhoc"
	"github.com/projectsyn/commodore-go/pkg/logger"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
)

var (
	valueFiles []string
	localMode  bool
	tmpDir     string
	keepDir    bool
)

func init() {
	Cmd.AddCommand(compileCmd)
	compileCmd.Flags().StringArrayVarP(&valueFiles, "values", "f", nil, "extra class file to merge on top of the test class, may be repeated")
	compileCmd.Flags().BoolVar(&localMode, "local", false, "compile without fetching the package's own dependencies")
	compileCmd.Flags().StringVar(&tmpDir, "tmp-dir", "", "reuse this directory as the ad hoc workspace instead of a generated temp dir")
	compileCmd.Flags().BoolVar(&keepDir, "keep-dir", false, "keep the ad hoc workspace after compiling")
}

var compileCmd = &cobra.Command{
	Use:   "compile <path> <test-class>",
	Short: "Compile a single package outside of a full cluster compile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkgPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		testClass := args[1]
		pkgName := strings.TrimPrefix(filepath.Base(pkgPath), "package-")

		log := logger.Get()
		defer logger.SyncGlobal()
		log.Infof("Compiling package %s from %s against test class %s", pkgName, pkgPath, testClass)
		if !localMode {
			log.Debugf("package ad hoc compile never fetches real component dependencies; --local has no additional effect here")
		}

		result, err := adhoc.Compile(context.Background(), toolprovider.New(), adhoc.Options{
			Name:          pkgName,
			ComponentPath: pkgPath,
			ValueFiles:    valueFiles,
			Package:       true,
			TestClass:     testClass,
			TmpDir:        tmpDir,
			KeepDir:       keepDir,
		})
		if err != nil {
			return err
		}

		log.Successf("Package %s compiled", pkgName)
		if result.Kept {
			log.Infof("Workspace kept at %s", result.WorkDir)
		}
		return nil
	},
}
