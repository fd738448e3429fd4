// Package adhoc implements the component/package ad hoc compile path
// named in spec.md §6 (SPEC_FULL.md §14.3): compiling a single component
// or package outside of a full cluster compile, against a test class and
// value overlays, by materialising a temporary inventory and driving it
// through the same evaluate/templater/postprocess stages pkg/pipeline
// runs for a real target. Template scaffolding (generating a new
// component skeleton) is out of scope per spec.md §1; this package only
// implements the compile-only path.
package adhoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/inventory"
	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/postprocess"
	"github.com/projectsyn/commodore-go/pkg/targetgen"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
	"github.com/projectsyn/commodore-go/pkg/value"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

// Options configures one ad hoc compile (spec.md §6's `-f`, `-J`, `-o`,
// `-n`, `--tmp-dir`, `--keep-dir` flags).
type Options struct {
	// Name is the component or package name being compiled; its worktree
	// is expected to already exist at ComponentPath.
	Name string
	// ComponentPath is the component or package's worktree on disk.
	ComponentPath string
	// ValueFiles are extra class files merged on top of the component's
	// own defaults/class, in order (spec.md §6 `-f`).
	ValueFiles []string
	// ExtraParameters are additional static facts merged into the fake
	// class on top of the built-in cloud/cluster/customer facts, for
	// callers that need more than the defaults.
	ExtraParameters map[string]interface{}
	// SearchPaths are extra jsonnet library directories passed to the
	// templater (spec.md §6 `-J`), in addition to the component's own
	// dependencies/ and vendor/ directories.
	SearchPaths []string
	// OutputPath is where compiled output is written (spec.md §6 `-o`).
	OutputPath string
	// Namespace overrides the test target's kapitan.vars.namespace.
	Namespace string
	// TmpDir, if set, is used instead of a generated temp directory.
	TmpDir string
	// KeepDir keeps the temp workspace after compiling instead of
	// removing it.
	KeepDir bool
	// Package selects the package ad hoc compile shape (spec.md §6
	// `package compile <path> <test-class>`): ComponentPath is a package
	// worktree rather than a component worktree, and TestClass names the
	// package-relative root class file to use in place of the
	// defaults/components class pair a component compile uses.
	Package bool
	// TestClass is the package-relative path to the root class file
	// (e.g. "class/test.yml"), required when Package is set.
	TestClass string
}

// Result reports where an ad hoc compile's temp workspace and output live.
type Result struct {
	WorkDir string
	Kept    bool
}

// Compile materialises a throwaway inventory for opts.Name, evaluates it,
// invokes the templater, runs postprocess filters, and returns the temp
// workspace location (spec.md §6, SPEC_FULL.md §14.3).
func Compile(ctx context.Context, tools toolprovider.Provider, opts Options) (*Result, error) {
	workDir := opts.TmpDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "commodore-adhoc-"+uuid.NewString())
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, cerrors.Dependency(err, "creating ad hoc workspace %s", workDir)
	}

	cleanup := func() {
		if !opts.KeepDir {
			_ = os.RemoveAll(workDir)
		}
	}

	dirs := workdir.New(workDir)
	if err := prepareFakeInventory(dirs, opts); err != nil {
		cleanup()
		return nil, err
	}

	resolver := inventory.NewResolver(dirs, inventory.Options{IgnoreClassNotFound: true})
	target := model.Target{Name: opts.Name, Classes: testTargetClasses(opts)}
	inv, err := resolver.Evaluate(target)
	if err != nil {
		cleanup()
		return nil, err
	}

	if err := invokeTemplater(ctx, tools, dirs, opts); err != nil {
		cleanup()
		return nil, err
	}

	if err := runPostprocess(ctx, tools, dirs, opts, inv); err != nil {
		cleanup()
		return nil, err
	}

	if !opts.KeepDir {
		_ = os.RemoveAll(workDir)
	}
	return &Result{WorkDir: workDir, Kept: opts.KeepDir}, nil
}

// prepareFakeInventory writes a "fake" class carrying the minimal facts
// every component's defaults assume are present (cloud, cluster, customer
// identity), plus the test target file naming the component's own class,
// its defaults, and every caller-supplied value file.
func prepareFakeInventory(dirs workdir.Dirs, opts Options) error {
	fakeParams := map[string]interface{}{
		"cloud": map[string]interface{}{
			"provider": "cloudscale",
			"region":   "rma1",
		},
		"cluster": map[string]interface{}{
			"catalog_url": "ssh://git@git.example.com/org/repo.git",
			"dist":        "test-distribution",
			"name":        "c-green-test-1234",
		},
		"customer": map[string]interface{}{
			"name": "t-silent-test-1234",
		},
		"kapitan": map[string]interface{}{
			"vars": map[string]interface{}{
				"target":    opts.Name,
				"namespace": namespaceOrDefault(opts.Namespace),
			},
		},
	}
	for k, v := range opts.ExtraParameters {
		fakeParams[k] = v
	}

	fakeClassPath := filepath.Join(dirs.ClassesDir(), "fake.yml")
	if err := writeClass(fakeClassPath, fakeParams); err != nil {
		return err
	}

	for i, f := range opts.ValueFiles {
		data, err := os.ReadFile(f)
		if err != nil {
			return cerrors.Dependency(err, "reading value file %s", f)
		}
		dest := filepath.Join(dirs.ClassesDir(), fmt.Sprintf("value%d.yml", i))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return cerrors.Dependency(err, "staging value file %s", f)
		}
	}

	if opts.Package {
		if err := linkPackageSource(dirs, opts); err != nil {
			return err
		}
		if err := linkTestClass(dirs, opts); err != nil {
			return err
		}
	} else {
		if err := linkComponentSource(dirs, opts); err != nil {
			return err
		}
		// Symlink the component's own class/<name>.yml and class/defaults.yml
		// into the inventory's components/ and defaults/ class roots, the
		// same placement the Target/Class Generator uses for a real alias
		// (targetgen.WriteAliasClasses), so "components.<name>" and
		// "defaults.<name>" resolve during evaluation.
		if err := targetgen.WriteAliasClasses(dirs, opts.Name, opts.Name, opts.ComponentPath); err != nil {
			return err
		}
	}

	return writeTargetFile(dirs, opts)
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return "test"
	}
	return ns
}

func linkComponentSource(dirs workdir.Dirs, opts Options) error {
	worktree := dirs.ComponentWorktree(opts.Name)
	if err := os.MkdirAll(filepath.Dir(worktree), 0o755); err != nil {
		return cerrors.Dependency(err, "creating dependencies directory")
	}
	if _, err := os.Lstat(worktree); err == nil {
		if err := os.Remove(worktree); err != nil {
			return cerrors.Dependency(err, "replacing stale symlink %s", worktree)
		}
	}
	return os.Symlink(opts.ComponentPath, worktree)
}

func linkPackageSource(dirs workdir.Dirs, opts Options) error {
	worktree := dirs.PackageWorktree(opts.Name)
	if err := os.MkdirAll(filepath.Dir(worktree), 0o755); err != nil {
		return cerrors.Dependency(err, "creating dependencies directory")
	}
	if _, err := os.Lstat(worktree); err == nil {
		if err := os.Remove(worktree); err != nil {
			return cerrors.Dependency(err, "replacing stale symlink %s", worktree)
		}
	}
	return os.Symlink(opts.ComponentPath, worktree)
}

// rootClassName converts a package-relative test class path ("class/test.yml")
// to its dotted class name ("class.test"), mirroring the reference
// implementation's `root_class.replace(".yml", "").replace("/", ".")`.
func rootClassName(testClass string) string {
	name := strings.TrimSuffix(testClass, ".yml")
	return strings.ReplaceAll(name, "/", ".")
}

// linkTestClass symlinks the package's root class file into the inventory's
// class tree at the location classPath would derive for its dotted name, so
// the evaluator finds it without needing to know it lives inside the
// package worktree.
func linkTestClass(dirs workdir.Dirs, opts Options) error {
	src := filepath.Join(opts.ComponentPath, opts.TestClass)
	if _, err := os.Stat(src); err != nil {
		return cerrors.Dependency(err, "test class %q does not exist in package %s", opts.TestClass, opts.ComponentPath)
	}
	parts := strings.Split(rootClassName(opts.TestClass), ".")
	parts[len(parts)-1] += ".yml"
	dest := filepath.Join(append([]string{dirs.ClassesDir()}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return cerrors.Dependency(err, "creating class directory for %s", dest)
	}
	if _, err := os.Lstat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return cerrors.Dependency(err, "replacing stale symlink %s", dest)
		}
	}
	return os.Symlink(src, dest)
}

func testTargetClasses(opts Options) []string {
	if opts.Package {
		classes := []string{"fake", rootClassName(opts.TestClass)}
		for i := range opts.ValueFiles {
			classes = append(classes, fmt.Sprintf("value%d", i))
		}
		return classes
	}

	classes := []string{"fake", "defaults." + opts.Name}
	for i := range opts.ValueFiles {
		classes = append(classes, fmt.Sprintf("value%d", i))
	}
	classes = append(classes, "components."+opts.Name)
	return classes
}

func writeTargetFile(dirs workdir.Dirs, opts Options) error {
	doc := map[string]interface{}{"classes": testTargetClasses(opts)}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cerrors.Dependency(err, "rendering ad hoc target file")
	}
	path := dirs.TargetFile(opts.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerrors.Dependency(err, "creating targets directory")
	}
	return os.WriteFile(path, data, 0o644)
}

func writeClass(path string, params map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerrors.Dependency(err, "creating %s", filepath.Dir(path))
	}
	data, err := yaml.Marshal(map[string]interface{}{"parameters": params})
	if err != nil {
		return cerrors.Dependency(err, "rendering class file %s", path)
	}
	return os.WriteFile(path, data, 0o644)
}

func invokeTemplater(ctx context.Context, tools toolprovider.Provider, dirs workdir.Dirs, opts Options) error {
	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = dirs.CompiledDir()
	}
	args := []string{"compile", "--inventory-path", dirs.InventoryDir(),
		"--output-path", outputPath, "--targets", opts.Name, "--fake-refs"}
	for _, sp := range opts.SearchPaths {
		args = append(args, "-J", sp)
	}
	args = append(args, "-J", dirs.DependenciesDir(), "-J", filepath.Join(opts.ComponentPath, "vendor"))
	if _, err := tools.Run(ctx, "kapitan", dirs.Root, args...); err != nil {
		return cerrors.Templater(err, "compiling ad hoc target %s", opts.Name)
	}
	return nil
}

func runPostprocess(ctx context.Context, tools toolprovider.Provider, dirs workdir.Dirs, opts Options, inv value.Value) error {
	params, err := inv.GetMapAt("parameters")
	if err != nil {
		return nil
	}
	filters, err := postprocess.ParseFilters(params)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return nil
	}
	reg := postprocess.NewRegistry()
	compiledDir := dirs.CompiledTarget(opts.Name)
	if err := postprocess.Validate(filters, reg, compiledDir, opts.ComponentPath); err != nil {
		return err
	}
	vars := map[string]string{"target": opts.Name, "component": opts.Name}
	return postprocess.Run(ctx, filters, reg, tools, compiledDir, opts.ComponentPath, vars)
}
