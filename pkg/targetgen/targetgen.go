// Package targetgen implements the Target/Class Generator (spec.md §4.E):
// per-alias class/defaults symlinks, per-alias target files, the
// multi_instance instantiation rule, and library-alias symlinking.
package targetgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/value"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

// componentClassSource and componentDefaultsSource encode the on-disk layout
// a component worktree ships at its root: class/<name>.yml (the component's own class) and class/defaults.yml
// (its defaults), the convention the Target/Class Generator symlinks from.
func componentClassSource(worktree, component string) string {
	return filepath.Join(worktree, "class", component+".yml")
}

func componentDefaultsSource(worktree string) string {
	return filepath.Join(worktree, "class", "defaults.yml")
}

// WriteAliasClasses symlinks an alias's class and defaults files into the
// inventory so the class hierarchy evaluator can resolve `components.<alias>`
// and `defaults.<alias>` (spec.md §4.E).
func WriteAliasClasses(dirs workdir.Dirs, alias, component, worktree string) error {
	classTarget := filepath.Join(dirs.ComponentClassesDir(), alias+".yml")
	if err := symlinkReplacing(componentClassSource(worktree, component), classTarget); err != nil {
		return cerrors.Instantiation("linking class for alias %q: %v", alias, err)
	}

	defaultsTarget := filepath.Join(dirs.DefaultsClassesDir(), alias+".yml")
	if err := symlinkReplacing(componentDefaultsSource(worktree), defaultsTarget); err != nil {
		return cerrors.Instantiation("linking defaults for alias %q: %v", alias, err)
	}
	return nil
}

func symlinkReplacing(source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if _, err := os.Lstat(target); err == nil {
		if err := os.Remove(target); err != nil {
			return err
		}
	}
	return os.Symlink(source, target)
}

// ReadMultiInstance loads a component's defaults class file from its
// worktree and reports whether `_metadata.multi_instance` is true.
func ReadMultiInstance(worktree string) (bool, error) {
	data, err := os.ReadFile(componentDefaultsSource(worktree))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return false, err
	}
	params, _ := raw["parameters"].(map[string]interface{})
	v := value.FromRaw(params)
	mi, err := v.GetBoolAt("_metadata.multi_instance")
	if err != nil {
		return false, nil
	}
	return mi, nil
}

// CheckInstantiation enforces spec.md §4.E's instantiation rule: a
// non-identity alias is only permitted for a component whose defaults
// declare multi_instance.
func CheckInstantiation(component, alias string, identity, multiInstance bool) error {
	if identity || multiInstance {
		return nil
	}
	return cerrors.Instantiation("Component %s with alias %s does not support instantiation.", component, alias)
}

// WriteTargetFile renders <targets>/<alias>.yml per spec.md §3/§6: classes
// plus parameters carrying _instance, _base_directory, and
// kapitan.vars.target.
func WriteTargetFile(dirs workdir.Dirs, target model.Target) error {
	doc := map[string]interface{}{
		"classes": target.Classes,
		"parameters": map[string]interface{}{
			"_instance":       target.Instance,
			"_base_directory": target.BaseDir,
			"kapitan": map[string]interface{}{
				"vars": map[string]interface{}{
					"target": target.Name,
				},
			},
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cerrors.Instantiation("rendering target file for %q: %v", target.Name, err)
	}
	path := dirs.TargetFile(target.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerrors.Instantiation("creating targets directory: %v", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LibraryAliasRegistry tracks declared library aliases across all
// components in a compile, enforcing the two rules of spec.md §4.E:
// an alias name may not begin with another component's name, and two
// components may not declare the same library alias.
type LibraryAliasRegistry struct {
	componentNames map[string]bool
	declared       map[string]string // alias filename -> owning component
}

func NewLibraryAliasRegistry(componentNames []string) *LibraryAliasRegistry {
	names := make(map[string]bool, len(componentNames))
	for _, n := range componentNames {
		names[n] = true
	}
	return &LibraryAliasRegistry{componentNames: names, declared: map[string]string{}}
}

// Register symlinks <lib>/<aliasFilename> -> <worktree>/lib/<realFilename>
// on behalf of owningComponent, after validating the two uniqueness rules.
func (r *LibraryAliasRegistry) Register(dirs workdir.Dirs, owningComponent, aliasFilename, realFilename, worktree string) error {
	for name := range r.componentNames {
		if name == owningComponent {
			continue
		}
		if strings.HasPrefix(aliasFilename, name) {
			return cerrors.LibraryAlias("library alias %q declared by component %q begins with component name %q", aliasFilename, owningComponent, name)
		}
	}
	if existing, ok := r.declared[aliasFilename]; ok && existing != owningComponent {
		return cerrors.LibraryAlias("library alias %q is declared by both %q and %q", aliasFilename, existing, owningComponent)
	}
	r.declared[aliasFilename] = owningComponent

	source := filepath.Join(worktree, "lib", realFilename)
	target := filepath.Join(dirs.LibDir(), aliasFilename)
	if err := symlinkReplacing(source, target); err != nil {
		return cerrors.LibraryAlias("linking library alias %q: %v", aliasFilename, err)
	}
	return nil
}

// LibraryAliases reads a component's `_metadata.library_aliases` map
// (alias filename -> real library filename) from its defaults class file.
func LibraryAliases(worktree string) (map[string]string, error) {
	data, err := os.ReadFile(componentDefaultsSource(worktree))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing defaults for %s: %w", worktree, err)
	}
	params, _ := raw["parameters"].(map[string]interface{})
	v := value.FromRaw(params)
	node, err := v.GetMapAt("_metadata.library_aliases")
	if err != nil {
		return nil, nil
	}
	out := map[string]string{}
	for _, k := range node.Keys() {
		s, err := node.GetStringAt(k)
		if err != nil {
			continue
		}
		out[k] = s
	}
	return out, nil
}
