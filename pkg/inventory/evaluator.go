// Package inventory implements the Inventory Resolver (spec.md §4.B): a
// thin adapter around a class-hierarchy evaluator that reads YAML class
// files under <work>/inventory/classes/ and target files under
// <work>/inventory/targets/, producing a fully-merged parameter tree per
// target.
package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/value"
)

// classFile is the on-disk shape of a class or target YAML file (spec.md §6
// "Target file format"): an ordered list of further classes to include, an
// `applications` list contributed by this class, and a parameter tree to
// merge on top of the classes it includes.
type classFile struct {
	Classes      []string               `yaml:"classes"`
	Applications []string               `yaml:"applications"`
	Parameters   map[string]interface{} `yaml:"parameters"`
}

// classPath maps a dotted class name ("components.argocd") to its file
// path under classesDir ("<classesDir>/components/argocd.yml"), the layout
// the Target/Class Generator writes (spec.md §4.E).
func classPath(classesDir, name string) string {
	parts := strings.Split(name, ".")
	parts[len(parts)-1] += ".yml"
	return filepath.Join(append([]string{classesDir}, parts...)...)
}

func loadClassFile(classesDir, name string) (*classFile, error) {
	path := classPath(classesDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ClassNotFoundError{Name: name, Path: path}
		}
		return nil, err
	}
	var cf classFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing class %s (%s): %w", name, path, err)
	}
	return &cf, nil
}

// ClassNotFoundError is raised when a class referenced from another class's
// or a target's `classes` list has no corresponding file on disk.
type ClassNotFoundError struct {
	Name string
	Path string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class %q not found (expected %s)", e.Name, e.Path)
}

// evaluate resolves rootClasses (depth-first, each class's own nested
// `classes` entries expanded before merging that class's own parameters),
// then merges rootParams on top, mirroring reclass's merge order: classes
// merge in list order with later entries overriding earlier ones, and a
// target's own literal parameters always have the final word. The returned
// Value is shaped {parameters: <merged params>, applications: <union of
// every visited class's own applications entries, in visit order>}, the two
// top-level inventory subtrees named in spec.md §3.
func evaluate(classesDir string, rootClasses []string, rootParams map[string]interface{}, ignoreClassNotFound bool) (value.Value, error) {
	paramsAcc := value.Map(nil)
	var appsAcc []string
	seenApp := map[string]bool{}
	visited := map[string]bool{}

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true

		cf, err := loadClassFile(classesDir, name)
		if err != nil {
			if _, ok := err.(*ClassNotFoundError); ok && ignoreClassNotFound {
				return nil
			}
			return err
		}
		for _, nested := range cf.Classes {
			if err := visit(nested); err != nil {
				return err
			}
		}
		for _, app := range cf.Applications {
			if !seenApp[app] {
				seenApp[app] = true
				appsAcc = append(appsAcc, app)
			}
		}
		paramsAcc = value.Merge(paramsAcc, value.FromRaw(cf.Parameters))
		return nil
	}

	for _, name := range rootClasses {
		if err := visit(name); err != nil {
			return value.Value{}, cerrors.Discovery("evaluating class %q: %v", name, err)
		}
	}

	paramsAcc = value.Merge(paramsAcc, value.FromRaw(rootParams))

	appValues := make([]value.Value, len(appsAcc))
	for i, a := range appsAcc {
		appValues[i] = value.String(a)
	}

	return value.Map(map[string]value.Value{
		"parameters":   paramsAcc,
		"applications": value.List(appValues),
	}), nil
}
