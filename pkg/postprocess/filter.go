// Package postprocess implements the Postprocess Filter Runner (spec.md
// §4.F): built-in and jsonnet filters applied to compiled manifests, with a
// validation pass that runs before any filter executes.
package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/logger"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
	"github.com/projectsyn/commodore-go/pkg/value"
)

// Type distinguishes a filter's implementation kind.
type Type string

const (
	TypeBuiltin Type = "builtin"
	TypeJsonnet Type = "jsonnet"
)

// Filter is one entry of parameters.commodore.postprocess.filters (spec.md
// §4.F).
type Filter struct {
	Path       string
	Type       Type
	FilterName string
	FilterArgs value.Value
	Enabled    bool
}

// ParseFilters reads parameters.commodore.postprocess.filters from a
// target's evaluated parameters, resolving `enabled` (a literal bool or an
// inventory reference resolved against the same parameters).
func ParseFilters(params value.Value) ([]Filter, error) {
	entries, err := params.GetListAt("commodore.postprocess.filters")
	if err != nil {
		if _, ok := err.(*value.NotFoundError); ok {
			return nil, nil
		}
		return nil, cerrors.Postprocess("reading postprocess filters: %v", err)
	}

	filters := make([]Filter, 0, len(entries))
	for i, entry := range entries {
		if !entry.IsMap() {
			return nil, cerrors.Postprocess("postprocess filter #%d is not a map", i)
		}
		path, err := entry.GetStringAt("path")
		if err != nil {
			return nil, cerrors.Postprocess("postprocess filter #%d: missing path", i)
		}
		typ, err := entry.GetStringAt("type")
		if err != nil {
			return nil, cerrors.Postprocess("postprocess filter #%d: missing type", i)
		}
		filterName, err := entry.GetStringAt("filter")
		if err != nil {
			return nil, cerrors.Postprocess("postprocess filter #%d: missing filter", i)
		}
		filterArgs, _ := entry.GetMapAt("filterargs")

		enabled, err := resolveEnabled(entry, params)
		if err != nil {
			return nil, err
		}

		filters = append(filters, Filter{
			Path:       path,
			Type:       Type(typ),
			FilterName: filterName,
			FilterArgs: filterArgs,
			Enabled:    enabled,
		})
	}
	return filters, nil
}

// resolveEnabled reads `enabled` off a filter entry: a literal bool is used
// directly; a string is treated as a dotted-key reference resolved against
// the target's parameters; absence defaults to true.
func resolveEnabled(entry, params value.Value) (bool, error) {
	node, err := entry.At("enabled")
	if err != nil {
		if _, ok := err.(*value.NotFoundError); ok {
			return true, nil
		}
		return false, cerrors.Postprocess("resolving enabled: %v", err)
	}
	if node.IsString() {
		ref := node.AsString()
		resolved, err := params.GetBoolAt(ref)
		if err != nil {
			return false, cerrors.Postprocess("resolving enabled reference %q: %v", ref, err)
		}
		return resolved, nil
	}
	b, err := entry.GetBoolAt("enabled")
	if err != nil {
		return false, cerrors.Postprocess("enabled is neither bool nor string reference: %v", err)
	}
	return b, nil
}

// Validate runs spec.md §4.F's validation pass before any filter executes:
// unknown built-in names, missing jsonnet scripts, and output paths that
// escape the target's compiled tree are all rejected up front.
func Validate(filters []Filter, registry *Registry, compiledDir, componentWorktree string) error {
	for _, f := range filters {
		if !f.Enabled {
			continue
		}
		if err := validateOutputPath(compiledDir, f.Path); err != nil {
			return err
		}
		switch f.Type {
		case TypeBuiltin:
			if _, ok := registry.Builtin(f.FilterName); !ok {
				return cerrors.Postprocess("unknown built-in filter %q", f.FilterName)
			}
		case TypeJsonnet:
			script := filepath.Join(componentWorktree, f.FilterName)
			if _, err := os.Stat(script); err != nil {
				return cerrors.Postprocess("jsonnet filter script %q not found in %s", f.FilterName, componentWorktree)
			}
		default:
			return cerrors.Postprocess("unknown filter type %q", f.Type)
		}
	}
	return nil
}

func validateOutputPath(compiledDir, relPath string) error {
	full := filepath.Join(compiledDir, relPath)
	rel, err := filepath.Rel(compiledDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return cerrors.Postprocess("filter output path %q escapes the compiled target tree", relPath)
	}
	return nil
}

// Run executes every enabled filter against compiledDir, in order. Disabled
// filters are skipped with an informational log line (spec.md §4.F).
func Run(ctx context.Context, filters []Filter, registry *Registry, tools toolprovider.Provider, compiledDir, componentWorktree string, vars map[string]string) error {
	log := logger.Get()
	for _, f := range filters {
		if !f.Enabled {
			log.Infof("Skipping disabled postprocess filter %s (%s)", f.FilterName, f.Path)
			continue
		}
		outputPath := filepath.Join(compiledDir, f.Path)

		switch f.Type {
		case TypeBuiltin:
			fn, ok := registry.Builtin(f.FilterName)
			if !ok {
				return cerrors.Postprocess("unknown built-in filter %q", f.FilterName)
			}
			if err := fn(outputPath, f.FilterArgs); err != nil {
				return cerrors.Postprocess("running built-in filter %q: %v", f.FilterName, err)
			}
		case TypeJsonnet:
			if err := runJsonnetFilter(ctx, tools, componentWorktree, f, outputPath, vars); err != nil {
				return err
			}
		}
	}
	return nil
}
