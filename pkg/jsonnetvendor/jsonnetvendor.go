// Package jsonnetvendor implements the jsonnet library vendoring step of
// the local-mode Compilation Pipeline variant (spec.md §4.D,
// SPEC_FULL.md §14.2): it writes a `jsonnetfile.json` declaring one local
// dependency per known component directory plus the shared lib directory,
// then shells out to the `jb` (jsonnet-bundler) binary to materialise
// `<work>/vendor/`.
package jsonnetvendor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

// jbBinary is the jsonnet-bundler executable resolved via toolprovider.
const jbBinary = "jb"

// localSource is jsonnetfile.json's {source: {local: {directory}}} shape.
type localSource struct {
	Source struct {
		Local struct {
			Directory string `json:"directory"`
		} `json:"local"`
	} `json:"source"`
}

type jsonnetFile struct {
	Version       int           `json:"version"`
	Dependencies  []localSource `json:"dependencies"`
	LegacyImports bool          `json:"legacyImports"`
}

func newLocalSource(directory string) localSource {
	var ls localSource
	ls.Source.Local.Directory = directory
	return ls
}

// BuildDependencies returns one local-source entry per component worktree
// (keyed by alias, in the caller-provided order) plus the shared lib
// directory, with paths relative to root — mirroring the reference
// implementation's jsonnet_dependencies().
func BuildDependencies(dirs workdir.Dirs, aliases []string) ([]localSource, error) {
	deps := make([]localSource, 0, len(aliases)+1)
	for _, alias := range aliases {
		rel, err := filepath.Rel(dirs.Root, dirs.ComponentWorktree(alias))
		if err != nil {
			return nil, cerrors.Dependency(err, "computing relative path for component %q", alias)
		}
		deps = append(deps, newLocalSource(rel))
	}
	libRel, err := filepath.Rel(dirs.Root, dirs.LibDir())
	if err != nil {
		return nil, cerrors.Dependency(err, "computing relative path for lib directory")
	}
	deps = append(deps, newLocalSource(libRel))
	return deps, nil
}

// WriteJsonnetFile renders jsonnetfile.json under dirs.Root from deps.
func WriteJsonnetFile(dirs workdir.Dirs, deps []localSource) error {
	doc := jsonnetFile{Version: 1, Dependencies: deps, LegacyImports: true}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return cerrors.Dependency(err, "rendering jsonnetfile.json")
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(dirs.Root, "jsonnetfile.json"), data, 0o644)
}

// Fetch runs `jb install` against dirs.Root, clearing any stale lock file
// first so a previous compile's bundler state never leaks into this one.
// It is a no-op if jsonnetfile.json does not exist, matching the
// reference implementation's "skip if nothing to install" behaviour.
func Fetch(ctx context.Context, tools toolprovider.Provider, dirs workdir.Dirs) error {
	jsonnetFilePath := filepath.Join(dirs.Root, "jsonnetfile.json")
	if _, err := os.Stat(jsonnetFilePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return cerrors.Dependency(err, "checking for jsonnetfile.json")
	}

	lockFile := filepath.Join(dirs.Root, "jsonnetfile.lock.json")
	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return cerrors.Dependency(err, "removing stale jsonnetfile.lock.json")
	}

	if _, err := tools.Run(ctx, jbBinary, dirs.Root, "install"); err != nil {
		return cerrors.Dependency(err, "jb install")
	}
	return nil
}

// VendorDependencies writes jsonnetfile.json for aliases and runs jb
// install, the full sequence of SPEC_FULL.md §14.2's local-mode step.
func VendorDependencies(ctx context.Context, tools toolprovider.Provider, dirs workdir.Dirs, aliases []string) error {
	deps, err := BuildDependencies(dirs, aliases)
	if err != nil {
		return err
	}
	if err := WriteJsonnetFile(dirs, deps); err != nil {
		return err
	}
	return Fetch(ctx, tools, dirs)
}
