// Package toolprovider resolves the external binaries Commodore shells out
// to (git worktree support beyond go-git's capabilities, the manifest
// templater, helm, kustomize, and the jsonnet bundler jb) via PATH, per
// Design Note §9 of the specification ("Encapsulate as a ToolProvider
// capability"). Absence of a tool at the point it's actually needed is a
// well-defined exit code (127), never deferred past the invocation site.
package toolprovider

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

// Provider resolves and runs external tools. The default implementation
// shells out via os/exec; tests substitute a fake to avoid depending on the
// host's PATH.
type Provider interface {
	Path(tool string) (string, error)
	Run(ctx context.Context, tool string, dir string, args ...string) ([]byte, error)
}

type execProvider struct{}

func New() Provider { return execProvider{} }

func (execProvider) Path(tool string) (string, error) {
	p, err := exec.LookPath(tool)
	if err != nil {
		return "", cerrors.ToolMissing(tool)
	}
	return p, nil
}

func (p execProvider) Run(ctx context.Context, tool, dir string, args ...string) ([]byte, error) {
	binPath, err := p.Path(tool)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %v exited with error: %w", tool, args, err)
	}
	return out, nil
}
