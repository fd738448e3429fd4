// Package catalog implements the Catalog Writer (spec.md §4.H): it clones
// or reuses the cluster catalog repository, repopulates its manifests/
// subdirectory from a compile's output, stages the result with one of two
// diff functions, and applies the configured push policy.
package catalog

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/gitdep"
	"github.com/projectsyn/commodore-go/pkg/logger"
)

// Mode selects the diff function used while staging the catalog.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeK8sSemantic Mode = "k8s-semantic"
)

// DiffFuncFor resolves the gitdep.DiffFunc for a migration mode name.
func DiffFuncFor(mode Mode) gitdep.DiffFunc {
	if mode == ModeK8sSemantic {
		return K8sSemanticDiff
	}
	return gitdep.DefaultDiff
}

// PushPolicy captures the compile's push-related flags (spec.md §4.H
// step 6).
type PushPolicy struct {
	Local       bool
	Push        bool
	Interactive bool
}

// Prompter asks the user a yes/no question, used only when
// PushPolicy.Interactive is set.
type Prompter func(question string) (bool, error)

// Open clones (or re-uses) the catalog repository under dir (spec.md §4.H
// step 1).
func Open(ctx context.Context, dir, remoteURL string, auth transport.AuthMethod) (*git.Repository, error) {
	return gitdep.CloneOrOpen(ctx, dir, remoteURL, auth)
}

// Stage repopulates the catalog's manifests/ tree and stages the result
// using the diff function selected by mode (spec.md §4.H steps 2-4).
func Stage(dir, compiledDir string, aliases []string, mode Mode) (*gitdep.StageResult, error) {
	if err := ResetManifests(dir); err != nil {
		return nil, err
	}
	if err := PopulateManifests(dir, compiledDir, aliases); err != nil {
		return nil, err
	}
	return gitdep.StageAll(dir, DiffFuncFor(mode), nil)
}

// Finalize applies the push policy after staging (spec.md §4.H step 6):
//   - local mode resets the index and never pushes;
//   - push=false leaves the changes staged and logs a hint;
//   - push=true with interactive=true prompts first, falling back to the
//     push=false behaviour on a negative answer;
//   - push=true (non-interactive, confirmed) commits and pushes, surfacing
//     any remote rejection as a fatal cerrors.PushRejected.
func Finalize(ctx context.Context, dir string, policy PushPolicy, message string, author gitdep.AuthorIdentity, auth transport.AuthMethod, prompt Prompter) error {
	log := logger.Get()

	if policy.Local {
		return resetIndex(dir)
	}

	if !policy.Push {
		log.Infof("Catalog changes are staged but not committed. Re-run with --push to commit and push them.")
		return nil
	}

	if policy.Interactive {
		if prompt == nil {
			return cerrors.Config("interactive push requested without a prompt function")
		}
		ok, err := prompt("Push catalog changes to the remote?")
		if err != nil {
			return err
		}
		if !ok {
			log.Infof("Catalog changes are staged but not committed. Re-run with --push to commit and push them.")
			return nil
		}
	}

	if _, err := gitdep.Commit(dir, message, author, false); err != nil {
		return err
	}
	return gitdep.Push(ctx, dir, "origin", auth)
}

func resetIndex(dir string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return cerrors.Dependency(err, "opening catalog repo %s", dir)
	}
	if _, err := repo.Head(); err != nil {
		// No commits yet: nothing to reset to, so leave the index as-is.
		return nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return cerrors.Dependency(err, "getting worktree handle for %s", dir)
	}
	if err := wt.Reset(&git.ResetOptions{Mode: git.MixedReset}); err != nil {
		return cerrors.Dependency(err, "resetting index in %s", dir)
	}
	return nil
}
