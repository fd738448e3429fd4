package gitdep

import (
	"context"
	"errors"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/logger"
)

// EnsureBareFetch guarantees the MultiDependency's shared bare clone exists
// and has been fetched (--tags --prune) at most once per compile, per
// spec.md §4.A/§5 ("A dependency's bare clone is fetched at most once per
// compile before any of its worktrees is created").
func EnsureBareFetch(ctx context.Context, md *MultiDependency) error {
	if md.alreadyFetched() {
		return nil
	}

	repo, err := openOrInitBare(md.BarePath, md.URL)
	if err != nil {
		return cerrors.Dependency(err, "opening bare clone for %s", md.URL)
	}

	log := logger.Get()
	log.Debugf("Fetching %s into %s", md.URL, md.BarePath)

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		RefSpecs: []config.RefSpec{
			"+refs/heads/*:refs/heads/*",
			"+refs/tags/*:refs/tags/*",
		},
		Tags:  git.AllTags,
		Prune: true,
		Force: true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return cerrors.Dependency(err, "fetching %s", md.URL)
	}

	if err := resolveDefaultBranch(repo); err != nil {
		log.Warnf("Could not resolve remote HEAD for %s, defaulting to master: %v", md.URL, err)
	}

	md.markFetched()
	return nil
}

func openOrInitBare(barePath, remoteURL string) (*git.Repository, error) {
	repo, err := git.PlainOpen(barePath)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, err
	}

	if err := os.MkdirAll(barePath, 0o755); err != nil {
		return nil, err
	}
	repo, err = git.PlainInit(barePath, true)
	if err != nil {
		return nil, err
	}
	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteURL},
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// resolveDefaultBranch mirrors `git remote set-head origin --auto`: it asks
// the remote for HEAD and records it as refs/remotes/origin/HEAD, falling
// back to "master" per spec.md §4.A if the remote refuses to advertise HEAD.
func resolveDefaultBranch(repo *git.Repository) error {
	remote, err := repo.Remote("origin")
	if err != nil {
		return err
	}
	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD {
			target := ref.Target()
			return repo.Storer.SetReference(plumbing.NewSymbolicReference(
				plumbing.NewRemoteHEADReferenceName("origin"), target))
		}
	}
	// Remote did not advertise a symbolic HEAD; fall back to "master".
	return repo.Storer.SetReference(plumbing.NewSymbolicReference(
		plumbing.NewRemoteHEADReferenceName("origin"),
		plumbing.NewBranchReferenceName("master")))
}

// DefaultBranch returns the resolved default branch name for the bare repo
// backing md, falling back to "master" per spec.md §4.A step 5.
func DefaultBranch(md *MultiDependency) string {
	repo, err := git.PlainOpen(md.BarePath)
	if err != nil {
		return "master"
	}
	ref, err := repo.Reference(plumbing.NewRemoteHEADReferenceName("origin"), true)
	if err != nil {
		return "master"
	}
	return ref.Name().Short()
}
