package gitdep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/logger"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
)

// RefError is raised when a requested version resolves as neither a remote
// branch, a tag, nor an arbitrary revision (spec.md §4.A step 5).
type RefError struct {
	URL     string
	Version string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("could not resolve %q as a branch, tag, or revision of %s", e.Version, e.URL)
}

// Checkout materialises a worktree for name/kind at targetDir against md's
// bare clone, applying the worktree policy of spec.md §4.A:
//
//  1. missing path            -> create
//  2. non-worktree checkout   -> migrate if clean, else fail
//  3. worktree of other URL   -> replace if clean, else fail
//  4. worktree of same URL    -> switch to version
//  5. version resolution order: branch, then tag, then arbitrary revision
func Checkout(ctx context.Context, tools toolprovider.Provider, md *MultiDependency, targetDir, version string, force bool) error {
	log := logger.Get()

	if version == "" {
		version = DefaultBranch(md)
	}

	state, err := inspectTarget(targetDir)
	if err != nil {
		return cerrors.Dependency(err, "inspecting worktree target %s", targetDir)
	}
	state = reinspectAgainst(state, md)

	switch state.kind {
	case targetMissing:
		log.Debugf("Creating worktree %s at %s (%s)", targetDir, md.URL, version)
		return addWorktree(ctx, tools, md, targetDir, version)

	case targetPlainCheckout:
		return migratePlainCheckout(ctx, tools, md, targetDir, version, force)

	case targetWorktreeOtherRemote:
		if !force {
			clean, cerr := isClean(targetDir)
			if cerr != nil {
				return cerrors.Dependency(cerr, "checking worktree cleanliness for %s", targetDir)
			}
			if !clean {
				return cerrors.Dependency(nil, "worktree %s has uncommitted changes and points at a different remote (%s, want %s); refusing to replace without force", targetDir, state.remoteURL, md.URL)
			}
		}
		log.Debugf("Replacing worktree %s: %s -> %s", targetDir, state.remoteURL, md.URL)
		if err := removeWorktree(ctx, tools, state.barePath, targetDir); err != nil {
			return err
		}
		return addWorktree(ctx, tools, md, targetDir, version)

	case targetWorktreeSameRemote:
		return switchWorktree(ctx, targetDir, version, force)

	default:
		return cerrors.Dependency(nil, "unrecognised worktree state for %s", targetDir)
	}
}

type targetKind int

const (
	targetMissing targetKind = iota
	targetPlainCheckout
	targetWorktreeOtherRemote
	targetWorktreeSameRemote
)

type targetState struct {
	kind      targetKind
	remoteURL string
	barePath  string
}

func inspectTarget(targetDir string) (targetState, error) {
	info, err := os.Stat(targetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return targetState{kind: targetMissing}, nil
		}
		return targetState{}, err
	}
	if !info.IsDir() {
		return targetState{}, fmt.Errorf("%s exists and is not a directory", targetDir)
	}

	dotGit := filepath.Join(targetDir, ".git")
	gitInfo, err := os.Stat(dotGit)
	if err != nil {
		return targetState{}, fmt.Errorf("%s is not a git checkout: %w", targetDir, err)
	}

	if gitInfo.IsDir() {
		return targetState{kind: targetPlainCheckout}, nil
	}

	// A worktree checkout has a ".git" *file* pointing at "gitdir: <bare>/worktrees/<name>".
	contents, err := os.ReadFile(dotGit)
	if err != nil {
		return targetState{}, err
	}
	line := strings.TrimSpace(string(contents))
	gitDir := strings.TrimPrefix(line, "gitdir:")
	gitDir = strings.TrimSpace(gitDir)

	barePath := barePathFromWorktreeGitDir(gitDir)
	remoteURL := remoteURLOfBare(barePath)

	return targetState{kind: targetWorktreeOtherRemote, remoteURL: remoteURL, barePath: barePath}, nil
}

// barePathFromWorktreeGitDir derives <bare> from "<bare>/worktrees/<name>".
func barePathFromWorktreeGitDir(gitDir string) string {
	idx := strings.Index(gitDir, string(filepath.Separator)+"worktrees"+string(filepath.Separator))
	if idx == -1 {
		return gitDir
	}
	return gitDir[:idx]
}

func remoteURLOfBare(barePath string) string {
	repo, err := git.PlainOpen(barePath)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
		return Normalise(cfg.URLs[0])
	}
	return ""
}

// reinspectAgainst reclassifies a targetWorktreeOtherRemote state as
// targetWorktreeSameRemote when its remote matches md's URL.
func reinspectAgainst(state targetState, md *MultiDependency) targetState {
	if state.kind == targetWorktreeOtherRemote && state.remoteURL == md.URL {
		state.kind = targetWorktreeSameRemote
	}
	return state
}

func addWorktree(ctx context.Context, tools toolprovider.Provider, md *MultiDependency, targetDir, version string) error {
	if err := os.MkdirAll(filepath.Dir(targetDir), 0o755); err != nil {
		return cerrors.Dependency(err, "creating parent directory for worktree %s", targetDir)
	}
	ref, err := resolveVersion(md, version)
	if err != nil {
		return err
	}
	_, err = tools.Run(ctx, "git", md.BarePath, "worktree", "add", "-f", targetDir, ref)
	if err != nil {
		return cerrors.Dependency(err, "git worktree add %s %s", targetDir, ref)
	}
	return nil
}

func removeWorktree(ctx context.Context, tools toolprovider.Provider, barePath, targetDir string) error {
	_, err := tools.Run(ctx, "git", barePath, "worktree", "remove", "--force", targetDir)
	if err != nil {
		// The worktree metadata may already be stale; fall back to a plain
		// directory removal plus a prune, matching real git's tolerance.
		if rmErr := os.RemoveAll(targetDir); rmErr != nil {
			return cerrors.Dependency(rmErr, "removing stale worktree directory %s", targetDir)
		}
		_, _ = tools.Run(ctx, "git", barePath, "worktree", "prune")
	}
	return nil
}

func switchWorktree(ctx context.Context, targetDir, version string, force bool) error {
	if !force {
		clean, err := isClean(targetDir)
		if err != nil {
			return cerrors.Dependency(err, "checking worktree cleanliness for %s", targetDir)
		}
		if !clean {
			return cerrors.Dependency(nil, "worktree %s has uncommitted changes; refusing to switch without force", targetDir)
		}
	}

	repo, err := git.PlainOpen(targetDir)
	if err != nil {
		return cerrors.Dependency(err, "opening worktree %s", targetDir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return cerrors.Dependency(err, "getting go-git worktree handle for %s", targetDir)
	}

	hash, err := resolveRevision(repo, version)
	if err != nil {
		return err
	}

	opts := &git.CheckoutOptions{Hash: *hash, Force: force}
	if branchRef, ok := branchReference(repo, version); ok {
		opts.Branch = branchRef
		opts.Hash = plumbing.Hash{}
		opts.Create = false
	}
	if err := wt.Checkout(opts); err != nil {
		return cerrors.Dependency(err, "checking out %s in worktree %s", version, targetDir)
	}
	return nil
}

func branchReference(repo *git.Repository, name string) (plumbing.ReferenceName, bool) {
	ref := plumbing.NewBranchReferenceName(name)
	if _, err := repo.Reference(ref, true); err == nil {
		return ref, true
	}
	return "", false
}

// resolveVersion resolves version against md's bare repo for use as a
// `git worktree add` ref argument, following the branch -> tag -> revision
// order of spec.md §4.A step 5. It does not need to return a hash since
// `git worktree add` accepts any of those ref forms directly; it exists to
// surface RefError early instead of deferring to the external git command.
func resolveVersion(md *MultiDependency, version string) (string, error) {
	repo, err := git.PlainOpen(md.BarePath)
	if err != nil {
		return "", cerrors.Dependency(err, "opening bare repo %s", md.BarePath)
	}
	if _, err := resolveRevision(repo, version); err != nil {
		return "", err
	}
	return version, nil
}

// resolveRevision resolves version to a concrete commit hash, trying (in
// order) a remote branch, a tag, then an arbitrary revision expression.
func resolveRevision(repo *git.Repository, version string) (*plumbing.Hash, error) {
	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", version), true); err == nil {
		h := ref.Hash()
		return &h, nil
	}
	if ref, err := repo.Reference(plumbing.NewTagReferenceName(version), true); err == nil {
		h := ref.Hash()
		return &h, nil
	}
	if h, err := repo.ResolveRevision(plumbing.Revision(version)); err == nil {
		return h, nil
	}
	return nil, &RefError{URL: repoURL(repo), Version: version}
}

func repoURL(repo *git.Repository) string {
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	if cfg := remote.Config(); cfg != nil && len(cfg.URLs) > 0 {
		return cfg.URLs[0]
	}
	return ""
}

func migratePlainCheckout(ctx context.Context, tools toolprovider.Provider, md *MultiDependency, targetDir, version string, force bool) error {
	clean, err := isClean(targetDir)
	if err != nil {
		return cerrors.Dependency(err, "checking cleanliness of plain checkout %s", targetDir)
	}
	hasLocalOnlyBranches, err := hasUnpushedLocalBranches(targetDir)
	if err != nil {
		return cerrors.Dependency(err, "checking local branches of plain checkout %s", targetDir)
	}
	if !force && (!clean || hasLocalOnlyBranches) {
		return cerrors.Dependency(nil, "plain checkout %s has uncommitted changes or local-only branches and cannot be migrated to a worktree without force", targetDir)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return cerrors.Dependency(err, "removing plain checkout %s for migration", targetDir)
	}
	return addWorktree(ctx, tools, md, targetDir, version)
}

func hasUnpushedLocalBranches(dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, err
	}
	localBranches, err := repo.Branches()
	if err != nil {
		return false, err
	}
	remoteBranches := map[string]bool{}
	refs, err := repo.References()
	if err != nil {
		return false, err
	}
	_ = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsRemote() {
			remoteBranches[ref.Name().Short()] = true
		}
		return nil
	})

	found := false
	_ = localBranches.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !remoteBranches["origin/"+name] {
			found = true
		}
		return nil
	})
	return found, nil
}

func isClean(dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	return status.IsClean(), nil
}
