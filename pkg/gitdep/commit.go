package gitdep

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

// DefaultAuthorName/Email is the fallback identity used when neither
// Commodore's own configuration nor the local Git config supplies one
// (spec.md §4.A "commit").
const (
	DefaultAuthorName  = "Commodore"
	DefaultAuthorEmail = "commodore@syn.tools"
)

// AuthorIdentity resolves the commit author: configured values take
// precedence, then the repository's own user.name/user.email, then the
// Commodore constant as a last resort.
type AuthorIdentity struct {
	Name  string
	Email string
}

func ResolveAuthorIdentity(configured AuthorIdentity, repo *git.Repository) AuthorIdentity {
	if configured.Name != "" && configured.Email != "" {
		return configured
	}
	if repo != nil {
		if cfg, err := repo.Config(); err == nil {
			name := cfg.User.Name
			email := cfg.User.Email
			if configured.Name != "" {
				name = configured.Name
			}
			if configured.Email != "" {
				email = configured.Email
			}
			if name != "" && email != "" {
				return AuthorIdentity{Name: name, Email: email}
			}
		}
	}
	name := configured.Name
	if name == "" {
		name = DefaultAuthorName
	}
	email := configured.Email
	if email == "" {
		email = DefaultAuthorEmail
	}
	return AuthorIdentity{Name: name, Email: email}
}

// Commit commits the currently staged index in dir with message, optionally
// amending the previous commit (spec.md §4.A "commit").
func Commit(dir, message string, author AuthorIdentity, amend bool) (plumbingHash string, err error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", cerrors.Dependency(err, "opening repo %s", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", cerrors.Dependency(err, "getting worktree handle for %s", dir)
	}
	identity := ResolveAuthorIdentity(author, repo)
	sig := &object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
		Amend:     amend,
	})
	if err != nil {
		return "", cerrors.Dependency(err, "committing in %s", dir)
	}
	return hash.String(), nil
}

// shortSHALen is the number of leading hex characters Commodore's catalog
// commit message uses to identify a component/config repo's checked-out
// commit (spec.md §4.H step 5, "<sha6>").
const shortSHALen = 6

// HeadShortSHA opens dir and returns its HEAD commit's hash truncated to
// shortSHALen characters, for embedding in the catalog commit message. An
// empty string is returned (no error) if dir isn't a Git repository yet,
// e.g. a component worktree that failed to fetch in --local mode.
func HeadShortSHA(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return "", nil
		}
		return "", cerrors.Dependency(err, "opening repo %s", dir)
	}
	head, err := repo.Head()
	if err != nil {
		return "", cerrors.Dependency(err, "resolving HEAD in %s", dir)
	}
	sha := head.Hash().String()
	if len(sha) > shortSHALen {
		sha = sha[:shortSHALen]
	}
	return sha, nil
}

// Push pushes remoteName's current branch, propagating a PushRejected
// error carrying the remote's own summary on rejection (spec.md §4.H
// push policy, §7 PushRejected).
func Push(ctx context.Context, dir, remoteName string, auth transport.AuthMethod) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return cerrors.Dependency(err, "opening repo %s", dir)
	}
	if remoteName == "" {
		remoteName = "origin"
	}
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		Auth:       auth,
	})
	if err == nil || err == git.NoErrAlreadyUpToDate {
		return nil
	}
	return cerrors.PushRejected(err.Error())
}

// BasicAuth builds an http.BasicAuth transport.AuthMethod for token-based
// Git HTTPS authentication, the common case for catalog/tenant/global repo
// remotes fronted by the cluster registry's own Git hosting.
func BasicAuth(username, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: username, Password: token}
}

// CloneOrOpen clones targetDir from remoteURL if absent, or opens it if
// already present (spec.md §4.H step 1 "Clone (or re-use) the cluster
// catalog repository").
func CloneOrOpen(ctx context.Context, targetDir, remoteURL string, auth transport.AuthMethod) (*git.Repository, error) {
	repo, err := git.PlainOpen(targetDir)
	if err == nil {
		return repo, nil
	}
	if err != git.ErrRepositoryNotExists {
		return nil, cerrors.Dependency(err, "opening %s", targetDir)
	}
	repo, err = git.PlainCloneContext(ctx, targetDir, false, &git.CloneOptions{
		URL:  remoteURL,
		Auth: auth,
	})
	if err != nil && err != transport.ErrEmptyRemoteRepository {
		return nil, cerrors.Dependency(err, "cloning %s", remoteURL)
	}
	if err == transport.ErrEmptyRemoteRepository {
		repo, err = git.PlainInit(targetDir, false)
		if err != nil {
			return nil, cerrors.Dependency(err, "initialising empty catalog repo %s", targetDir)
		}
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{remoteURL}})
		if err != nil {
			return nil, cerrors.Dependency(err, "adding origin remote to %s", targetDir)
		}
	}
	return repo, nil
}
