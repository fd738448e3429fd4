package gitdep

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAuthorIdentityPrefersConfigured(t *testing.T) {
	got := ResolveAuthorIdentity(AuthorIdentity{Name: "Alice", Email: "alice@example.com"}, nil)
	assert.Equal(t, AuthorIdentity{Name: "Alice", Email: "alice@example.com"}, got)
}

func TestResolveAuthorIdentityFallsBackToDefault(t *testing.T) {
	got := ResolveAuthorIdentity(AuthorIdentity{}, nil)
	assert.Equal(t, AuthorIdentity{Name: DefaultAuthorName, Email: DefaultAuthorEmail}, got)
}

func TestResolveAuthorIdentityFallsBackToRepoConfig(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	cfg, err := repo.Config()
	require.NoError(t, err)
	cfg.User.Name = "Repo User"
	cfg.User.Email = "repo-user@example.com"
	require.NoError(t, repo.SetConfig(cfg))

	got := ResolveAuthorIdentity(AuthorIdentity{}, repo)
	assert.Equal(t, AuthorIdentity{Name: "Repo User", Email: "repo-user@example.com"}, got)
}

func TestCommitProducesHash(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi\n"), 0o644))
	_, err = wt.Add("a.txt")
	require.NoError(t, err)

	hash, err := Commit(dir, "first commit", AuthorIdentity{Name: "Test", Email: "test@example.com"}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, hash, head.Hash().String())
}

func TestCommitAmendReusesSingleCommit(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi\n"), 0o644))
	_, err = wt.Add("a.txt")
	require.NoError(t, err)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()}
	_, err = wt.Commit("first", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("bye\n"), 0o644))
	_, err = wt.Add("a.txt")
	require.NoError(t, err)

	_, err = Commit(dir, "amended", AuthorIdentity{Name: "Test", Email: "test@example.com"}, true)
	require.NoError(t, err)

	commitIter, err := repo.Log(&git.LogOptions{})
	require.NoError(t, err)
	count := 0
	_ = commitIter.ForEach(func(c *object.Commit) error {
		count++
		return nil
	})
	assert.Equal(t, 1, count, "amend must not grow the commit count")
}

func TestHeadShortSHAMatchesHeadHash(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi\n"), 0o644))
	_, err = wt.Add("a.txt")
	require.NoError(t, err)
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()}
	hash, err := wt.Commit("first", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	sha, err := HeadShortSHA(dir)
	require.NoError(t, err)
	assert.Len(t, sha, 6)
	assert.Equal(t, hash.String()[:6], sha)
}

func TestHeadShortSHANonexistentRepoReturnsEmpty(t *testing.T) {
	sha, err := HeadShortSHA(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, sha)
}

func TestCloneOrOpenInitialisesEmptyCatalog(t *testing.T) {
	emptyRemote := t.TempDir()
	_, err := git.PlainInit(emptyRemote, true)
	require.NoError(t, err)

	targetDir := filepath.Join(t.TempDir(), "catalog")
	repo, err := CloneOrOpen(context.Background(), targetDir, emptyRemote, nil)
	require.NoError(t, err)
	assert.NotNil(t, repo)
}
