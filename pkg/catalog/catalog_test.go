package catalog

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

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/gitdep"
)

func initCommittedRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v1\n"), 0o644))
	_, err = wt.Add("a.txt")
	require.NoError(t, err)
	sig := &object.Signature{Name: "Test", Email: "t@example.com", When: time.Now()}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig})
	require.NoError(t, err)
	return dir
}

func stageChange(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v2\n"), 0o644))
	_, err := gitdep.StageAll(dir, nil, nil)
	require.NoError(t, err)
}

func TestFinalizeLocalModeResetsIndex(t *testing.T) {
	dir := initCommittedRepo(t)
	stageChange(t, dir)

	err := Finalize(context.Background(), dir, PushPolicy{Local: true}, "msg", gitdep.AuthorIdentity{}, nil, nil)
	require.NoError(t, err)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	assert.Equal(t, git.Unmodified, status.File("a.txt").Staging)
}

func TestFinalizePushFalseLeavesStagedNoCommit(t *testing.T) {
	dir := initCommittedRepo(t)
	stageChange(t, dir)

	err := Finalize(context.Background(), dir, PushPolicy{Push: false}, "msg", gitdep.AuthorIdentity{}, nil, nil)
	require.NoError(t, err)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "initial", commit.Message)
}

func TestFinalizeInteractiveDeclineBehavesAsPushFalse(t *testing.T) {
	dir := initCommittedRepo(t)
	stageChange(t, dir)

	decline := func(question string) (bool, error) { return false, nil }
	err := Finalize(context.Background(), dir, PushPolicy{Push: true, Interactive: true}, "msg", gitdep.AuthorIdentity{}, nil, decline)
	require.NoError(t, err)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "initial", commit.Message)
}

func TestFinalizeInteractiveNoPrompterIsConfigError(t *testing.T) {
	dir := initCommittedRepo(t)
	stageChange(t, dir)

	err := Finalize(context.Background(), dir, PushPolicy{Push: true, Interactive: true}, "msg", gitdep.AuthorIdentity{}, nil, nil)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindConfig))
}

func TestFinalizePushTrueCommitsWithoutRemote(t *testing.T) {
	dir := initCommittedRepo(t)
	stageChange(t, dir)

	err := Finalize(context.Background(), dir, PushPolicy{Push: true}, "catalog update", gitdep.AuthorIdentity{Name: "Bot", Email: "bot@example.com"}, nil, nil)
	require.Error(t, err) // no remote configured, push fails, but commit should have happened

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "catalog update", commit.Message)
}
