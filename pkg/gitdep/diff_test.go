package gitdep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDiffNoChange(t *testing.T) {
	diff, changed := DefaultDiff("a.yaml", []byte("same\n"), []byte("same\n"))
	assert.False(t, changed)
	assert.Empty(t, diff)
}

func TestDefaultDiffRendersUnifiedHeader(t *testing.T) {
	diff, changed := DefaultDiff("a.yaml", []byte("old\n"), []byte("new\n"))
	assert.True(t, changed)
	assert.Contains(t, diff, "--- a/a.yaml")
	assert.Contains(t, diff, "+++ b/a.yaml")
}

func setupCatalogRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	manifestDir := filepath.Join(dir, "manifests")
	require.NoError(t, os.MkdirAll(manifestDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(manifestDir, "a.yaml"), []byte("kind: A\n"), 0o644))
	_, err = wt.Add("manifests/a.yaml")
	require.NoError(t, err)

	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()}
	_, err = wt.Commit("initial", &git.CommitOptions{Author: sig})
	require.NoError(t, err)

	return dir
}

func TestStageAllDetectsModification(t *testing.T) {
	dir := setupCatalogRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifests", "a.yaml"), []byte("kind: A\nspec: changed\n"), 0o644))

	result, err := StageAll(dir, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Contains(t, result.Diff, "manifests/a.yaml")
}

func TestStageAllDetectsAddition(t *testing.T) {
	dir := setupCatalogRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifests", "b.yaml"), []byte("kind: B\n"), 0o644))

	result, err := StageAll(dir, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Contains(t, result.Diff, "b.yaml")
}

func TestStageAllNoChangesIsQuiet(t *testing.T) {
	dir := setupCatalogRepo(t)

	result, err := StageAll(dir, nil, nil)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Empty(t, result.Diff)
}

func TestStageAllRespectsIgnore(t *testing.T) {
	dir := setupCatalogRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifests", "b.yaml"), []byte("kind: B\n"), 0o644))

	result, err := StageAll(dir, nil, func(path string) bool { return path == "manifests/b.yaml" })
	require.NoError(t, err)
	assert.False(t, result.Changed)
}
