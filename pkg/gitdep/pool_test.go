package gitdep

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectsyn/commodore-go/pkg/toolprovider"
)

func TestRunTasksMaterialisesWorktreesForSharedURL(t *testing.T) {
	seedDir := t.TempDir()
	initSeedRepo(t, seedDir)

	reposDir := filepath.Join(t.TempDir(), ".repos")
	mgr := NewManager(reposDir)
	tools := toolprovider.New()

	if _, err := tools.Path("git"); err != nil {
		t.Skip("git binary not available on PATH")
	}

	workDir := t.TempDir()
	target1 := filepath.Join(workDir, "alias-one")
	target2 := filepath.Join(workDir, "alias-two")

	tasks := []Task{
		{RawURL: seedDir, Name: "alias-one", Kind: KindComponent, TargetDir: target1, Version: "v1.0.0"},
		{RawURL: seedDir, Name: "alias-two", Kind: KindComponent, TargetDir: target2, Version: "v1.0.0"},
	}

	err := RunTasks(context.Background(), mgr, tools, tasks, 2)
	require.NoError(t, err)

	for _, dir := range []string{target1, target2} {
		_, err := os.Stat(filepath.Join(dir, "README.md"))
		assert.NoError(t, err, "expected worktree %s to contain checked-out files", dir)
	}

	md := mgr.GetOrCreate(seedDir)
	assert.True(t, md.alreadyFetched())
}

func TestRunTasksDefaultsPoolSize(t *testing.T) {
	mgr := NewManager(t.TempDir())
	tools := toolprovider.New()

	err := RunTasks(context.Background(), mgr, tools, nil, 0)
	assert.NoError(t, err)
}
