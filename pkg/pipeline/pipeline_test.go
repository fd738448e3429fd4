package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/discovery"
	"github.com/projectsyn/commodore-go/pkg/gitdep"
	"github.com/projectsyn/commodore-go/pkg/registry"
	"github.com/projectsyn/commodore-go/pkg/value"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

func TestWriteClassFileRendersReclassShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params", "cluster.yml")

	err := writeClassFile(path, nil, nil, map[string]interface{}{
		"cluster": map[string]interface{}{"name": "c-test"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		Classes      []string               `yaml:"classes"`
		Applications []string               `yaml:"applications"`
		Parameters   map[string]interface{} `yaml:"parameters"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Empty(t, doc.Classes)
	assert.Empty(t, doc.Applications)
	cluster, ok := doc.Parameters["cluster"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "c-test", cluster["name"])
}

func TestSortTasksOrdersByName(t *testing.T) {
	tasks := []gitdep.Task{
		{Name: "zeta"},
		{Name: "alpha"},
		{Name: "mu"},
	}
	sortTasks(tasks)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, []string{tasks[0].Name, tasks[1].Name, tasks[2].Name})
}

func TestResolveComponentsParsesAndBindsFromInventory(t *testing.T) {
	inv := value.FromRaw(map[string]interface{}{
		"applications": []interface{}{"argocd", "monitoring as mon"},
		"parameters": map[string]interface{}{
			"components": map[string]interface{}{
				"argocd": map[string]interface{}{
					"url":     "https://example.com/argocd.git",
					"version": "v1.0.0",
				},
				"monitoring": map[string]interface{}{
					"url":     "https://example.com/monitoring.git",
					"version": "v2.0.0",
				},
			},
		},
	})

	c := &Coordinator{}
	bound, disc, err := c.resolveComponents(inv)
	require.NoError(t, err)

	assert.Equal(t, []string{"argocd", "monitoring"}, disc.ComponentBases)
	require.Contains(t, bound.Aliases, "mon")
	assert.Equal(t, "monitoring", bound.Aliases["mon"].Base)
	assert.Equal(t, "v2.0.0", bound.Aliases["mon"].Spec.Version)
	assert.Equal(t, "v1.0.0", bound.Components["argocd"].Spec.Version)
}

func TestResolveComponentsRejectsMissingParameters(t *testing.T) {
	inv := value.FromRaw(map[string]interface{}{
		"applications": []interface{}{"argocd"},
	})

	c := &Coordinator{}
	_, _, err := c.resolveComponents(inv)
	require.Error(t, err)
}

func TestWritePerAliasTargetsSetsBaseDirToWorktreePath(t *testing.T) {
	dirs := workdir.New(t.TempDir())
	c := &Coordinator{Dirs: dirs}

	disc := &discovery.Result{
		ComponentBases: []string{"argocd"},
		AliasToBase:    map[string]string{"argocd": "argocd"},
		AliasOrder:     []string{"argocd"},
	}
	bound := &discovery.Bound{}

	require.NoError(t, c.writePerAliasTargets(disc, bound))

	data, err := os.ReadFile(dirs.TargetFile("argocd"))
	require.NoError(t, err)

	var doc struct {
		Parameters struct {
			BaseDirectory string `yaml:"_base_directory"`
		} `yaml:"parameters"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, dirs.ComponentWorktree("argocd"), doc.Parameters.BaseDirectory)
}

func TestConfigCommitsReadsGlobalAndTenantHeads(t *testing.T) {
	dirs := workdir.New(t.TempDir())
	c := &Coordinator{Dirs: dirs}

	commitAt := func(dir string) string {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		repo, err := git.PlainInit(dir, false)
		require.NoError(t, err)
		wt, err := repo.Worktree()
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("parameters: {}\n"), 0o644))
		_, err = wt.Add("a.yml")
		require.NoError(t, err)
		sig := &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()}
		hash, err := wt.Commit("first", &git.CommitOptions{Author: sig})
		require.NoError(t, err)
		return hash.String()[:6]
	}

	globalSHA := commitAt(dirs.GlobalClassesDir())
	tenantSHA := commitAt(dirs.TenantClassesDir("t-test"))

	commits, err := c.configCommits(&registry.Cluster{TenantID: "t-test"})
	require.NoError(t, err)
	assert.Equal(t, globalSHA, commits.GlobalSHA)
	assert.Equal(t, tenantSHA, commits.CustomerSHA)
}

func TestConfigCommitsLocalModeNoRepoReturnsEmpty(t *testing.T) {
	dirs := workdir.New(t.TempDir())
	c := &Coordinator{Dirs: dirs}

	commits, err := c.configCommits(&registry.Cluster{TenantID: "t-test"})
	require.NoError(t, err)
	assert.Empty(t, commits.GlobalSHA)
	assert.Empty(t, commits.CustomerSHA)
}
