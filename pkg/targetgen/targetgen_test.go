package targetgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

func makeComponentWorktree(t *testing.T, root, name, defaultsYAML string) string {
	t.Helper()
	wt := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(wt, "class"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(wt, "class", name+".yml"), []byte("parameters:\n  "+name+": {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(wt, "class", "defaults.yml"), []byte(defaultsYAML), 0o644))
	return wt
}

func TestWriteAliasClassesCreatesSymlinks(t *testing.T) {
	root := t.TempDir()
	dirs := workdir.New(root)
	wt := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters:\n  argocd: {}\n")

	require.NoError(t, WriteAliasClasses(dirs, "argocd-prod", "argocd", wt))

	classLink := filepath.Join(dirs.ComponentClassesDir(), "argocd-prod.yml")
	info, err := os.Lstat(classLink)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)

	target, err := os.Readlink(classLink)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wt, "class", "argocd.yml"), target)
}

func TestWriteAliasClassesReplacesExistingSymlink(t *testing.T) {
	root := t.TempDir()
	dirs := workdir.New(root)
	wt1 := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters: {}\n")
	wt2 := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters: {}\n")

	require.NoError(t, WriteAliasClasses(dirs, "argocd-prod", "argocd", wt1))
	require.NoError(t, WriteAliasClasses(dirs, "argocd-prod", "argocd", wt2))

	classLink := filepath.Join(dirs.ComponentClassesDir(), "argocd-prod.yml")
	target, err := os.Readlink(classLink)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wt2, "class", "argocd.yml"), target)
}

func TestReadMultiInstanceTrue(t *testing.T) {
	wt := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters:\n  _metadata:\n    multi_instance: true\n")
	mi, err := ReadMultiInstance(wt)
	require.NoError(t, err)
	assert.True(t, mi)
}

func TestReadMultiInstanceDefaultsFalse(t *testing.T) {
	wt := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters: {}\n")
	mi, err := ReadMultiInstance(wt)
	require.NoError(t, err)
	assert.False(t, mi)
}

func TestCheckInstantiationRejectsNonMultiInstanceAlias(t *testing.T) {
	err := CheckInstantiation("test-component", "test-instance", false, false)
	require.Error(t, err)
	assert.Equal(t, "InstantiationError: Component test-component with alias test-instance does not support instantiation.", err.Error())
}

func TestCheckInstantiationAllowsIdentity(t *testing.T) {
	assert.NoError(t, CheckInstantiation("argocd", "argocd", true, false))
}

func TestCheckInstantiationAllowsMultiInstance(t *testing.T) {
	assert.NoError(t, CheckInstantiation("test-component", "test-instance", false, true))
}

func TestWriteTargetFile(t *testing.T) {
	dirs := workdir.New(t.TempDir())
	target := model.Target{
		Name:     "test-instance",
		Classes:  model.ClassList("test-instance", "test-component"),
		Instance: "test-instance",
		BaseDir:  "/work/dependencies/test-instance",
	}
	require.NoError(t, WriteTargetFile(dirs, target))

	data, err := os.ReadFile(dirs.TargetFile("test-instance"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "_instance: test-instance")
}

func TestLibraryAliasRegistryRejectsComponentPrefixCollision(t *testing.T) {
	reg := NewLibraryAliasRegistry([]string{"argocd", "metrics-server"})
	dirs := workdir.New(t.TempDir())
	wt := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters: {}\n")

	err := reg.Register(dirs, "argocd", "metrics-server-extra.libsonnet", "real.libsonnet", wt)
	require.Error(t, err)
}

func TestLibraryAliasRegistryRejectsDuplicateDeclaration(t *testing.T) {
	reg := NewLibraryAliasRegistry([]string{"argocd", "other"})
	dirs := workdir.New(t.TempDir())
	wt1 := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters: {}\n")
	wt2 := makeComponentWorktree(t, t.TempDir(), "other", "parameters: {}\n")

	require.NoError(t, reg.Register(dirs, "argocd", "shared.libsonnet", "real.libsonnet", wt1))
	err := reg.Register(dirs, "other", "shared.libsonnet", "real.libsonnet", wt2)
	require.Error(t, err)
}

func TestLibraryAliasRegistryAllowsReregisteringSameComponent(t *testing.T) {
	reg := NewLibraryAliasRegistry([]string{"argocd"})
	dirs := workdir.New(t.TempDir())
	wt := makeComponentWorktree(t, t.TempDir(), "argocd", "parameters: {}\n")

	require.NoError(t, reg.Register(dirs, "argocd", "shared.libsonnet", "real.libsonnet", wt))
	require.NoError(t, reg.Register(dirs, "argocd", "shared.libsonnet", "real.libsonnet", wt))
}
