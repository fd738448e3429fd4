package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

func writeClass(t *testing.T, classesDir, name, content string) {
	t.Helper()
	path := classPath(classesDir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEvaluateMergesClassesInOrder(t *testing.T) {
	classesDir := t.TempDir()
	writeClass(t, classesDir, "global.commodore", "parameters:\n  region: eu\n  tier: base\n")
	writeClass(t, classesDir, "params.cluster", "parameters:\n  tier: prod\n")

	result, err := evaluate(classesDir, []string{"global.commodore", "params.cluster"}, nil, false)
	require.NoError(t, err)

	region, err := result.GetStringAt("parameters.region")
	require.NoError(t, err)
	assert.Equal(t, "eu", region)

	tier, err := result.GetStringAt("parameters.tier")
	require.NoError(t, err)
	assert.Equal(t, "prod", tier, "later class in the list must win")
}

func TestEvaluateExpandsNestedClasses(t *testing.T) {
	classesDir := t.TempDir()
	writeClass(t, classesDir, "defaults.argocd", "parameters:\n  argocd:\n    namespace: syn-argocd\n")
	writeClass(t, classesDir, "components.argocd", "classes:\n  - defaults.argocd\nparameters:\n  argocd:\n    version: v1\n")

	result, err := evaluate(classesDir, []string{"components.argocd"}, nil, false)
	require.NoError(t, err)

	ns, err := result.GetStringAt("parameters.argocd.namespace")
	require.NoError(t, err)
	assert.Equal(t, "syn-argocd", ns)

	ver, err := result.GetStringAt("parameters.argocd.version")
	require.NoError(t, err)
	assert.Equal(t, "v1", ver)
}

func TestEvaluateRootParamsHaveFinalWord(t *testing.T) {
	classesDir := t.TempDir()
	writeClass(t, classesDir, "params.cluster", "parameters:\n  _instance: base\n")

	result, err := evaluate(classesDir, []string{"params.cluster"}, map[string]interface{}{"_instance": "override"}, false)
	require.NoError(t, err)

	inst, err := result.GetStringAt("parameters._instance")
	require.NoError(t, err)
	assert.Equal(t, "override", inst)
}

func TestEvaluateMissingClassFailsByDefault(t *testing.T) {
	classesDir := t.TempDir()
	_, err := evaluate(classesDir, []string{"components.missing"}, nil, false)
	require.Error(t, err)
}

func TestEvaluateIgnoresMissingClassWhenConfigured(t *testing.T) {
	classesDir := t.TempDir()
	result, err := evaluate(classesDir, []string{"components.missing"}, nil, true)
	require.NoError(t, err)
	assert.True(t, result.IsMap())
}

func TestResolverEvaluateBootstrapTarget(t *testing.T) {
	root := t.TempDir()
	dirs := workdir.New(root)
	writeClass(t, dirs.ClassesDir(), "global.commodore", "applications: [argocd]\nparameters: {}\n")
	writeClass(t, dirs.ClassesDir(), "params.cluster", "parameters: {}\n")

	r := NewResolver(dirs, Options{})
	target := model.Target{Name: "cluster", Classes: model.BootstrapClassList(), Bootstrap: true}

	result, err := r.Evaluate(target)
	require.NoError(t, err)
	assert.False(t, result.IsNull())

	apps, err := r.Applications("cluster")
	require.NoError(t, err)
	app0, err := apps.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "argocd", app0.AsString())
}

func TestResolverAtFailsBeforeEvaluation(t *testing.T) {
	r := NewResolver(workdir.New(t.TempDir()), Options{})
	_, err := r.At("cluster", "parameters.foo")
	require.Error(t, err)
}
