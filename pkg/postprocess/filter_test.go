package postprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/value"
)

type fakeTools struct {
	calls [][]string
	out   []byte
}

func (f *fakeTools) Path(tool string) (string, error) { return tool, nil }

func (f *fakeTools) Run(_ context.Context, tool, dir string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{tool, dir}, args...))
	return f.out, nil
}

func paramsFromYAML(t *testing.T, doc string) value.Value {
	t.Helper()
	var raw interface{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &raw))
	return value.FromRaw(raw)
}

func TestParseFiltersDefaultsEnabledToTrue(t *testing.T) {
	params := paramsFromYAML(t, `
commodore:
  postprocess:
    filters:
      - path: manifests/
        type: builtin
        filter: helm_namespace
        filterargs:
          namespace: my-ns
`)

	filters, err := ParseFilters(params)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "manifests/", filters[0].Path)
	assert.Equal(t, TypeBuiltin, filters[0].Type)
	assert.Equal(t, "helm_namespace", filters[0].FilterName)
	assert.True(t, filters[0].Enabled)
}

func TestParseFiltersNoFiltersKeyReturnsNil(t *testing.T) {
	params := paramsFromYAML(t, "commodore:\n  postprocess: {}\n")

	filters, err := ParseFilters(params)
	require.NoError(t, err)
	assert.Nil(t, filters)
}

func TestParseFiltersMissingRequiredFieldFails(t *testing.T) {
	params := paramsFromYAML(t, `
commodore:
  postprocess:
    filters:
      - path: manifests/
        type: builtin
`)

	_, err := ParseFilters(params)
	assert.Error(t, err)
}

func TestResolveEnabledLiteralBool(t *testing.T) {
	params := paramsFromYAML(t, `
commodore:
  postprocess:
    filters:
      - path: manifests/
        type: builtin
        filter: helm_namespace
        filterargs: {namespace: my-ns}
        enabled: false
`)

	filters, err := ParseFilters(params)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.False(t, filters[0].Enabled)
}

func TestResolveEnabledInventoryReference(t *testing.T) {
	params := paramsFromYAML(t, `
myapp:
  filter_enabled: false
commodore:
  postprocess:
    filters:
      - path: manifests/
        type: builtin
        filter: helm_namespace
        filterargs: {namespace: my-ns}
        enabled: myapp.filter_enabled
`)

	filters, err := ParseFilters(params)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.False(t, filters[0].Enabled)
}

func TestValidateRejectsUnknownBuiltin(t *testing.T) {
	filters := []Filter{{Path: "manifests/", Type: TypeBuiltin, FilterName: "nope", Enabled: true}}
	err := Validate(filters, NewRegistry(), t.TempDir(), t.TempDir())
	assert.Error(t, err)
}

func TestValidateRejectsEscapingOutputPath(t *testing.T) {
	compiledDir := t.TempDir()
	filters := []Filter{{Path: "../../etc", Type: TypeBuiltin, FilterName: "helm_namespace", Enabled: true}}
	err := Validate(filters, NewRegistry(), compiledDir, t.TempDir())
	assert.Error(t, err)
}

func TestValidateRejectsMissingJsonnetScript(t *testing.T) {
	filters := []Filter{{Path: "manifests/", Type: TypeJsonnet, FilterName: "does-not-exist.jsonnet", Enabled: true}}
	err := Validate(filters, NewRegistry(), t.TempDir(), t.TempDir())
	assert.Error(t, err)
}

func TestValidateSkipsDisabledFilters(t *testing.T) {
	filters := []Filter{{Path: "../escape", Type: TypeBuiltin, FilterName: "nope", Enabled: false}}
	err := Validate(filters, NewRegistry(), t.TempDir(), t.TempDir())
	assert.NoError(t, err)
}

func TestRunSkipsDisabledFilter(t *testing.T) {
	tools := &fakeTools{}
	filters := []Filter{{Path: "manifests/", Type: TypeBuiltin, FilterName: "helm_namespace", Enabled: false}}
	err := Run(context.Background(), filters, NewRegistry(), tools, t.TempDir(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, tools.calls)
}

func TestRunBuiltinFilterRewritesNamespace(t *testing.T) {
	compiledDir := t.TempDir()
	manifestDir := filepath.Join(compiledDir, "manifests")
	require.NoError(t, os.MkdirAll(manifestDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(manifestDir, "deploy.yaml"), []byte("apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: web\n"), 0o644))

	filterArgs := paramsFromYAML(t, "namespace: my-ns\ncreate_namespace: true\n")
	filters := []Filter{{Path: "manifests", Type: TypeBuiltin, FilterName: "helm_namespace", FilterArgs: filterArgs, Enabled: true}}

	err := Run(context.Background(), filters, NewRegistry(), &fakeTools{}, compiledDir, t.TempDir(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(manifestDir, "deploy.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "namespace: my-ns")

	_, err = os.Stat(filepath.Join(manifestDir, "00_namespace.yaml"))
	assert.NoError(t, err)
}

func TestRunJsonnetFilterInvokesToolAndWritesOutput(t *testing.T) {
	componentWorktree := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(componentWorktree, "filter.jsonnet"), []byte("{}"), 0o644))

	compiledDir := t.TempDir()
	tools := &fakeTools{out: []byte(`{"manifests": {"apiVersion": "v1", "kind": "ConfigMap"}}`)}
	filters := []Filter{{Path: "manifests", Type: TypeJsonnet, FilterName: "filter.jsonnet", Enabled: true}}

	err := Run(context.Background(), filters, NewRegistry(), tools, compiledDir, componentWorktree, map[string]string{"target": "myapp"})
	require.NoError(t, err)

	require.Len(t, tools.calls, 1)
	assert.Equal(t, "jsonnet", tools.calls[0][0])
	assert.Contains(t, tools.calls[0], "-V")
	assert.Contains(t, tools.calls[0], "target=myapp")

	data, err := os.ReadFile(filepath.Join(compiledDir, "manifests", "manifests.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: ConfigMap")
}
