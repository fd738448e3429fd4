package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetManifestsPreservesDirClearsContent(t *testing.T) {
	catalogDir := t.TempDir()
	manifestsDir := ManifestsDir(catalogDir)
	require.NoError(t, os.MkdirAll(filepath.Join(manifestsDir, "stale"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(manifestsDir, "stale", "old.yaml"), []byte("x"), 0o644))

	require.NoError(t, ResetManifests(catalogDir))

	info, err := os.Stat(manifestsDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(manifestsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPopulateManifestsCopiesCompiledAliasTrees(t *testing.T) {
	catalogDir := t.TempDir()
	compiledDir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(compiledDir, "argocd", "apps"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(compiledDir, "argocd", "apps", "app.yaml"), []byte("kind: App\n"), 0o644))

	require.NoError(t, ResetManifests(catalogDir))
	require.NoError(t, PopulateManifests(catalogDir, compiledDir, []string{"argocd", "missing-alias"}))

	data, err := os.ReadFile(filepath.Join(ManifestsDir(catalogDir), "argocd", "apps", "app.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "kind: App\n", string(data))

	_, err = os.Stat(filepath.Join(ManifestsDir(catalogDir), "missing-alias"))
	assert.True(t, os.IsNotExist(err))
}
