package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const objA = "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n  namespace: ns\n"
const objB = "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: b\n  namespace: ns\n"

func TestK8sSemanticDiffNoChangeAfterReordering(t *testing.T) {
	old := []byte(objB + "---\n" + objA)
	new_ := []byte(objA + "---\n" + objB)

	diff, changed := K8sSemanticDiff("manifest.yaml", old, new_)
	assert.False(t, changed)
	assert.Empty(t, diff)
}

func TestK8sSemanticDiffSuppressesTillerToHelmRewrite(t *testing.T) {
	old := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n  labels:\n    managed-by: Tiller\n")
	new_ := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n  labels:\n    managed-by: Helm\n")

	diff, changed := K8sSemanticDiff("manifest.yaml", old, new_)
	assert.False(t, changed)
	assert.Empty(t, diff)
}

func TestK8sSemanticDiffSuppressesRemovedNullSeparator(t *testing.T) {
	old := []byte(objA + "---\nnull\n")
	new_ := []byte(objA)

	diff, changed := K8sSemanticDiff("manifest.yaml", old, new_)
	assert.False(t, changed)
	assert.Empty(t, diff)
}

func TestK8sSemanticDiffKeepsRealChanges(t *testing.T) {
	old := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\ndata:\n  key: old\n")
	new_ := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\ndata:\n  key: new\n")

	diff, changed := K8sSemanticDiff("manifest.yaml", old, new_)
	assert.True(t, changed)
	assert.NotEmpty(t, diff)
}

func TestK8sSemanticDiffMixedHunksNotSuppressed(t *testing.T) {
	old := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n  labels:\n    managed-by: Tiller\ndata:\n  key: old\n")
	new_ := []byte("apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n  labels:\n    managed-by: Helm\ndata:\n  key: new\n")

	_, changed := K8sSemanticDiff("manifest.yaml", old, new_)
	assert.True(t, changed)
}
