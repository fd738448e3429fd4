package cerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := Dependency(cause, "fetch failed for %s", "https://example.com/repo.git")

	assert.True(t, Is(err, KindDependency))
	assert.False(t, Is(err, KindDiscovery))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DependencyError")
	assert.Contains(t, err.Error(), "fetch failed for https://example.com/repo.git")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(Discovery("duplicate alias %q", "x")))
	assert.Equal(t, 127, ExitCode(ToolMissing("helm")))
}

func TestMergeConflictAndPushRejected(t *testing.T) {
	mc := MergeConflict("dependencies/argocd/values.yaml")
	assert.True(t, Is(mc, KindMergeConflict))

	pr := PushRejected("! [rejected] main -> main (fetch first)")
	assert.True(t, Is(pr, KindPushRejected))
}

func TestUnsupportedRefType(t *testing.T) {
	err := UnsupportedRefType("awskms")
	assert.True(t, Is(err, KindRef))
	assert.Contains(t, err.Error(), "awskms")
}
