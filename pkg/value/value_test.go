package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtAndAccessors(t *testing.T) {
	v := FromRaw(map[string]interface{}{
		"parameters": map[string]interface{}{
			"components": map[string]interface{}{
				"argocd": map[string]interface{}{
					"url":     "https://example.com/argocd.git",
					"version": "v1.2.3",
				},
			},
		},
	})

	url, err := v.GetStringAt("parameters.components.argocd.url")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/argocd.git", url)

	_, err = v.GetStringAt("parameters.components.missing.url")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = v.GetStringAt("parameters.components")
	var tm *TypeMismatchError
	assert.ErrorAs(t, err, &tm)
}

func TestGetStringAtOrDefault(t *testing.T) {
	v := FromRaw(map[string]interface{}{"a": "x"})
	s, err := v.GetStringAtOr("b", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", s)

	s, err = v.GetStringAtOr("a", "default")
	require.NoError(t, err)
	assert.Equal(t, "x", s)
}

func TestGetBoolAtOrDefault(t *testing.T) {
	v := FromRaw(map[string]interface{}{"flag": true})
	b, err := v.GetBoolAtOr("missing", false)
	require.NoError(t, err)
	assert.False(t, b)

	b, err = v.GetBoolAtOr("flag", false)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestMergeDeep(t *testing.T) {
	base := FromRaw(map[string]interface{}{
		"a": map[string]interface{}{"x": 1, "y": 2},
		"b": "base",
	})
	over := FromRaw(map[string]interface{}{
		"a": map[string]interface{}{"y": 3, "z": 4},
		"c": "new",
	})
	merged := Merge(base, over)

	x, _ := merged.GetStringAt("a.x")
	_ = x
	yNode, err := merged.At("a.y")
	require.NoError(t, err)
	assert.EqualValues(t, 3, yNode.Raw())

	zNode, err := merged.At("a.z")
	require.NoError(t, err)
	assert.EqualValues(t, 4, zNode.Raw())

	bNode, err := merged.At("b")
	require.NoError(t, err)
	assert.Equal(t, "base", bNode.Raw())

	cNode, err := merged.At("c")
	require.NoError(t, err)
	assert.Equal(t, "new", cNode.Raw())
}

func TestRawRoundTrip(t *testing.T) {
	raw := map[string]interface{}{
		"list": []interface{}{"a", "b"},
		"flag": true,
	}
	v := FromRaw(raw)
	got := v.Raw()
	gotMap, ok := got.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, gotMap["flag"])
}
