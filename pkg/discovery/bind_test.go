package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectsyn/commodore-go/pkg/value"
)

func TestBindVersionsComponentAndPackage(t *testing.T) {
	params := value.FromRaw(map[string]interface{}{
		"components": map[string]interface{}{
			"argocd": map[string]interface{}{
				"url":     "https://github.com/projectsyn/component-argocd.git",
				"version": "v1.2.3",
			},
		},
		"packages": map[string]interface{}{
			"foo": map[string]interface{}{
				"url":     "https://github.com/projectsyn/package-foo.git",
				"version": "main",
			},
		},
	})

	disc := &Result{
		ComponentBases: []string{"argocd"},
		AliasToBase:    map[string]string{"argocd": "argocd"},
		AliasOrder:     []string{"argocd"},
		PackageNames:   []string{"foo"},
	}

	bound, err := BindVersions(params, disc)
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", bound.Components["argocd"].Spec.Version)
	assert.Equal(t, "main", bound.Packages["foo"].Spec.Version)
	assert.True(t, bound.Aliases["argocd"].Identity)
}

func TestBindVersionsMissingURLFails(t *testing.T) {
	params := value.FromRaw(map[string]interface{}{
		"components": map[string]interface{}{
			"argocd": map[string]interface{}{
				"version": "v1.2.3",
			},
		},
	})
	disc := &Result{
		ComponentBases: []string{"argocd"},
		AliasToBase:    map[string]string{"argocd": "argocd"},
		AliasOrder:     []string{"argocd"},
	}

	_, err := BindVersions(params, disc)
	require.Error(t, err)
}

func TestBindVersionsAliasOverrideWithoutURLFails(t *testing.T) {
	params := value.FromRaw(map[string]interface{}{
		"components": map[string]interface{}{
			"argocd": map[string]interface{}{
				"version": "v1.2.3",
			},
			"argocd-prod": map[string]interface{}{
				"version": "v2.0.0",
			},
		},
	})
	disc := &Result{
		ComponentBases: []string{"argocd"},
		AliasToBase:    map[string]string{"argocd": "argocd", "argocd-prod": "argocd"},
		AliasOrder:     []string{"argocd", "argocd-prod"},
	}

	_, err := BindVersions(params, disc)
	require.Error(t, err)
}

func TestBindVersionsAliasOverridesVersionKeepsBaseURL(t *testing.T) {
	params := value.FromRaw(map[string]interface{}{
		"components": map[string]interface{}{
			"argocd": map[string]interface{}{
				"url":     "https://github.com/projectsyn/component-argocd.git",
				"version": "v1.2.3",
			},
			"argocd-prod": map[string]interface{}{
				"version": "v2.0.0",
			},
		},
	})
	disc := &Result{
		ComponentBases: []string{"argocd"},
		AliasToBase:    map[string]string{"argocd": "argocd", "argocd-prod": "argocd"},
		AliasOrder:     []string{"argocd", "argocd-prod"},
	}

	bound, err := BindVersions(params, disc)
	require.NoError(t, err)

	alias := bound.Aliases["argocd-prod"]
	assert.Equal(t, "https://github.com/projectsyn/component-argocd.git", alias.Spec.URL)
	assert.Equal(t, "v2.0.0", alias.Spec.Version)
}
