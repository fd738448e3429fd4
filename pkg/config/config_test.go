package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	c := &Config{}
	SetDefaults(c)

	assert.NotEmpty(t, c.WorkingDir)
	assert.Equal(t, defaultRequestTimeout, c.RequestTimeout)
	assert.NotNil(t, c.DynamicFacts)
}

func TestSetDefaultsPreservesExplicitValues(t *testing.T) {
	c := &Config{WorkingDir: "/tmp/work", RequestTimeout: 10}
	SetDefaults(c)

	assert.Equal(t, "/tmp/work", c.WorkingDir)
	assert.EqualValues(t, 10, c.RequestTimeout)
}

func TestValidateRequiresAPICredentialsUnlessLocal(t *testing.T) {
	c := &Config{}
	err := Validate(c)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindConfig))

	c = &Config{Local: true}
	assert.NoError(t, Validate(c))

	c = &Config{APIURL: "https://api.example.com", APIToken: "t"}
	assert.NoError(t, Validate(c))
}

func TestValidateRejectsPushWithLocal(t *testing.T) {
	c := &Config{Local: true, Push: true}
	err := Validate(c)
	require.Error(t, err)
	assert.True(t, cerrors.Is(err, cerrors.KindConfig))
}

func TestFromEnvironmentDoesNotOverrideFlags(t *testing.T) {
	t.Setenv("COMMODORE_API_URL", "https://env.example.com")
	c := &Config{APIURL: "https://flag.example.com"}
	FromEnvironment(c)
	assert.Equal(t, "https://flag.example.com", c.APIURL)
}

func TestFromEnvironmentFillsUnsetFields(t *testing.T) {
	t.Setenv("COMMODORE_API_URL", "https://env.example.com")
	c := &Config{}
	FromEnvironment(c)
	assert.Equal(t, "https://env.example.com", c.APIURL)
}
