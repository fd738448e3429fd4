// Package config implements Commodore's configuration loading
// (SPEC_FULL.md §10.2): a Config struct populated from CLI flags and the
// environment variables named in spec.md §6, with defaulting and
// validation kept as separate functions so each is unit-testable
// independently of flag parsing — the same three-step load pipeline shape
// as the teacher's pkg/config.ParseFromFile (read, SetDefaults, Validate).
package config

import (
	"os"
	"time"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/gitdep"
)

const defaultRequestTimeout = 5 * time.Second

// Config is Commodore's run configuration for one compile invocation.
type Config struct {
	WorkingDir string
	APIURL     string
	APIToken   string
	GithubToken string

	RequestTimeout time.Duration

	Local       bool
	Push        bool
	Interactive bool
	Force       bool

	Migration string

	DynamicFacts map[string]string

	Author gitdep.AuthorIdentity
}

// SetDefaults fills in zero-valued fields with their documented defaults
// (spec.md §5, §6). It never overwrites a value the caller already set.
func SetDefaults(c *Config) {
	if c.WorkingDir == "" {
		c.WorkingDir = defaultWorkingDir()
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.DynamicFacts == nil {
		c.DynamicFacts = map[string]string{}
	}
}

func defaultWorkingDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Validate enforces the ConfigError cases: a non-local compile needs an
// API URL and token, and --push cannot be combined with --local. Config
// has no revision override setting, so no --push/revision-override
// conflict is checked.
func Validate(c *Config) error {
	if !c.Local {
		if c.APIURL == "" {
			return cerrors.Config("API URL is required unless running in local mode")
		}
		if c.APIToken == "" {
			return cerrors.Config("API token is required unless running in local mode")
		}
	}
	if c.Push && c.Local {
		return cerrors.Config("--push cannot be combined with --local")
	}
	return nil
}

// FromEnvironment overlays the environment variables named in spec.md §6
// onto c, for fields the caller has not already set via flags. Flags take
// precedence over environment, matching the teacher's flag-then-env
// resolution order.
func FromEnvironment(c *Config) {
	if c.WorkingDir == "" {
		c.WorkingDir = os.Getenv("COMMODORE_WORKING_DIR")
	}
	if c.APIURL == "" {
		c.APIURL = os.Getenv("COMMODORE_API_URL")
	}
	if c.APIToken == "" {
		c.APIToken = os.Getenv("COMMODORE_API_TOKEN")
	}
	if c.GithubToken == "" {
		c.GithubToken = os.Getenv("COMMODORE_GITHUB_TOKEN")
	}
	if c.RequestTimeout == 0 {
		if s := os.Getenv("COMMODORE_REQUEST_TIMEOUT"); s != "" {
			if d, err := time.ParseDuration(s + "s"); err == nil {
				c.RequestTimeout = d
			}
		}
	}
	if c.Author.Name == "" {
		c.Author.Name = os.Getenv("GIT_AUTHOR_NAME")
	}
	if c.Author.Email == "" {
		c.Author.Email = os.Getenv("GIT_AUTHOR_EMAIL")
	}
}
