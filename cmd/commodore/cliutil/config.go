// Package cliutil holds the small pieces of CLI plumbing shared by every
// commodore subcommand: turning flags plus environment variables into a
// config.Config, and building the registry client / Git auth a compile
// needs from that config.
package cliutil

import (
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"golang.org/x/oauth2"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/config"
	"github.com/projectsyn/commodore-go/pkg/gitdep"
	"github.com/projectsyn/commodore-go/pkg/registry"
)

// CompileFlags mirrors the `catalog compile` flag set of spec.md §6; it is
// the thin struct cobra.Command.Flags() populates directly.
type CompileFlags struct {
	APIURL      string
	APIToken    string
	Local       bool
	Push        bool
	Interactive bool
	Force       bool
	Migration   string
	DynamicSet  []string // "-d KEY=VALUE" repeated
}

// BuildConfig turns CompileFlags into a validated config.Config, overlaying
// environment variables for anything a flag left unset (spec.md §6's
// COMMODORE_* variables) and defaulting the rest (spec.md §5).
func BuildConfig(f CompileFlags) (*config.Config, error) {
	facts, err := parseDynamicFacts(f.DynamicSet)
	if err != nil {
		return nil, err
	}

	c := &config.Config{
		APIURL:       f.APIURL,
		APIToken:     f.APIToken,
		Local:        f.Local,
		Push:         f.Push,
		Interactive:  f.Interactive,
		Force:        f.Force,
		Migration:    f.Migration,
		DynamicFacts: facts,
	}
	config.FromEnvironment(c)
	config.SetDefaults(c)
	if err := config.Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func parseDynamicFacts(entries []string) (map[string]string, error) {
	facts := map[string]string{}
	for _, e := range entries {
		key, value, ok := strings.Cut(e, "=")
		if !ok || key == "" {
			return nil, cerrors.Config("invalid -d flag %q, expected KEY=VALUE", e)
		}
		facts[key] = value
	}
	return facts, nil
}

// RegistryClient builds the cluster registry client for c, or nil in local
// mode where no registry lookups happen (pkg/pipeline tolerates a nil
// Registry).
func RegistryClient(c *config.Config) *registry.Client {
	if c.Local || c.APIURL == "" {
		return nil
	}
	var ts oauth2.TokenSource
	if c.APIToken != "" {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.APIToken})
	}
	timeout := c.RequestTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return registry.New(c.APIURL, ts, timeout)
}

// GitAuth builds the transport auth used for the catalog and dependency
// repositories from the configured GitHub token, or nil if none is set
// (anonymous/SSH-agent access, matching go-git's default behaviour).
func GitAuth(c *config.Config) transport.AuthMethod {
	if c.GithubToken == "" {
		return nil
	}
	return gitdep.BasicAuth("commodore", c.GithubToken)
}
