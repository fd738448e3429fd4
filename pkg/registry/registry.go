// Package registry implements the cluster registry HTTP client
// (SPEC_FULL.md §12.1): a thin *http.Client adapter over the cluster
// registry's cluster/tenant/list endpoints, bearer-token authenticated,
// with a configurable request timeout (spec.md §5, §6).
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

// Cluster is the subset of the registry's cluster object Commodore needs
// to bootstrap a compile (spec.md §3 "Cluster facts").
type Cluster struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant"`
	DisplayName string                 `json:"displayName"`
	Facts       map[string]interface{} `json:"facts"`

	GitRepo struct {
		URL string `json:"url"`
	} `json:"gitRepo"`
}

// Tenant is the registry's tenant object.
type Tenant struct {
	ID               string `json:"id"`
	GlobalGitRepoURL string `json:"globalGitRepoURL"`
	ConfigGitRepo    struct {
		URL string `json:"url"`
	} `json:"gitRepo"`
}

// Client is a bearer-token authenticated cluster registry client. The zero
// Client is not usable; construct with New.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	timeout     time.Duration
}

// New builds a Client against baseURL, authenticating with tokens drawn
// from tokenSource. A nil tokenSource is tolerated (local mode): requests
// are sent without an Authorization header, per SPEC_FULL.md §12.1's
// "local mode tolerates TokenSource returning an empty token".
func New(baseURL string, tokenSource oauth2.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
		timeout:     timeout,
	}
}

func (c *Client) do(ctx context.Context, path string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return cerrors.Registry(err, "building request for %s", path)
	}

	if c.tokenSource != nil {
		tok, err := c.tokenSource.Token()
		if err == nil && tok != nil && tok.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cerrors.Registry(err, "requesting %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cerrors.Registry(nil, "request to %s failed with status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cerrors.Registry(err, "decoding response from %s", path)
	}
	return nil
}

// GetCluster fetches a single cluster's facts by ID.
func (c *Client) GetCluster(ctx context.Context, id string) (*Cluster, error) {
	var cluster Cluster
	if err := c.do(ctx, fmt.Sprintf("/clusters/%s", id), &cluster); err != nil {
		return nil, err
	}
	return &cluster, nil
}

// GetTenant fetches a tenant object by ID.
func (c *Client) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	var tenant Tenant
	if err := c.do(ctx, fmt.Sprintf("/tenants/%s", id), &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// ListClusters lists every cluster visible to the authenticated token.
func (c *Client) ListClusters(ctx context.Context) ([]Cluster, error) {
	var clusters []Cluster
	if err := c.do(ctx, "/clusters/", &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}
