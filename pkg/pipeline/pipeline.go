// Package pipeline implements the Compilation Pipeline (spec.md §4.D): the
// coordinator that drives one cluster compile through every other
// component, in the order spec.md §4.D's state machine names, re-evaluating
// the inventory after each step that could affect class resolution
// (spec.md §5).
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/projectsyn/commodore-go/pkg/catalog"
	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/config"
	"github.com/projectsyn/commodore-go/pkg/discovery"
	"github.com/projectsyn/commodore-go/pkg/gitdep"
	"github.com/projectsyn/commodore-go/pkg/inventory"
	"github.com/projectsyn/commodore-go/pkg/logger"
	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/postprocess"
	"github.com/projectsyn/commodore-go/pkg/refs"
	"github.com/projectsyn/commodore-go/pkg/registry"
	"github.com/projectsyn/commodore-go/pkg/targetgen"
	"github.com/projectsyn/commodore-go/pkg/toolprovider"
	"github.com/projectsyn/commodore-go/pkg/value"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

// templaterTool is the external manifest-templating engine's binary name
// (spec.md §1 names it as an out-of-core subprocess; the reference
// implementation shells out to Kapitan).
const templaterTool = "kapitan"

// Coordinator owns every dependency the pipeline's stages need and drives
// one compile to completion.
type Coordinator struct {
	Dirs     workdir.Dirs
	Config   *config.Config
	Registry *registry.Client
	Tools    toolprovider.Provider
	GitAuth  transport.AuthMethod
	Prompt   catalog.Prompter

	resolver *inventory.Resolver
	pool     *postprocess.Registry
}

// Result summarises a completed compile for the CLI layer to report.
type Result struct {
	Aliases    []string
	Components []catalog.ComponentCommit
	Catalog    catalog.ConfigCommits
}

// NOTE on ordering (SPEC_FULL.md §4.D): spec.md's ASCII diagram places
// "ResolveComponents (discovery+binding)" directly after the first
// inventory evaluation and before the global/tenant repositories are
// fetched. Component discovery and version binding read
// `applications`/`parameters.components.*`, which are declared inside
// those repositories' own class files, not in the bootstrap facts written
// by WriteBootstrapClasses — so literally following the diagram's column
// order would make ResolveComponents observe an inventory that cannot yet
// contain the data it needs. This implementation fetches the global and
// tenant repositories before invoking ResolveComponents, consistent with
// spec.md §5's invariant that "the inventory is always re-evaluated after
// every write that could affect class resolution, before any consumer
// reads it"; every stage name from the diagram is still present, just
// with FetchGlobalAndTenantRepos moved ahead of ResolveComponents.

// Compile runs the full state machine of spec.md §4.D for one cluster.
func (c *Coordinator) Compile(ctx context.Context, clusterID string) (*Result, error) {
	log := logger.Get()
	c.resolver = inventory.NewResolver(c.Dirs, inventory.Options{IgnoreClassNotFound: true})
	c.pool = postprocess.NewRegistry()

	facts, tenant, err := c.fetchClusterFacts(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	if err := c.writeBootstrapClasses(facts); err != nil {
		return nil, err
	}

	bootstrap := model.Target{Name: "cluster", Classes: model.BootstrapClassList(), Bootstrap: true}
	if _, err := c.resolver.Evaluate(bootstrap); err != nil {
		return nil, err
	}

	if err := c.fetchGlobalAndTenantRepos(ctx, facts, tenant); err != nil {
		return nil, err
	}

	inv, err := c.resolver.Evaluate(bootstrap)
	if err != nil {
		return nil, err
	}

	bound, disc, err := c.resolveComponents(inv)
	if err != nil {
		return nil, err
	}

	if err := c.fetchComponentsAndAliases(ctx, disc, bound); err != nil {
		return nil, err
	}
	if err := c.fetchPackages(ctx, disc, bound); err != nil {
		return nil, err
	}

	clusterInv, err := c.resolver.Evaluate(bootstrap)
	if err != nil {
		return nil, err
	}

	if err := c.validateAliasesAndDeprecations(disc); err != nil {
		return nil, err
	}

	libReg := targetgen.NewLibraryAliasRegistry(disc.ComponentBases)
	if err := c.registerLibraryAliases(disc, libReg); err != nil {
		return nil, err
	}

	if err := c.writePerAliasTargets(disc, bound); err != nil {
		return nil, err
	}

	targetInventories, err := c.evaluateAllTargets(disc)
	if err != nil {
		return nil, err
	}

	if err := c.harvestSecretRefs(targetInventories, clusterInv); err != nil {
		return nil, err
	}

	if err := c.invokeTemplater(ctx, disc); err != nil {
		return nil, err
	}

	if err := c.runPostprocessFilters(ctx, disc, targetInventories); err != nil {
		return nil, err
	}

	result, err := c.writeCatalog(ctx, disc, bound, facts, tenant)
	if err != nil {
		return nil, err
	}

	log.Successf("Compile finished for cluster %s", clusterID)
	return result, nil
}

func (c *Coordinator) fetchClusterFacts(ctx context.Context, clusterID string) (*registry.Cluster, *registry.Tenant, error) {
	log := logger.Get()
	if c.Config.Local || c.Registry == nil {
		log.Warnf("Running in local mode: skipping cluster registry lookup")
		return &registry.Cluster{ID: clusterID}, nil, nil
	}

	cluster, err := c.Registry.GetCluster(ctx, clusterID)
	if err != nil {
		return nil, nil, err
	}
	tenant, err := c.Registry.GetTenant(ctx, cluster.TenantID)
	if err != nil {
		return nil, nil, err
	}
	return cluster, tenant, nil
}

// writeBootstrapClasses renders the "params.cluster" class file the
// bootstrap target's class list names (model.BootstrapClassList), carrying
// the cluster's static and dynamic facts (spec.md §3 "Cluster facts").
func (c *Coordinator) writeBootstrapClasses(facts *registry.Cluster) error {
	params := map[string]interface{}{
		"cluster": map[string]interface{}{
			"name": facts.ID,
		},
	}
	for k, v := range facts.Facts {
		params[k] = v
	}
	for k, v := range c.Config.DynamicFacts {
		params[k] = v
	}

	return writeClassFile(c.Dirs.ClusterParamsFile(), nil, nil, params)
}

// writeClassFile renders a reclass-style class YAML document (classes,
// applications, parameters) to path, creating its parent directory.
func writeClassFile(path string, classes, applications []string, params map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerrors.Dependency(err, "creating %s", filepath.Dir(path))
	}
	doc := struct {
		Classes      []string               `yaml:"classes,omitempty"`
		Applications []string               `yaml:"applications,omitempty"`
		Parameters   map[string]interface{} `yaml:"parameters"`
	}{Classes: classes, Applications: applications, Parameters: params}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return cerrors.Dependency(err, "rendering class file %s", path)
	}
	return os.WriteFile(path, data, 0o644)
}

// fetchGlobalAndTenantRepos materialises the global-defaults and
// tenant-config class repositories directly against the Git Dependency
// Manager's bare-clone primitives, bypassing the Task/RunTasks machinery:
// RunTasks' Kind enum only distinguishes components from packages, and
// these two repositories are neither (spec.md §3's "global" and "tenant"
// class roots are not entries in `applications`).
func (c *Coordinator) fetchGlobalAndTenantRepos(ctx context.Context, facts *registry.Cluster, tenant *registry.Tenant) error {
	if c.Config.Local || tenant == nil {
		return nil
	}
	mgr := gitdep.NewManager(c.Dirs.ReposDir())

	if tenant.GlobalGitRepoURL != "" {
		if err := fetchClassRepo(ctx, mgr, c.Tools, tenant.GlobalGitRepoURL, c.Dirs.GlobalClassesDir(), c.Config.Force); err != nil {
			return err
		}
	}
	if tenant.ConfigGitRepo.URL != "" {
		if err := fetchClassRepo(ctx, mgr, c.Tools, tenant.ConfigGitRepo.URL, c.Dirs.TenantClassesDir(facts.TenantID), c.Config.Force); err != nil {
			return err
		}
	}
	return nil
}

func fetchClassRepo(ctx context.Context, mgr *gitdep.Manager, tools toolprovider.Provider, url, targetDir string, force bool) error {
	md := mgr.GetOrCreate(url)
	if err := gitdep.EnsureBareFetch(ctx, md); err != nil {
		return err
	}
	return gitdep.Checkout(ctx, tools, md, targetDir, "", force)
}

func (c *Coordinator) resolveComponents(inv value.Value) (*discovery.Bound, *discovery.Result, error) {
	disc, err := discovery.ParseApplications(inv)
	if err != nil {
		return nil, nil, err
	}

	params, err := inv.GetMapAt("parameters")
	if err != nil {
		return nil, nil, err
	}
	bound, err := discovery.BindVersions(params, disc)
	if err != nil {
		return nil, nil, err
	}
	return bound, disc, nil
}

func (c *Coordinator) fetchComponentsAndAliases(ctx context.Context, disc *discovery.Result, bound *discovery.Bound) error {
	if c.Config.Local {
		return nil
	}
	mgr := gitdep.NewManager(c.Dirs.ReposDir())

	var tasks []gitdep.Task
	for alias, a := range bound.Aliases {
		tasks = append(tasks, gitdep.Task{
			RawURL: a.Spec.URL, Name: alias, Kind: gitdep.KindComponent,
			TargetDir: c.Dirs.ComponentWorktree(alias),
			Version:   a.Spec.Version, Force: c.Config.Force,
		})
	}
	sortTasks(tasks)
	if len(tasks) == 0 {
		return nil
	}
	return gitdep.RunTasks(ctx, mgr, c.Tools, tasks, gitdep.DefaultPoolSize)
}

func (c *Coordinator) fetchPackages(ctx context.Context, disc *discovery.Result, bound *discovery.Bound) error {
	if c.Config.Local {
		return nil
	}
	mgr := gitdep.NewManager(c.Dirs.ReposDir())

	var tasks []gitdep.Task
	for name, p := range bound.Packages {
		tasks = append(tasks, gitdep.Task{
			RawURL: p.Spec.URL, Name: name, Kind: gitdep.KindPackage,
			TargetDir: c.Dirs.PackageWorktree(name),
			Version:   p.Spec.Version, Force: c.Config.Force,
		})
	}
	sortTasks(tasks)
	if len(tasks) == 0 {
		return nil
	}
	return gitdep.RunTasks(ctx, mgr, c.Tools, tasks, gitdep.DefaultPoolSize)
}

func sortTasks(tasks []gitdep.Task) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
}

func (c *Coordinator) validateAliasesAndDeprecations(disc *discovery.Result) error {
	for _, alias := range disc.AliasOrder {
		base := disc.AliasToBase[alias]
		multi, err := targetgen.ReadMultiInstance(c.Dirs.ComponentWorktree(alias))
		if err != nil {
			multi = false
		}
		if err := targetgen.CheckInstantiation(base, alias, alias == base, multi); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) registerLibraryAliases(disc *discovery.Result, reg *targetgen.LibraryAliasRegistry) error {
	for _, alias := range disc.AliasOrder {
		base := disc.AliasToBase[alias]
		worktree := c.Dirs.ComponentWorktree(alias)
		aliases, err := targetgen.LibraryAliases(worktree)
		if err != nil {
			continue
		}
		for aliasFile, realFile := range aliases {
			if err := reg.Register(c.Dirs, base, aliasFile, realFile, worktree); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Coordinator) writePerAliasTargets(disc *discovery.Result, bound *discovery.Bound) error {
	for _, alias := range disc.AliasOrder {
		base := disc.AliasToBase[alias]
		worktree := c.Dirs.ComponentWorktree(alias)
		if err := targetgen.WriteAliasClasses(c.Dirs, alias, base, worktree); err != nil {
			return err
		}
		target := model.Target{
			Name:     alias,
			Classes:  model.ClassList(alias, base),
			Instance: alias,
			BaseDir:  worktree,
		}
		if err := targetgen.WriteTargetFile(c.Dirs, target); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) evaluateAllTargets(disc *discovery.Result) (map[string]value.Value, error) {
	out := map[string]value.Value{}
	for _, alias := range disc.AliasOrder {
		v, err := c.resolver.Evaluate(model.Target{Name: alias})
		if err != nil {
			return nil, err
		}
		out[alias] = v
	}
	return out, nil
}

// harvestSecretRefs scans every target's resolved parameters for secret
// references, then writes each unique reference's ref file using the
// vaultkv backend configuration from the bootstrap/cluster target's own
// parameters — not from whichever per-alias target the map happens to
// range over last — since `kapitan.secrets.vaultkv` is cluster-wide
// configuration and every target shares it (spec.md §4.G, §8 determinism).
func (c *Coordinator) harvestSecretRefs(targetInventories map[string]value.Value, clusterInv value.Value) error {
	builder := refs.NewBuilder()
	for _, inv := range targetInventories {
		params, err := inv.GetMapAt("parameters")
		if err != nil {
			continue
		}
		builder.Find("", params)
	}
	if len(builder.Refs()) == 0 {
		return nil
	}
	clusterParams, err := clusterInv.GetMapAt("parameters")
	if err != nil {
		return err
	}
	return refs.Write(c.Dirs.CatalogRefsDir(), builder.Refs(), clusterParams)
}

func (c *Coordinator) invokeTemplater(ctx context.Context, disc *discovery.Result) error {
	for _, alias := range disc.AliasOrder {
		args := []string{"compile", "--inventory-path", c.Dirs.InventoryDir(),
			"--output-path", c.Dirs.CompiledDir(), "--targets", alias}
		if _, err := c.Tools.Run(ctx, templaterTool, c.Dirs.Root, args...); err != nil {
			return cerrors.Templater(err, "compiling target %s", alias)
		}
	}
	return nil
}

func (c *Coordinator) runPostprocessFilters(ctx context.Context, disc *discovery.Result, targetInventories map[string]value.Value) error {
	for _, alias := range disc.AliasOrder {
		inv, ok := targetInventories[alias]
		if !ok {
			continue
		}
		params, err := inv.GetMapAt("parameters")
		if err != nil {
			continue
		}
		filters, err := postprocess.ParseFilters(params)
		if err != nil {
			return err
		}
		compiledDir := c.Dirs.CompiledTarget(alias)
		worktree := c.Dirs.ComponentWorktree(alias)
		if err := postprocess.Validate(filters, c.pool, compiledDir, worktree); err != nil {
			return err
		}
		vars := map[string]string{"target": alias, "component": disc.AliasToBase[alias]}
		if err := postprocess.Run(ctx, filters, c.pool, c.Tools, compiledDir, worktree, vars); err != nil {
			return err
		}
	}
	return nil
}

// migrationMode resolves the `-m <migration>` flag to a catalog diff mode.
// Only "kapitan-0.29-to-0.30" selects the semantic diff; any other name
// (including empty) resolves to the default diff function, logged at
// Debug rather than rejected (SPEC_FULL.md §15, Open Question 2).
func migrationMode(migration string) catalog.Mode {
	if migration == "kapitan-0.29-to-0.30" {
		return catalog.ModeK8sSemantic
	}
	if migration != "" {
		logger.Debug("unknown migration %q, using default diff function", migration)
	}
	return catalog.ModeDefault
}

// configCommits reads the global-defaults and tenant config repos' HEAD
// short SHAs for the catalog commit message (spec.md §4.H step 5,
// "* global: <sha6>" / "* customer: <sha6>").
func (c *Coordinator) configCommits(facts *registry.Cluster) (catalog.ConfigCommits, error) {
	globalSHA, err := gitdep.HeadShortSHA(c.Dirs.GlobalClassesDir())
	if err != nil {
		return catalog.ConfigCommits{}, err
	}
	customerSHA, err := gitdep.HeadShortSHA(c.Dirs.TenantClassesDir(facts.TenantID))
	if err != nil {
		return catalog.ConfigCommits{}, err
	}
	return catalog.ConfigCommits{GlobalSHA: globalSHA, CustomerSHA: customerSHA}, nil
}

func (c *Coordinator) writeCatalog(ctx context.Context, disc *discovery.Result, bound *discovery.Bound, facts *registry.Cluster, tenant *registry.Tenant) (*Result, error) {
	catalogDir := c.Dirs.CatalogDir()
	if facts.GitRepo.URL != "" {
		if _, err := catalog.Open(ctx, catalogDir, facts.GitRepo.URL, c.GitAuth); err != nil {
			return nil, err
		}
	}

	mode := migrationMode(c.Config.Migration)
	stageResult, err := catalog.Stage(catalogDir, c.Dirs.CompiledDir(), disc.AliasOrder, mode)
	if err != nil {
		return nil, err
	}

	components := make([]catalog.ComponentCommit, 0, len(bound.Components))
	for name, comp := range bound.Components {
		// A base component's own checkout lives under its first (sorted)
		// alias's worktree; every alias of a base shares that base's
		// version, so any one of them identifies the commit (spec.md §4.H
		// step 5).
		shortSHA := ""
		if len(comp.Aliases) > 0 {
			sha, err := gitdep.HeadShortSHA(c.Dirs.ComponentWorktree(comp.Aliases[0]))
			if err != nil {
				return nil, err
			}
			shortSHA = sha
		}
		components = append(components, catalog.ComponentCommit{Name: name, Version: comp.Spec.Version, ShortSHA: shortSHA})
	}
	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	configCommits, err := c.configCommits(facts)
	if err != nil {
		return nil, err
	}

	if stageResult.Changed {
		msg := catalog.RenderCommitMessage(components, configCommits, time.Now())
		policy := catalog.PushPolicy{Local: c.Config.Local, Push: c.Config.Push, Interactive: c.Config.Interactive}
		if err := catalog.Finalize(ctx, catalogDir, policy, msg, c.Config.Author, c.GitAuth, c.Prompt); err != nil {
			return nil, err
		}
	}

	return &Result{Aliases: disc.AliasOrder, Components: components}, nil
}

