// Package workdir centralises the working-directory layout documented in
// spec.md §6, so every component builds paths the same way instead of ad
// hoc filepath.Join calls scattered across the codebase.
package workdir

import "path/filepath"

// Dirs resolves every well-known subtree rooted at Root.
type Dirs struct {
	Root string
}

func New(root string) Dirs { return Dirs{Root: root} }

func (d Dirs) InventoryDir() string   { return filepath.Join(d.Root, "inventory") }
func (d Dirs) ClassesDir() string     { return filepath.Join(d.InventoryDir(), "classes") }
func (d Dirs) ComponentClassesDir() string { return filepath.Join(d.ClassesDir(), "components") }
func (d Dirs) DefaultsClassesDir() string  { return filepath.Join(d.ClassesDir(), "defaults") }
func (d Dirs) GlobalClassesDir() string    { return filepath.Join(d.ClassesDir(), "global") }
func (d Dirs) TenantClassesDir(tenantID string) string {
	return filepath.Join(d.ClassesDir(), tenantID)
}
func (d Dirs) ParamsDir() string      { return filepath.Join(d.ClassesDir(), "params") }
func (d Dirs) ClusterParamsFile() string { return filepath.Join(d.ParamsDir(), "cluster.yml") }
func (d Dirs) TargetsDir() string     { return filepath.Join(d.InventoryDir(), "targets") }
func (d Dirs) TargetFile(alias string) string {
	return filepath.Join(d.TargetsDir(), alias+".yml")
}

func (d Dirs) DependenciesDir() string { return filepath.Join(d.Root, "dependencies") }
func (d Dirs) ReposDir() string        { return filepath.Join(d.DependenciesDir(), ".repos") }
func (d Dirs) ComponentWorktree(alias string) string {
	return filepath.Join(d.DependenciesDir(), alias)
}
func (d Dirs) PackageWorktree(name string) string {
	return filepath.Join(d.DependenciesDir(), "pkg."+name)
}
func (d Dirs) LibDir() string { return filepath.Join(d.DependenciesDir(), "lib") }

func (d Dirs) VendorDir() string { return filepath.Join(d.Root, "vendor") }

func (d Dirs) CompiledDir() string { return filepath.Join(d.Root, "compiled") }
func (d Dirs) CompiledTarget(alias string) string {
	return filepath.Join(d.CompiledDir(), alias)
}

func (d Dirs) CatalogDir() string         { return filepath.Join(d.Root, "catalog") }
func (d Dirs) CatalogManifestsDir() string { return filepath.Join(d.CatalogDir(), "manifests") }
func (d Dirs) CatalogRefsDir() string      { return filepath.Join(d.CatalogDir(), "refs") }

// ReservedPackageNames are names a package may never take (spec.md §3).
var ReservedPackageNames = map[string]bool{
	"components": true,
	"defaults":   true,
	"global":     true,
	"params":     true,
}

// TenantPackagePrefix is the prefix disallowed for package names.
const TenantPackagePrefix = "t-"
