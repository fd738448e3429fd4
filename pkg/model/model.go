// Package model holds the data model shared across every Commodore
// component, per spec.md §3: cluster facts, dependencies, components,
// packages, aliases, and targets.
package model

// ClusterFacts is the cluster identity and static/dynamic facts fetched
// once per compile from the cluster registry (spec.md §3, "Cluster facts").
type ClusterFacts struct {
	TenantID    string
	ClusterID   string
	DisplayName string

	Facts        map[string]interface{}
	DynamicFacts map[string]interface{}

	CatalogURL string

	TenantConfigURL      string
	TenantConfigRevision string

	GlobalDefaultsURL      string
	GlobalDefaultsRevision string
}

// DependencySpec is the resolved (url, version, sub_path) triple bound to a
// component, alias, or package name by the Version Binder (spec.md §4.C).
type DependencySpec struct {
	URL     string
	Version string
	SubPath string
}

// Component is a base component discovered from the bootstrap target's
// `applications` list, before alias expansion.
type Component struct {
	Name    string
	Spec    DependencySpec
	Aliases []string // includes the identity alias (Name itself)
}

// Alias binds an alias name to a base component and its own (possibly
// overridden) dependency spec.
type Alias struct {
	Name     string
	Base     string
	Spec     DependencySpec
	Identity bool // true when Name == Base
}

// Package is a configuration-only dependency (spec.md §3, "Package").
type Package struct {
	Name string
	Spec DependencySpec
}

// Target is a named inventory entry producing one output tree (spec.md §3).
type Target struct {
	Name      string // the alias name, or "cluster" for the bootstrap target
	Classes   []string
	Instance  string
	BaseDir   string
	Bootstrap bool
}

// ClassList builds the ordered class list for a non-bootstrap target per
// spec.md §3: [params.cluster, defaults.<alias-or-component>..., global.commodore, components.<alias>].
func ClassList(alias, component string) []string {
	classes := []string{"params.cluster"}
	if component != "" && component != alias {
		classes = append(classes, "defaults."+component)
	}
	classes = append(classes, "defaults."+alias, "global.commodore", "components."+alias)
	return classes
}

// BootstrapClassList builds the class list for the "cluster" bootstrap
// target, which omits the trailing components.<alias> entry.
func BootstrapClassList() []string {
	return []string{"params.cluster", "global.commodore"}
}
