package discovery

import (
	"sort"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/value"
)

// Bound is the fully bound output of discovery + version binding: a
// DependencySpec per component base, per alias, and per package, plus the
// alias→base map (spec.md §4.C "Output").
type Bound struct {
	Components map[string]model.Component
	Aliases    map[string]model.Alias
	Packages   map[string]model.Package
}

// BindVersions reads components.<name> and packages.<name> from the
// bootstrap target's `parameters` subtree, producing a DependencySpec per
// component, alias, and package (spec.md §4.C "Version binding"). Callers
// pass the `parameters` node itself, not the whole inventory.
func BindVersions(params value.Value, disc *Result) (*Bound, error) {
	bound := &Bound{
		Components: map[string]model.Component{},
		Aliases:    map[string]model.Alias{},
		Packages:   map[string]model.Package{},
	}

	baseSpecs := map[string]model.DependencySpec{}
	for _, name := range disc.ComponentBases {
		spec, err := readDependencySpec(params, "components."+name, true)
		if err != nil {
			return nil, err
		}
		baseSpecs[name] = spec
	}

	aliasesByBase := map[string][]string{}
	for _, alias := range disc.AliasOrder {
		base := disc.AliasToBase[alias]
		aliasesByBase[base] = append(aliasesByBase[base], alias)
	}

	for _, name := range disc.ComponentBases {
		aliases := append([]string(nil), aliasesByBase[name]...)
		sort.Strings(aliases)
		bound.Components[name] = model.Component{
			Name:    name,
			Spec:    baseSpecs[name],
			Aliases: aliases,
		}
	}

	for _, alias := range disc.AliasOrder {
		base := disc.AliasToBase[alias]
		baseSpec := baseSpecs[base]

		if alias == base {
			bound.Aliases[alias] = model.Alias{Name: alias, Base: base, Spec: baseSpec, Identity: true}
			continue
		}

		overridden, hasOverride, err := readDependencyOverride(params, "components."+alias)
		if err != nil {
			return nil, err
		}
		if !hasOverride {
			bound.Aliases[alias] = model.Alias{Name: alias, Base: base, Spec: baseSpec, Identity: false}
			continue
		}
		merged := mergeOverride(baseSpec, overridden)
		if merged.URL == "" {
			return nil, cerrors.VersionBinding("alias %q overrides component %q but neither specifies a url", alias, base)
		}
		bound.Aliases[alias] = model.Alias{Name: alias, Base: base, Spec: merged, Identity: false}
	}

	for _, name := range disc.PackageNames {
		spec, err := readDependencySpec(params, "packages."+name, true)
		if err != nil {
			return nil, err
		}
		bound.Packages[name] = model.Package{Name: name, Spec: spec}
	}

	return bound, nil
}

// readDependencySpec reads {url, version, path} at prefix, requiring url and
// (when requireVersion) version.
func readDependencySpec(params value.Value, prefix string, requireVersion bool) (model.DependencySpec, error) {
	url, err := params.GetStringAt(prefix + ".url")
	if err != nil {
		return model.DependencySpec{}, cerrors.VersionBinding("%s: missing url", prefix)
	}
	version, err := params.GetStringAt(prefix + ".version")
	if err != nil {
		if requireVersion {
			return model.DependencySpec{}, cerrors.VersionBinding("%s: missing version", prefix)
		}
		version = ""
	}
	subPath, _ := params.GetStringAtOr(prefix+".path", "")
	return model.DependencySpec{URL: url, Version: version, SubPath: subPath}, nil
}

// readDependencyOverride reads whatever subset of {url, version, path} is
// present at prefix without requiring any of them, reporting whether the
// path exists at all.
func readDependencyOverride(params value.Value, prefix string) (model.DependencySpec, bool, error) {
	node, err := params.GetMapAt(prefix)
	if err != nil {
		if _, ok := err.(*value.NotFoundError); ok {
			return model.DependencySpec{}, false, nil
		}
		return model.DependencySpec{}, false, cerrors.VersionBinding("%s: %v", prefix, err)
	}
	url, _ := node.GetStringAtOr("url", "")
	version, _ := node.GetStringAtOr("version", "")
	subPath, _ := node.GetStringAtOr("path", "")
	return model.DependencySpec{URL: url, Version: version, SubPath: subPath}, true, nil
}

// mergeOverride applies override's non-empty fields on top of base.
func mergeOverride(base, override model.DependencySpec) model.DependencySpec {
	merged := base
	if override.URL != "" {
		merged.URL = override.URL
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.SubPath != "" {
		merged.SubPath = override.SubPath
	}
	return merged
}
