// Package discovery implements the Dependency Discovery & Version Binder
// (spec.md §4.C): parsing the bootstrap target's `applications` entries into
// component bases, aliases, and packages, then binding each to a
// DependencySpec read from the bootstrap target's parameters.
package discovery

import (
	"sort"
	"strings"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/value"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

// PackagePrefix marks an `applications` entry as a package rather than a
// component (spec.md §3 "Inventory").
const PackagePrefix = "pkg."

// Result is the parsed shape of `applications` before version binding.
type Result struct {
	// ComponentBases is the set of base component names, sorted by name.
	ComponentBases []string
	// AliasToBase maps every alias (including identity aliases) to its base
	// component name.
	AliasToBase map[string]string
	// AliasOrder preserves declaration order of aliases for deterministic
	// downstream processing.
	AliasOrder []string
	// PackageNames is the set of package names, sorted by name.
	PackageNames []string
}

// ParseApplications parses the `applications` list of the bootstrap target's
// evaluated inventory into component bases, aliases, and packages, applying
// the rules of spec.md §4.C.
func ParseApplications(inv value.Value) (*Result, error) {
	entries, err := inv.GetListAt("applications")
	if err != nil {
		if _, ok := err.(*value.NotFoundError); ok {
			return &Result{AliasToBase: map[string]string{}}, nil
		}
		return nil, cerrors.Discovery("reading applications: %v", err)
	}

	res := &Result{AliasToBase: map[string]string{}}
	seenBase := map[string]bool{}
	seenPackage := map[string]bool{}
	// aliasBases tracks every base name that has declared a given alias, to
	// detect DuplicateAlias.
	aliasBases := map[string][]string{}

	for _, entry := range entries {
		if !entry.IsString() {
			return nil, cerrors.Discovery("applications entry %v is not a string", entry)
		}
		raw := strings.TrimSpace(entry.AsString())
		if raw == "" {
			continue
		}

		if strings.HasPrefix(raw, PackagePrefix) {
			name := strings.TrimPrefix(raw, PackagePrefix)
			if err := validatePackageName(name); err != nil {
				return nil, err
			}
			if !seenPackage[name] {
				seenPackage[name] = true
				res.PackageNames = append(res.PackageNames, name)
			}
			continue
		}

		base, alias, err := parseEntry(raw)
		if err != nil {
			return nil, err
		}

		if !seenBase[base] {
			seenBase[base] = true
			res.ComponentBases = append(res.ComponentBases, base)
		}

		if _, ok := res.AliasToBase[alias]; !ok {
			res.AliasOrder = append(res.AliasOrder, alias)
		}
		res.AliasToBase[alias] = base
		aliasBases[alias] = appendUnique(aliasBases[alias], base)
	}

	for alias, bases := range aliasBases {
		if len(bases) <= 1 {
			continue
		}
		if containsString(bases, alias) {
			others := removeString(bases, alias)
			sort.Strings(others)
			return nil, cerrors.Discovery("component(s) %s alias existing component %q", strings.Join(others, ", "), alias)
		}
		sorted := append([]string(nil), bases...)
		sort.Strings(sorted)
		return nil, cerrors.Discovery("alias %q is declared by multiple components: %s", alias, strings.Join(sorted, ", "))
	}

	sort.Strings(res.ComponentBases)
	sort.Strings(res.PackageNames)

	return res, nil
}

// parseEntry parses "<name>" or "<name> as <alias>" into (base, alias). A
// bare name's alias is itself (the identity alias).
func parseEntry(raw string) (base, alias string, err error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		return fields[0], fields[0], nil
	case 3:
		if fields[1] != "as" {
			return "", "", cerrors.Discovery("malformed applications entry %q", raw)
		}
		return fields[0], fields[2], nil
	default:
		return "", "", cerrors.Discovery("malformed applications entry %q", raw)
	}
}

func validatePackageName(name string) error {
	if name == "" {
		return cerrors.Discovery("empty package name")
	}
	if workdir.ReservedPackageNames[name] {
		return cerrors.Discovery("package name %q is reserved", name)
	}
	if strings.HasPrefix(name, workdir.TenantPackagePrefix) {
		return cerrors.Discovery("package name %q uses the reserved tenant prefix %q", name, workdir.TenantPackagePrefix)
	}
	return nil
}

func appendUnique(s []string, v string) []string {
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}

func containsString(s []string, v string) bool {
	for _, existing := range s {
		if existing == v {
			return true
		}
	}
	return false
}

func removeString(s []string, v string) []string {
	out := make([]string, 0, len(s)-1)
	for _, existing := range s {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}
