package postprocess

import "github.com/projectsyn/commodore-go/pkg/value"

// BuiltinFunc is a built-in postprocess filter's implementation, operating
// in place on the manifest tree rooted at outputPath.
type BuiltinFunc func(outputPath string, args value.Value) error

// Registry is the closed set of built-in filters (spec.md §4.F, §9 "expose
// it as a tagged variant rather than dynamic dispatch").
type Registry struct {
	builtins map[string]BuiltinFunc
}

// NewRegistry returns the registry pre-populated with the reference
// implementation's one built-in filter, helm_namespace.
func NewRegistry() *Registry {
	r := &Registry{builtins: map[string]BuiltinFunc{}}
	r.builtins["helm_namespace"] = helmNamespaceFilter
	return r
}

func (r *Registry) Builtin(name string) (BuiltinFunc, bool) {
	fn, ok := r.builtins[name]
	return fn, ok
}
