package inventory

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
	"github.com/projectsyn/commodore-go/pkg/model"
	"github.com/projectsyn/commodore-go/pkg/value"
	"github.com/projectsyn/commodore-go/pkg/workdir"
)

// Options configures the evaluator's behaviour, mirroring the knobs spec.md
// §4.B says the Resolver must provide the evaluator ("storage paths, 'ignore
// class not found' policy, allowed-none-override semantics for
// interpolation"). AllowNoneOverride is accepted for interface completeness
// with the evaluator but has no effect on this Go reimplementation's merge
// semantics, since value.Merge already treats a null "over" as "keep base"
// (spec.md §9 Value design note).
type Options struct {
	IgnoreClassNotFound bool
	AllowNoneOverride   bool
}

// Resolver is the adapter of spec.md §4.B: it owns the evaluator
// configuration, caches the most recent evaluation per target name, and
// exposes helpers for reading `applications` and arbitrary dotted keys.
type Resolver struct {
	dirs workdir.Dirs
	opts Options

	mu    sync.Mutex
	cache map[string]value.Value
}

func NewResolver(dirs workdir.Dirs, opts Options) *Resolver {
	return &Resolver{dirs: dirs, opts: opts, cache: map[string]value.Value{}}
}

// Evaluate reads the target file named target.Name (or uses target.Classes
// directly for the bootstrap target, which has no file yet) and produces
// its fully-merged parameter tree, replacing any previously cached result
// for that target name (spec.md §4.B "re-invoke after every stage that
// writes classes or targets"; §5 "Inventory re-evaluation freshness").
func (r *Resolver) Evaluate(target model.Target) (value.Value, error) {
	classes := target.Classes
	params := map[string]interface{}{}

	if !target.Bootstrap {
		tf, err := loadTargetFile(r.dirs.TargetFile(target.Name))
		if err != nil {
			return value.Value{}, err
		}
		if len(tf.Classes) > 0 {
			classes = tf.Classes
		}
		params = tf.Parameters
	}

	result, err := evaluate(r.dirs.ClassesDir(), classes, params, r.opts.IgnoreClassNotFound)
	if err != nil {
		return value.Value{}, err
	}

	r.mu.Lock()
	r.cache[target.Name] = result
	r.mu.Unlock()

	return result, nil
}

// Last returns the most recently cached evaluation for targetName, if any.
func (r *Resolver) Last(targetName string) (value.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache[targetName]
	return v, ok
}

// Invalidate drops the cached evaluation for targetName, forcing the next
// Applications/At call to fail loudly instead of returning stale data.
func (r *Resolver) Invalidate(targetName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, targetName)
}

// Applications reads the `applications` key of targetName's last evaluation.
func (r *Resolver) Applications(targetName string) (value.Value, error) {
	v, ok := r.Last(targetName)
	if !ok {
		return value.Value{}, cerrors.Discovery("target %q has not been evaluated yet", targetName)
	}
	node, err := v.At("applications")
	if err != nil {
		return value.Value{}, err
	}
	return node, nil
}

// At reads an arbitrary dotted key from targetName's last evaluation.
func (r *Resolver) At(targetName, path string) (value.Value, error) {
	v, ok := r.Last(targetName)
	if !ok {
		return value.Value{}, cerrors.Discovery("target %q has not been evaluated yet", targetName)
	}
	return v.At(path)
}

type targetFile struct {
	Classes    []string               `yaml:"classes"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

func loadTargetFile(path string) (*targetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.Discovery("reading target file %s: %v", path, err)
	}
	var tf targetFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, cerrors.Discovery("parsing target file %s: %v", path, err)
	}
	return &tf, nil
}
