package gitdep

import (
	"fmt"
	"sync"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

// Kind distinguishes the two disjoint worktree registries a MultiDependency
// owns, per spec.md §4.A ("two disjoint registries mapping names to worktree
// paths — one for components and one for packages").
type Kind int

const (
	KindComponent Kind = iota
	KindPackage
)

func (k Kind) String() string {
	if k == KindPackage {
		return "package"
	}
	return "component"
}

// MultiDependency is the central type of the Git Dependency Manager: a
// per-remote-URL handle owning one bare repository and the set of
// component/package worktrees materialised from it.
type MultiDependency struct {
	URL      string // normalised
	BarePath string

	mu         sync.Mutex
	fetched    bool
	registered map[Kind]map[string]string // name -> worktree path
}

func newMultiDependency(normalisedURL, barePath string) *MultiDependency {
	return &MultiDependency{
		URL:      normalisedURL,
		BarePath: barePath,
		registered: map[Kind]map[string]string{
			KindComponent: {},
			KindPackage:   {},
		},
	}
}

// Register records the intent to materialise a worktree for name/kind at
// targetDir. It fails if the same (kind, name) was already registered with a
// different target, matching spec.md's AlreadyRegistered behaviour.
func (md *MultiDependency) Register(name string, kind Kind, targetDir string) error {
	md.mu.Lock()
	defer md.mu.Unlock()

	if existing, ok := md.registered[kind][name]; ok {
		if existing == targetDir {
			return nil
		}
		return cerrors.Dependency(nil, "%s %q is already registered at %q (requested %q)", kind, name, existing, targetDir)
	}
	md.registered[kind][name] = targetDir
	return nil
}

// WorktreePath returns the registered path for name/kind, if any.
func (md *MultiDependency) WorktreePath(name string, kind Kind) (string, bool) {
	md.mu.Lock()
	defer md.mu.Unlock()
	p, ok := md.registered[kind][name]
	return p, ok
}

// Names returns every registered name for kind, in registration order isn't
// preserved (map); callers sort for determinism per spec.md §4.C.
func (md *MultiDependency) Names(kind Kind) []string {
	md.mu.Lock()
	defer md.mu.Unlock()
	names := make([]string, 0, len(md.registered[kind]))
	for n := range md.registered[kind] {
		names = append(names, n)
	}
	return names
}

func (md *MultiDependency) markFetched() {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.fetched = true
}

func (md *MultiDependency) alreadyFetched() bool {
	md.mu.Lock()
	defer md.mu.Unlock()
	return md.fetched
}

// Manager owns every MultiDependency in a compile, keyed by normalised URL.
// It persists across compiles in long-running callers (spec.md §3,
// "Lifecycle: created on first registration... persists across compiles"),
// though a single `commodore catalog compile` process typically constructs
// one Manager per invocation.
type Manager struct {
	reposDir string

	mu   sync.Mutex
	deps map[string]*MultiDependency
}

func NewManager(reposDir string) *Manager {
	return &Manager{reposDir: reposDir, deps: map[string]*MultiDependency{}}
}

// GetOrCreate returns the MultiDependency for url (normalised internally),
// creating its bare-clone slot on first use.
func (m *Manager) GetOrCreate(rawURL string) *MultiDependency {
	normalised := Normalise(rawURL)
	m.mu.Lock()
	defer m.mu.Unlock()

	if md, ok := m.deps[normalised]; ok {
		return md
	}
	bare := BareClonePath(m.reposDir, normalised)
	md := newMultiDependency(normalised, bare)
	m.deps[normalised] = md
	return md
}

// All returns every MultiDependency registered so far, for enumeration
// (e.g. worktrees()).
func (m *Manager) All() []*MultiDependency {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MultiDependency, 0, len(m.deps))
	for _, md := range m.deps {
		out = append(out, md)
	}
	return out
}

func (m *Manager) String() string {
	return fmt.Sprintf("gitdep.Manager{reposDir=%s, deps=%d}", m.reposDir, len(m.deps))
}
