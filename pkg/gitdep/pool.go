package gitdep

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/projectsyn/commodore-go/pkg/toolprovider"
)

// Task describes a single worktree that needs to exist at a given version
// once its compile finishes (spec.md §4.A/§5 "Concurrency").
type Task struct {
	RawURL    string
	Name      string
	Kind      Kind
	TargetDir string
	Version   string
	Force     bool
}

// DefaultPoolSize bounds the number of concurrent checkouts when the caller
// does not override it (spec.md §5 mentions a worker pool without mandating
// a specific width; the width is fixed at 4 and does not follow
// GOMAXPROCS).
const DefaultPoolSize = 4

// RunTasks materialises every task's worktree, honouring spec.md §4.A/§5's
// concurrency discipline: all tasks sharing a remote URL are serialized
// behind that URL's single bare-repo fetch, but once fetched, checkouts for
// distinct aliases of the same URL — and checkouts across distinct URLs —
// proceed concurrently up to poolSize.
//
// Tasks are grouped by normalised URL first (one fetch per URL, regardless
// of how many aliases reference it), then each group's checkouts are
// dispatched as independent units of work onto the shared semaphore-limited
// pool: aliases whose URL has already been fetched in this compile are
// grouped by alias name instead of waiting behind unrelated URL fetches.
func RunTasks(ctx context.Context, mgr *Manager, tools toolprovider.Provider, tasks []Task, poolSize int) error {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	byURL := make(map[string][]Task)
	order := make([]string, 0)
	for _, t := range tasks {
		u := Normalise(t.RawURL)
		if _, ok := byURL[u]; !ok {
			order = append(order, u)
		}
		byURL[u] = append(byURL[u], t)
	}

	sem := semaphore.NewWeighted(int64(poolSize))
	g, ctx := errgroup.WithContext(ctx)

	for _, u := range order {
		u := u
		group := byURL[u]
		g.Go(func() error {
			md := mgr.GetOrCreate(u)
			if err := EnsureBareFetch(ctx, md); err != nil {
				return err
			}

			inner, innerCtx := errgroup.WithContext(ctx)
			for _, t := range group {
				t := t
				inner.Go(func() error {
					if err := sem.Acquire(innerCtx, 1); err != nil {
						return err
					}
					defer sem.Release(1)

					if err := md.Register(t.Name, t.Kind, t.TargetDir); err != nil {
						return err
					}
					return Checkout(innerCtx, tools, md, t.TargetDir, t.Version, t.Force)
				})
			}
			return inner.Wait()
		})
	}

	return g.Wait()
}
