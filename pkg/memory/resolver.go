package memory

import (
	"context"
	"sync"

	"github.com/papercomputeco/engram/pkg/storage"
)

// resolver maps human-readable project names to stable project rows,
// creating them lazily on first reference. Resolved projects are cached for
// the life of the process; projects are never deleted by this subsystem.
type resolver struct {
	store       storage.Driver
	defaultName string

	mu    sync.RWMutex
	cache map[string]*storage.Project
}

func newResolver(store storage.Driver, defaultName string) *resolver {
	return &resolver{
		store:       store,
		defaultName: defaultName,
		cache:       make(map[string]*storage.Project),
	}
}

// resolve returns the project row for a name, creating it if absent. An
// empty name resolves to the configured default project. Safe under
// concurrent first use: the structured store's create-or-fetch is
// idempotent, so racing callers converge on the same row.
func (r *resolver) resolve(ctx context.Context, name string) (*storage.Project, error) {
	if name == "" {
		name = r.defaultName
	}

	r.mu.RLock()
	p, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := r.store.GetOrCreateProject(ctx, name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[name] = p
	r.mu.Unlock()

	return p, nil
}
