package providers

import (
	"fmt"
	"sort"
	"sync"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// Registry holds the configured providers keyed by Kind.
type Registry struct {
	mu        sync.RWMutex
	providers map[Kind]Provider
}

func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{providers: make(map[Kind]Provider)}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the provider for p.Kind().
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Kind()] = p
}

func (r *Registry) Get(kind Kind) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("[Registry.Get] %w: %s", autherrors.ErrUnknownProvider, kind)
	}
	return p, nil
}

// Kinds lists the registered kinds in a stable order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.providers))
	for k := range r.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
