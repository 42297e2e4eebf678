package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hedgemm/hmm/internal/domain"
)

// Registry manages available mod sources
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Resolver
}

// NewRegistry creates a new source registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Resolver),
	}
}

// Register adds a source to the registry, replacing any source with the same ID
func (r *Registry) Register(src Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.ID()] = src
}

// Get retrieves a source by ID
func (r *Registry) Get(id string) (Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return src, nil
}

// List returns all registered sources ordered by ID
func (r *Registry) List() []Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]Resolver, 0, len(r.sources))
	for _, s := range r.sources {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].ID() < sources[j].ID()
	})
	return sources
}

// Lookup resolves a "sourceID:ref" string through the matching source
func (r *Registry) Lookup(ctx context.Context, reference string) (*domain.RemoteFile, error) {
	id, ref, err := ParseReference(reference)
	if err != nil {
		return nil, err
	}
	src, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	file, err := src.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", reference, err)
	}
	if file.SourceID == "" {
		file.SourceID = id
	}
	if file.Ref == "" {
		file.Ref = ref
	}
	return file, nil
}
