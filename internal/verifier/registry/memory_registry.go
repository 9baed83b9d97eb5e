// Package registry holds the live set of verifier bindings consulted by
// registration and by the activation pipeline.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/SuYehTarn/jitr/internal/verifier/domain"
)

// MemoryRegistry is a concurrency-safe map of verifier bindings.
// Readers share the lock. Writers hold it exclusively, so a reader sees a
// binding either before or after a write, never a partial one.
type MemoryRegistry struct {
	mu        sync.RWMutex
	verifiers map[string]domain.Verifier
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		verifiers: make(map[string]domain.Verifier),
	}
}

// List returns a snapshot of all bindings ordered by name.
func (r *MemoryRegistry) List() []domain.Verifier {
	r.mu.RLock()
	out := make([]domain.Verifier, 0, len(r.verifiers))
	for _, v := range r.verifiers {
		out = append(out, v)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the bound names ordered ascending.
func (r *MemoryRegistry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, v := range list {
		names[i] = v.Name
	}
	return names
}

// Get returns the binding for name or ErrVerifierNotFound.
func (r *MemoryRegistry) Get(name string) (domain.Verifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.verifiers[name]
	if !ok {
		return domain.Verifier{}, domain.ErrVerifierNotFound
	}
	return v, nil
}

// Put creates or wholesale replaces the binding under v.Name.
func (r *MemoryRegistry) Put(v domain.Verifier) error {
	if strings.TrimSpace(v.Name) == "" {
		return domain.ErrInvalidVerifierName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.verifiers[v.Name] = v
	return nil
}

// Delete removes the binding. Deleting an absent name is a no-op.
func (r *MemoryRegistry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.verifiers, name)
}

// Replace swaps the whole content for vs in one step.
func (r *MemoryRegistry) Replace(vs []domain.Verifier) {
	next := make(map[string]domain.Verifier, len(vs))
	for _, v := range vs {
		next[v.Name] = v
	}

	r.mu.Lock()
	r.verifiers = next
	r.mu.Unlock()
}
