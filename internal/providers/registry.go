package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mrlokans/gallery/internal/entities"
)

// Factory builds a client for one connection. creds may hold only the
// application keys while a connection is being established.
type Factory func(creds *entities.Credentials) (Provider, error)

// Registration describes a provider available for import.
type Registration struct {
	Name        string
	DisplayName string
	// RequiresAPIKey means the user supplies application keys on connect.
	RequiresAPIKey bool
	Factory        Factory
}

// Registry maps provider names to factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

func (r *Registry) Register(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[reg.Name] = reg
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.entries[name]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return reg, nil
}

// New builds a client for name from creds.
func (r *Registry) New(name string, creds *entities.Credentials) (Provider, error) {
	reg, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return reg.Factory(creds)
}

// List returns registrations sorted by name.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		list = append(list, reg)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
