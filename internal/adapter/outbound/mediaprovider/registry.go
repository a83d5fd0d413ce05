// Package mediaprovider wires the provider adapters behind the gateway's adapter factory.
package mediaprovider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/fal"
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/kie"
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/modelscope"
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/ppio"
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
)

// Constructor builds one provider adapter.
type Constructor func(cfg media.ClientConfig, deps providerkit.Deps) (media.Adapter, error)

// Registry maps provider ids to adapter constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[media.ProviderID]Constructor
	deps         providerkit.Deps
}

// NewRegistry creates an empty registry. deps are handed to every constructor.
func NewRegistry(deps providerkit.Deps) *Registry {
	return &Registry{
		constructors: make(map[media.ProviderID]Constructor),
		deps:         deps.WithDefaults(),
	}
}

// NewDefaultRegistry registers the built-in providers.
func NewDefaultRegistry(deps providerkit.Deps) *Registry {
	r := NewRegistry(deps)
	r.Register(media.ProviderFal, func(cfg media.ClientConfig, deps providerkit.Deps) (media.Adapter, error) {
		return fal.New(cfg, deps)
	})
	r.Register(media.ProviderPPIO, func(cfg media.ClientConfig, deps providerkit.Deps) (media.Adapter, error) {
		return ppio.New(cfg, deps)
	})
	r.Register(media.ProviderKIE, func(cfg media.ClientConfig, deps providerkit.Deps) (media.Adapter, error) {
		return kie.New(cfg, deps)
	})
	r.Register(media.ProviderModelScope, func(cfg media.ClientConfig, deps providerkit.Deps) (media.Adapter, error) {
		return modelscope.New(cfg, deps)
	})
	return r
}

// Register adds or replaces the constructor for id.
func (r *Registry) Register(id media.ProviderID, fn Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[id] = fn
}

// Create builds a fresh adapter for id.
func (r *Registry) Create(id media.ProviderID, cfg media.ClientConfig) (media.Adapter, error) {
	r.mu.RLock()
	fn, ok := r.constructors[id]
	r.mu.RUnlock()
	if !ok {
		return nil, media.NewValidationError(media.ErrUnknownProvider, "no media adapter for provider %q", id)
	}

	a, err := fn(cfg, r.deps)
	if err != nil {
		return nil, fmt.Errorf("create %s adapter: %w", id, err)
	}
	return a, nil
}

// Providers returns the registered provider ids in sorted order.
func (r *Registry) Providers() []media.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]media.ProviderID, 0, len(r.constructors))
	for id := range r.constructors {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

var _ media.AdapterFactory = (*Registry)(nil)
