// Package route maps logical model ids to vendor endpoints and payload builders.
package route

import (
	"sort"
	"strings"

	"github.com/uniedit/mediagen/internal/domain/media"
)

// Request is the vendor call a builder produces.
type Request struct {
	// Endpoint is the vendor path, possibly including a sub-route such as "/edit".
	Endpoint string
	// CanonicalModelID is the id used for status polling.
	CanonicalModelID string
	Payload          map[string]any
}

// Matcher reports whether a route serves a model id.
type Matcher func(modelID string) bool

// Route binds a matcher to a payload builder. Routes are immutable once registered.
type Route[P any] struct {
	Name     string
	Priority int
	Match    Matcher
	Build    func(P) (Request, error)
}

// Router holds an ordered route table.
type Router[P any] struct {
	provider media.ProviderID
	routes   []Route[P]
}

// New builds a router. Higher priority wins; registration order breaks ties.
func New[P any](provider media.ProviderID, routes ...Route[P]) *Router[P] {
	sorted := make([]Route[P], len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Router[P]{provider: provider, routes: sorted}
}

// Find returns the first route matching modelID.
func (r *Router[P]) Find(modelID string) (Route[P], bool) {
	for _, rt := range r.routes {
		if rt.Match != nil && rt.Match(modelID) {
			return rt, true
		}
	}
	return Route[P]{}, false
}

// Resolve is Find with an unsupported-model validation error.
func (r *Router[P]) Resolve(modelID string) (Route[P], error) {
	rt, ok := r.Find(modelID)
	if !ok {
		return Route[P]{}, media.NewValidationError(media.ErrUnsupportedModel, "%s: model %q", r.provider, modelID)
	}
	return rt, nil
}

// Names lists route names in match order.
func (r *Router[P]) Names() []string {
	names := make([]string, len(r.routes))
	for i, rt := range r.routes {
		names[i] = rt.Name
	}
	return names
}

// Exact matches any of ids verbatim.
func Exact(ids ...string) Matcher {
	return func(modelID string) bool {
		for _, id := range ids {
			if modelID == id {
				return true
			}
		}
		return false
	}
}

// Contains matches when modelID contains any of subs.
func Contains(subs ...string) Matcher {
	return func(modelID string) bool {
		for _, s := range subs {
			if strings.Contains(modelID, s) {
				return true
			}
		}
		return false
	}
}

// Any matches when any of matchers does.
func Any(matchers ...Matcher) Matcher {
	return func(modelID string) bool {
		for _, m := range matchers {
			if m(modelID) {
				return true
			}
		}
		return false
	}
}
