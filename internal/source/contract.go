// Package source adapts external bibliographic APIs to the normalized Paper
// shape. Each provider implements Connector; the fetcher iterates a Registry.
package source

import (
	"context"

	"github.com/querie/querie/internal/domain"
)

// Connector fetches candidate papers for a query from one provider.
//
// Fetch returns at most maxResults papers. Papers whose abstract is shorter
// than the provider's minimum useful length after cleaning are discarded here,
// not downstream. On a request deadline a connector returns whatever it had
// already parsed; errors are reported to the caller, which isolates them.
type Connector interface {
	Source() domain.Source
	Fetch(ctx context.Context, query string, maxResults int) ([]domain.Paper, error)
}

// Registry maps provider ids to connector instances. New providers are added
// by registering a new Connector; the fetcher never changes.
type Registry struct {
	order      []domain.Source
	connectors map[domain.Source]Connector
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[domain.Source]Connector)}
}

// Register adds a connector. Re-registering a source replaces it.
func (r *Registry) Register(c Connector) {
	if _, ok := r.connectors[c.Source()]; !ok {
		r.order = append(r.order, c.Source())
	}
	r.connectors[c.Source()] = c
}

// All returns registered connectors in registration order.
func (r *Registry) All() []Connector {
	out := make([]Connector, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, r.connectors[s])
	}
	return out
}

// Len returns the number of registered connectors.
func (r *Registry) Len() int { return len(r.connectors) }
