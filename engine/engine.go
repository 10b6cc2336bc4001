// Package engine defines the capability contract every backend adapter
// implements, and the registry that resolves adapters by name.
package engine

import (
	"context"
	"fmt"

	"github.com/rivlab/analytics-core/structs"
)

// Engine is the uniform capability surface over a backend store. Every
// adapter compiles the query IR into its native grammar and decompiles
// native responses back into flat rows.
type Engine interface {
	// Name is the adapter name datasets register against
	Name() string

	// DiscoverRange returns best-effort bounds within which the dataset
	// has data; a zero RangeSpec means the dataset appears empty.
	DiscoverRange(ctx context.Context, ds structs.Dataset) (structs.RangeSpec, error)

	// DiscoverSchema infers the dataset's dimensions and measures,
	// optionally limited to a time range.
	DiscoverSchema(ctx context.Context, ds structs.Dataset, rng structs.RangeSpec) (*structs.Schema, error)

	// Rollup returns grouped, aggregated, sorted, limited rows keyed by
	// the distinct combination of requested dimension values.
	Rollup(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error)

	// Scan returns raw matching records ordered by the dataset's
	// timestamp field, limited.
	Scan(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error)

	// Timeseries is a rollup always grouped by a time bucket derived
	// from the query granularity.
	Timeseries(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error)

	// DistinctValues returns {value, count} rows for a single field
	DistinctValues(ctx context.Context, ds structs.Dataset, q structs.ValuesQuery) ([]structs.Row, error)
}

// Inserter is implemented by adapters over mutable, document-oriented
// stores. Adapters without it reject inserts with ErrUnsupportedCapability
// at dispatch.
type Inserter interface {
	Insert(ctx context.Context, ds structs.Dataset, doc structs.Row) error
}

// BatchInserter is an optional fast path for the ingest pipeline
type BatchInserter interface {
	InsertBatch(ctx context.Context, ds structs.Dataset, docs []structs.Row) error
}

// Registry maps adapter names to implementations. It is populated once at
// startup and read-only afterwards; unknown names are rejected when a
// dataset registers, not at call time.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an adapter. Duplicate names are a configuration error.
func (r *Registry) Register(e Engine) error {
	name := e.Name()
	if name == "" {
		return fmt.Errorf("adapter has empty name")
	}
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("adapter %q already registered", name)
	}
	r.engines[name] = e
	return nil
}

// Lookup resolves an adapter by name
func (r *Registry) Lookup(name string) (Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Names returns the registered adapter names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	return names
}
