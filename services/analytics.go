package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/rivlab/analytics-core/engine"
	"github.com/rivlab/analytics-core/settings"
	"github.com/rivlab/analytics-core/structs"
)

// Coordinator owns the dataset registrations and dispatches every query
// operation to the dataset's adapter. It is the only component that knows
// which dataset lives behind which backend.
var _ Writer = (*Coordinator)(nil)

type Coordinator struct {
	registry *engine.Registry
	datasets map[string]structs.Dataset
	store    settings.Store
	log      *zap.Logger
}

func NewCoordinator(registry *engine.Registry, store settings.Store, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		registry: registry,
		datasets: make(map[string]structs.Dataset),
		store:    store,
		log:      log,
	}
}

// RegisterDataset binds a dataset to its adapter. An unknown adapter name
// is rejected here so every later dispatch can assume one exists.
func (c *Coordinator) RegisterDataset(ds structs.Dataset) error {
	if ds.ID == "" {
		return fmt.Errorf("%w: dataset id is required", structs.ErrInvalidDataset)
	}
	if ds.Store.First() == "" {
		return fmt.Errorf("%w: dataset %q has no store", structs.ErrInvalidDataset, ds.ID)
	}
	if _, ok := c.registry.Lookup(ds.Adapter); !ok {
		return fmt.Errorf("%w: %q (dataset %q)", structs.ErrUnknownAdapter, ds.Adapter, ds.ID)
	}
	if _, exists := c.datasets[ds.ID]; exists {
		return fmt.Errorf("dataset %q already registered", ds.ID)
	}
	c.datasets[ds.ID] = ds
	c.log.Info("registered dataset",
		zap.String("dataset", ds.ID),
		zap.String("adapter", ds.Adapter))
	return nil
}

// Datasets returns the registered datasets sorted by id
func (c *Coordinator) Datasets() []structs.Dataset {
	out := make([]structs.Dataset, 0, len(c.datasets))
	for _, ds := range c.datasets {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Coordinator) resolve(id string) (structs.Dataset, engine.Engine, error) {
	ds, ok := c.datasets[id]
	if !ok {
		return structs.Dataset{}, nil, fmt.Errorf("%w: %q", structs.ErrInvalidDataset, id)
	}
	eng, ok := c.registry.Lookup(ds.Adapter)
	if !ok {
		// registration guarantees this cannot happen
		return structs.Dataset{}, nil, fmt.Errorf("%w: %q", structs.ErrUnknownAdapter, ds.Adapter)
	}
	return ds, eng, nil
}

func (c *Coordinator) Range(ctx context.Context, dataset string) (structs.RangeSpec, error) {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return structs.RangeSpec{}, err
	}
	return eng.DiscoverRange(ctx, ds)
}

func (c *Coordinator) Schema(ctx context.Context, dataset string, rng structs.RangeSpec) (*structs.Schema, error) {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return nil, err
	}
	return eng.DiscoverSchema(ctx, ds, rng)
}

func (c *Coordinator) Rollup(ctx context.Context, dataset string, q structs.Query) ([]structs.Row, error) {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return nil, err
	}
	return eng.Rollup(ctx, ds, q)
}

func (c *Coordinator) Scan(ctx context.Context, dataset string, q structs.Query) ([]structs.Row, error) {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return nil, err
	}
	return eng.Scan(ctx, ds, q)
}

func (c *Coordinator) Timeseries(ctx context.Context, dataset string, q structs.Query) ([]structs.Row, error) {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return nil, err
	}
	return eng.Timeseries(ctx, ds, q)
}

func (c *Coordinator) Values(ctx context.Context, dataset string, q structs.ValuesQuery) ([]structs.Row, error) {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return nil, err
	}
	return eng.DistinctValues(ctx, ds, q)
}

// Insert stores one record in the dataset's backend. Adapters over
// read-only stores reject the call.
func (c *Coordinator) Insert(ctx context.Context, dataset string, doc structs.Row) error {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return err
	}
	ins, ok := eng.(engine.Inserter)
	if !ok {
		return fmt.Errorf("%w: adapter %q cannot insert", structs.ErrUnsupportedCapability, ds.Adapter)
	}
	return ins.Insert(ctx, ds, doc)
}

func (c *Coordinator) InsertBatch(ctx context.Context, dataset string, docs []structs.Row) error {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return err
	}
	if batch, ok := eng.(engine.BatchInserter); ok {
		return batch.InsertBatch(ctx, ds, docs)
	}
	ins, ok := eng.(engine.Inserter)
	if !ok {
		return fmt.Errorf("%w: adapter %q cannot insert", structs.ErrUnsupportedCapability, ds.Adapter)
	}
	for _, doc := range docs {
		if err := ins.Insert(ctx, ds, doc); err != nil {
			return err
		}
	}
	return nil
}

// CanInsert reports whether the dataset's adapter accepts inserts, so
// the ingest surface can reject documents before queueing them
func (c *Coordinator) CanInsert(dataset string) error {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return err
	}
	if _, ok := eng.(engine.Inserter); !ok {
		return fmt.Errorf("%w: adapter %q cannot insert", structs.ErrUnsupportedCapability, ds.Adapter)
	}
	return nil
}

// WriteBatch lets the batcher flush straight through the coordinator
func (c *Coordinator) WriteBatch(ctx context.Context, dataset string, docs []structs.Row) error {
	return c.InsertBatch(ctx, dataset, docs)
}

// Settings loads the user's saved settings for a dataset, bootstrapping a
// fresh instance on first access: range from the backend's discovered
// bounds, the first discovered dimension, and a count-preferred measure.
func (c *Coordinator) Settings(ctx context.Context, user, dataset string) (*settings.QuerySettings, error) {
	ds, eng, err := c.resolve(dataset)
	if err != nil {
		return nil, err
	}

	pub := &settings.StorePublisher{Store: c.store, User: user, Dataset: dataset}
	saved, err := c.store.Find(ctx, user, dataset)
	if err != nil {
		return nil, err
	}
	if saved != nil {
		saved.SetPublisher(pub)
		return saved, nil
	}

	s := settings.New(pub)

	rng, err := eng.DiscoverRange(ctx, ds)
	if err != nil {
		c.log.Warn("range discovery failed during settings bootstrap",
			zap.String("dataset", dataset), zap.Error(err))
	} else if !rng.IsZero() {
		s.SetRange(rng)
	}

	schema, err := eng.DiscoverSchema(ctx, ds, s.Range)
	if err != nil {
		c.log.Warn("schema discovery failed during settings bootstrap",
			zap.String("dataset", dataset), zap.Error(err))
		return s, nil
	}

	if len(schema.Dimensions) > 0 {
		first := schema.Dimensions[0]
		s.AddDimension(structs.Dimension{Field: first.Name, Title: first.Name})
	}
	if m, ok := bootstrapMeasure(schema.Measures); ok {
		s.AddMeasure(m)
	}
	return s, nil
}

// bootstrapMeasure prefers the virtual count measure, falling back to the
// first discovered one
func bootstrapMeasure(measures []structs.SchemaField) (structs.Measure, bool) {
	if len(measures) == 0 {
		return structs.Measure{}, false
	}
	pick := measures[0]
	for _, m := range measures {
		if m.Name == "Count" {
			pick = m
			break
		}
	}
	typ := structs.AggLongSum
	if pick.Type == "count" {
		typ = structs.AggCount
	}
	return structs.Measure{Field: pick.Name, Title: pick.Name, Type: typ}, true
}

// SaveSettings replaces the user's stored settings wholesale
func (c *Coordinator) SaveSettings(ctx context.Context, user, dataset string, s *settings.QuerySettings) error {
	if _, _, err := c.resolve(dataset); err != nil {
		return err
	}
	return c.store.Save(ctx, user, dataset, s)
}
