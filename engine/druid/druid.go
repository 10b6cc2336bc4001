// Package druid adapts the query IR onto a columnar real-time store that
// speaks native JSON queries over HTTP.
package druid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rivlab/analytics-core/engine"
	"github.com/rivlab/analytics-core/structs"
)

// Name is the adapter name datasets register against
const Name = "druid"

// Client executes one native query against the store's query endpoint and
// returns the raw response body.
type Client interface {
	Query(ctx context.Context, query any) (json.RawMessage, error)
}

// Engine is the columnar-store adapter
type Engine struct {
	client Client
	log    *zap.Logger
	now    func() time.Time
}

var _ engine.Engine = (*Engine)(nil)

func New(client Client, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{client: client, log: log, now: time.Now}
}

func (e *Engine) Name() string { return Name }

// execute compiles, posts and decodes one query
func (e *Engine) execute(ctx context.Context, ds structs.Dataset, req buildRequest) ([]map[string]any, error) {
	native, err := buildNative(ds, req, e.now())
	if err != nil {
		return nil, err
	}
	e.log.Debug("druid query",
		zap.String("dataset", ds.ID),
		zap.String("queryType", req.kind))

	raw, err := e.client.Query(ctx, native)
	if err != nil {
		return nil, &structs.TransportError{Backend: Name, Err: err}
	}
	var data []map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &structs.TransportError{Backend: Name, Err: fmt.Errorf("bad response body: %w", err)}
	}
	return data, nil
}

// DiscoverRange asks for segment metadata and reads the bounds of the most
// recent interval.
func (e *Engine) DiscoverRange(ctx context.Context, ds structs.Dataset) (structs.RangeSpec, error) {
	data, err := e.execute(ctx, ds, buildRequest{kind: "segmentMetadata"})
	if err != nil {
		return structs.RangeSpec{}, err
	}
	schema := normalizeSchema(data)
	if len(schema.Intervals) == 0 {
		return structs.RangeSpec{}, nil
	}
	last := schema.Intervals[len(schema.Intervals)-1]
	parts := strings.SplitN(last, "/", 2)
	if len(parts) != 2 {
		return structs.RangeSpec{}, nil
	}
	return structs.RangeSpec{Start: parts[0], End: parts[1]}, nil
}

// DiscoverSchema requests merged segment metadata over the range. The
// eight virtual time dimensions are always appended, even when absent from
// the physical schema.
func (e *Engine) DiscoverSchema(ctx context.Context, ds structs.Dataset, rng structs.RangeSpec) (*structs.Schema, error) {
	data, err := e.execute(ctx, ds, buildRequest{
		kind:  "segmentMetadata",
		merge: true,
		query: structs.Query{Range: rng},
	})
	if err != nil {
		return nil, err
	}
	schema := normalizeSchema(data)
	schema.Dimensions = append(schema.Dimensions, virtualTimeDimensions...)
	return schema, nil
}

func (e *Engine) Rollup(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error) {
	data, err := e.execute(ctx, ds, buildRequest{kind: "groupBy", query: q})
	if err != nil {
		return nil, err
	}
	return normalizeRows("groupBy", data), nil
}

func (e *Engine) Timeseries(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error) {
	data, err := e.execute(ctx, ds, buildRequest{kind: "timeseries", query: q})
	if err != nil {
		return nil, err
	}
	return normalizeRows("timeseries", data), nil
}

func (e *Engine) Scan(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error) {
	data, err := e.execute(ctx, ds, buildRequest{kind: "scan", query: q})
	if err != nil {
		return nil, err
	}
	return normalizeRows("scan", data), nil
}

// DistinctValues runs a case-insensitive substring search over one
// dimension, sorted lexicographically.
func (e *Engine) DistinctValues(ctx context.Context, ds structs.Dataset, q structs.ValuesQuery) ([]structs.Row, error) {
	if q.Field == "" {
		return nil, structs.ErrMissingRequiredField
	}
	data, err := e.execute(ctx, ds, buildRequest{
		kind:       "search",
		searchTerm: q.Search,
		query: structs.Query{
			Dimensions: []structs.Dimension{{Field: q.Field}},
			Range:      q.Range,
			Limit:      q.Limit,
		},
	})
	if err != nil {
		return nil, err
	}
	return normalizeRows("search", data), nil
}
