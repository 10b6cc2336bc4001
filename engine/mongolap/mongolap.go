// Package mongolap adapts the query contract onto a document store,
// compiling requests into aggregation pipelines and find commands.
package mongolap

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/rivlab/analytics-core/engine"
	"github.com/rivlab/analytics-core/structs"
	"github.com/rivlab/analytics-core/timerange"
)

const (
	Name = "mongolap"

	defaultTimestampField = "Timestamp"
	defaultScanLimit      = 100
	rangeSampleSize       = 25

	// countMeasure is the virtual document-tally measure every dataset
	// exposes without a backing field
	countMeasure = "Count"
)

// FindOptions is the subset of find options the adapter uses
type FindOptions struct {
	Sort  bson.D
	Limit int64
}

// Collection is the store surface the adapter needs. The production
// implementation wraps a driver collection; tests substitute an
// in-memory one.
type Collection interface {
	Find(ctx context.Context, filter bson.M, opts FindOptions) ([]bson.M, error)
	FindOne(ctx context.Context, filter bson.M, opts FindOptions) (bson.M, error)
	Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error)
	InsertOne(ctx context.Context, doc bson.M) error
	InsertMany(ctx context.Context, docs []bson.M) error
}

// Database resolves collections by name
type Database interface {
	Collection(name string) Collection
}

// Engine serves datasets backed by a single document-store database,
// one collection per dataset.
type Engine struct {
	db  Database
	log *zap.Logger
	now func() time.Time
}

var _ engine.Engine = (*Engine)(nil)
var _ engine.Inserter = (*Engine)(nil)
var _ engine.BatchInserter = (*Engine)(nil)

func New(db Database, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{db: db, log: log, now: time.Now}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) collection(ds structs.Dataset) Collection {
	return e.db.Collection(ds.Store.First())
}

func tsField(ds structs.Dataset) string {
	if ds.TimestampField != "" {
		return ds.TimestampField
	}
	return defaultTimestampField
}

// DiscoverRange samples the newest documents in insertion order and
// bounds the range by their timestamps, falling back to the object id's
// embedded creation time when the timestamp field is absent.
func (e *Engine) DiscoverRange(ctx context.Context, ds structs.Dataset) (structs.RangeSpec, error) {
	docs, err := e.collection(ds).Find(ctx, bson.M{}, FindOptions{
		Sort:  bson.D{{Key: "_id", Value: -1}},
		Limit: rangeSampleSize,
	})
	if err != nil {
		return structs.RangeSpec{}, &structs.TransportError{Backend: Name, Err: err}
	}
	if len(docs) == 0 {
		return structs.RangeSpec{}, nil
	}
	field := tsField(ds)
	// docs are newest-first
	start, okStart := docTime(docs[len(docs)-1], field)
	end, okEnd := docTime(docs[0], field)
	if !okStart || !okEnd {
		return structs.RangeSpec{}, nil
	}
	return structs.RangeSpec{
		Start: start.UTC().Format(time.RFC3339Nano),
		End:   end.UTC().Format(time.RFC3339Nano),
	}, nil
}

// docTime extracts a document's timestamp, trying the timestamp field
// first and the object id second
func docTime(doc bson.M, field string) (time.Time, bool) {
	switch v := doc[field].(type) {
	case time.Time:
		return v, true
	case primitive.DateTime:
		return v.Time(), true
	}
	if id, ok := doc["_id"].(primitive.ObjectID); ok {
		return id.Timestamp(), true
	}
	return time.Time{}, false
}

// DiscoverSchema infers fields from the newest document in range. Fields
// the dataset declares as measures become sum measures, everything else a
// string dimension; the virtual count measure is always appended.
func (e *Engine) DiscoverSchema(ctx context.Context, ds structs.Dataset, rng structs.RangeSpec) (*structs.Schema, error) {
	filter := bson.M{}
	field := tsField(ds)
	if !rng.IsZero() {
		tf, err := rangeFilter(rng, e.now())
		if err != nil {
			return nil, err
		}
		filter[field] = tf
	}
	doc, err := e.collection(ds).FindOne(ctx, filter, FindOptions{
		Sort: bson.D{{Key: "_id", Value: -1}},
	})
	if err != nil {
		return nil, &structs.TransportError{Backend: Name, Err: err}
	}

	declared := make(map[string]bool, len(ds.Measures))
	for _, m := range ds.Measures {
		declared[m] = true
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	schema := &structs.Schema{}
	for _, name := range names {
		if name == "_id" || name == field {
			continue
		}
		if declared[name] {
			schema.Measures = append(schema.Measures, structs.SchemaField{Name: name, Type: "longSum"})
		} else {
			schema.Dimensions = append(schema.Dimensions, structs.SchemaField{Name: name, Type: "string"})
		}
	}
	schema.Measures = append(schema.Measures, structs.SchemaField{Name: countMeasure, Type: "count"})
	return schema, nil
}

func (e *Engine) aggregate(ctx context.Context, ds structs.Dataset, p queryParams) ([]structs.Row, error) {
	p.timestampField = tsField(ds)
	pipeline, err := buildPipeline(p, e.now())
	if err != nil {
		return nil, err
	}
	e.log.Debug("mongolap aggregate",
		zap.String("dataset", ds.ID),
		zap.Int("stages", len(pipeline)))
	docs, err := e.collection(ds).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &structs.TransportError{Backend: Name, Err: err}
	}
	return postProcess(docs, p), nil
}

func (e *Engine) Rollup(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error) {
	return e.aggregate(ctx, ds, queryParams{
		rng:         q.Range,
		dimensions:  q.Dimensions,
		measures:    q.Measures,
		granularity: q.Granularity,
		limit:       q.Limit,
	})
}

// Timeseries is a rollup bucketed by time with no row cap; callers page
// by narrowing the range instead
func (e *Engine) Timeseries(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error) {
	g := q.Granularity
	if g == structs.GranularityAll || g == "" {
		g = structs.GranularityHour
	}
	return e.aggregate(ctx, ds, queryParams{
		rng:         q.Range,
		dimensions:  q.Dimensions,
		measures:    q.Measures,
		granularity: g,
	})
}

// Scan returns raw documents ordered by timestamp. Every row carries a
// count of one so scan output composes with rollup consumers.
func (e *Engine) Scan(ctx context.Context, ds structs.Dataset, q structs.Query) ([]structs.Row, error) {
	field := tsField(ds)
	filter := bson.M{}
	if !q.Range.IsZero() {
		tf, err := rangeFilter(q.Range, e.now())
		if err != nil {
			return nil, err
		}
		filter[field] = tf
	} else {
		filter[field] = timestampExists()
	}
	for _, d := range q.Dimensions {
		applyDimensionFilters(filter, d)
	}

	order := 1
	if q.Order == structs.SortDescending {
		order = -1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultScanLimit
	}

	docs, err := e.collection(ds).Find(ctx, filter, FindOptions{
		Sort:  bson.D{{Key: field, Value: order}},
		Limit: int64(limit),
	})
	if err != nil {
		return nil, &structs.TransportError{Backend: Name, Err: err}
	}

	rows := make([]structs.Row, 0, len(docs))
	for _, doc := range docs {
		row := make(structs.Row, len(doc))
		for k, v := range doc {
			if k == "_id" {
				continue
			}
			row[k] = v
		}
		row[countMeasure] = 1
		rows = append(rows, row)
	}
	return rows, nil
}

// DistinctValues groups matching documents by one field and counts each
// distinct value, optionally narrowed by a case-insensitive search term.
func (e *Engine) DistinctValues(ctx context.Context, ds structs.Dataset, q structs.ValuesQuery) ([]structs.Row, error) {
	if q.Field == "" {
		return nil, structs.ErrMissingRequiredField
	}
	field := tsField(ds)
	match := bson.M{q.Field: bson.M{"$exists": true}}
	if !q.Range.IsZero() {
		tf, err := rangeFilter(q.Range, e.now())
		if err != nil {
			return nil, err
		}
		match[field] = tf
	}
	if q.Search != "" {
		match[q.Field] = bson.M{"$regex": q.Search, "$options": "i"}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$" + q.Field,
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$project", Value: bson.M{
			"_id":   false,
			"value": "$_id",
			"count": true,
		}}},
	}
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: q.Limit}})
	}

	docs, err := e.collection(ds).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, &structs.TransportError{Backend: Name, Err: err}
	}
	rows := make([]structs.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, structs.Row(doc))
	}
	return rows, nil
}

// Insert stores one record, stamping the timestamp field with the current
// time when the caller did not provide one
func (e *Engine) Insert(ctx context.Context, ds structs.Dataset, doc structs.Row) error {
	if err := e.collection(ds).InsertOne(ctx, e.prepare(ds, doc)); err != nil {
		return &structs.TransportError{Backend: Name, Err: err}
	}
	return nil
}

func (e *Engine) InsertBatch(ctx context.Context, ds structs.Dataset, docs []structs.Row) error {
	if len(docs) == 0 {
		return nil
	}
	prepared := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		prepared = append(prepared, e.prepare(ds, doc))
	}
	if err := e.collection(ds).InsertMany(ctx, prepared); err != nil {
		return &structs.TransportError{Backend: Name, Err: err}
	}
	return nil
}

func (e *Engine) prepare(ds structs.Dataset, doc structs.Row) bson.M {
	field := tsField(ds)
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	switch v := out[field].(type) {
	case time.Time, primitive.DateTime:
		// already typed
	case string:
		ts, err := timerange.ParseInstant(v)
		if err != nil {
			ts = e.now().UTC()
		}
		out[field] = ts
	default:
		out[field] = e.now().UTC()
	}
	return out
}
