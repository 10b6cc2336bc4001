package mongolap

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rivlab/analytics-core/structs"
	"github.com/rivlab/analytics-core/timerange"
)

// queryParams is one compiled rollup/timeseries request
type queryParams struct {
	rng            structs.RangeSpec
	dimensions     []structs.Dimension
	measures       []structs.Measure
	granularity    structs.Granularity
	limit          int
	timestampField string
}

// rangeFilter compiles the resolved time range into a match predicate,
// inclusive on both bounds
func rangeFilter(rng structs.RangeSpec, now time.Time) (bson.M, error) {
	start, end, err := timerange.Resolve(rng, now)
	if err != nil {
		return nil, err
	}
	return bson.M{
		"$gte":  start,
		"$lte":  end,
		"$type": "date",
	}, nil
}

// timestampExists requires the timestamp field to be present and typed,
// used when no range is supplied
func timestampExists() bson.M {
	return bson.M{"$exists": true, "$type": "date"}
}

// buildPipeline compiles a match -> project -> group -> sort -> limit
// aggregation pipeline.
//
// The group key is built progressively by granularity: year/month/day are
// always present for anything finer than "all", hour for hour|minute|second,
// minute for minute|second, second only for second. Requested dimension
// fields join the key by raw value.
func buildPipeline(p queryParams, now time.Time) (mongo.Pipeline, error) {
	sort := bson.M{}

	match := bson.M{}
	if !p.rng.IsZero() {
		tf, err := rangeFilter(p.rng, now)
		if err != nil {
			return nil, err
		}
		match[p.timestampField] = tf
	} else {
		match[p.timestampField] = timestampExists()
	}

	project := bson.M{"_id": false}

	groupKey := bson.M{}
	group := bson.M{}

	ts := "$" + p.timestampField
	if p.granularity != structs.GranularityAll {
		project[p.timestampField] = true
		groupKey["year"] = bson.M{"$year": ts}
		groupKey["month"] = bson.M{"$month": ts}
		groupKey["day"] = bson.M{"$dayOfMonth": ts}
		switch p.granularity {
		case structs.GranularityHour:
			groupKey["hour"] = bson.M{"$hour": ts}
		case structs.GranularityMinute:
			groupKey["hour"] = bson.M{"$hour": ts}
			groupKey["minute"] = bson.M{"$minute": ts}
		case structs.GranularitySecond:
			groupKey["hour"] = bson.M{"$hour": ts}
			groupKey["minute"] = bson.M{"$minute": ts}
			groupKey["second"] = bson.M{"$second": ts}
		}
		// time-bucketed queries sort ascending by the group key
		sort["_id"] = 1
	}

	for _, d := range p.dimensions {
		applyDimensionFilters(match, d)
		project[d.Field] = true
		groupKey[d.Field] = "$" + d.Field
	}

	for _, m := range p.measures {
		// the virtual count measure is a pure document tally with no
		// backing field
		if m.Field == countMeasure {
			group[countMeasure] = bson.M{"$sum": 1}
		} else {
			project[m.Field] = true
			group[m.Field] = bson.M{aggregationOp(m.Type): "$" + m.Field}
		}
		// measure sort applies only outside time bucketing
		if p.granularity == structs.GranularityAll {
			switch m.Sort {
			case structs.SortAscending:
				sort[m.Field] = 1
			case structs.SortDescending:
				sort[m.Field] = -1
			}
		}
	}
	group["_id"] = groupKey

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$project", Value: project}},
		{{Key: "$group", Value: group}},
	}
	if len(sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}
	if p.limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: p.limit}})
	}
	return pipeline, nil
}

// postProcess reconstructs a concrete timestamp from the decomposed group
// key, promotes grouped dimension values to the top level and drops the
// internal key.
func postProcess(docs []bson.M, p queryParams) []structs.Row {
	rows := make([]structs.Row, 0, len(docs))
	for _, d := range docs {
		row := make(structs.Row, len(d))
		for k, v := range d {
			if k == "_id" {
				continue
			}
			row[k] = v
		}
		key, _ := d["_id"].(bson.M)
		if key == nil {
			if kd, ok := d["_id"].(bson.D); ok {
				key = bson.M{}
				for _, e := range kd {
					key[e.Key] = e.Value
				}
			}
		}
		if key != nil {
			if ts, ok := bucketTimestamp(key, p.granularity); ok {
				row[p.timestampField] = ts
			}
			for _, dim := range p.dimensions {
				row[dim.Field] = key[dim.Field]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// bucketTimestamp rebuilds the bucket start time from date parts
func bucketTimestamp(key bson.M, g structs.Granularity) (time.Time, bool) {
	year, ok := asInt(key["year"])
	if !ok {
		return time.Time{}, false
	}
	month, _ := asInt(key["month"])
	day, _ := asInt(key["day"])
	switch g {
	case structs.GranularityDay:
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
	case structs.GranularityHour:
		hour, _ := asInt(key["hour"])
		return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC), true
	case structs.GranularityMinute:
		hour, _ := asInt(key["hour"])
		minute, _ := asInt(key["minute"])
		return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
	case structs.GranularitySecond:
		hour, _ := asInt(key["hour"])
		minute, _ := asInt(key["minute"])
		second, _ := asInt(key["second"])
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
	}
	return time.Time{}, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
