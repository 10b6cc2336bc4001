package mongolap

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/rivlab/analytics-core/structs"
)

// filterCondition maps one filter onto this grammar's operator table.
// search and like have no mapping here and degrade to a no-op.
func filterCondition(f structs.Filter) (op string, value any, ok bool) {
	first := func() any {
		if len(f.Values) > 0 {
			return f.Values[0]
		}
		return nil
	}
	switch f.Op {
	case structs.FilterEquals:
		return "$eq", first(), true
	case structs.FilterNotEqual:
		return "$ne", first(), true
	case structs.FilterIsNull:
		return "$eq", nil, true
	case structs.FilterNotNull:
		return "$ne", nil, true
	case structs.FilterIn:
		return "$in", f.Values, true
	case structs.FilterNotIn:
		return "$nin", f.Values, true
	case structs.FilterRegex:
		return "$regex", first(), true
	case structs.FilterNotRegex:
		return "$not", bson.M{"$regex": first()}, true
	case structs.FilterLTE:
		return "$lte", first(), true
	case structs.FilterGTE:
		return "$gte", first(), true
	}
	return "", nil, false
}

// applyDimensionFilters merges a dimension's filters into the match stage,
// one operator entry per filter, combined on the dimension's field.
func applyDimensionFilters(match bson.M, d structs.Dimension) {
	for _, f := range d.Filters {
		op, value, ok := filterCondition(f)
		if !ok {
			continue
		}
		conditions, ok := match[d.Field].(bson.M)
		if !ok {
			conditions = bson.M{}
			match[d.Field] = conditions
		}
		conditions[op] = value
	}
}

// aggregationOp maps a measure aggregation onto a pipeline accumulator,
// defaulting to sum
func aggregationOp(t structs.AggregationType) string {
	switch t {
	case structs.AggLongMax:
		return "$max"
	case structs.AggLongMin:
		return "$min"
	case structs.AggDoubleMean:
		return "$avg"
	default:
		return "$sum"
	}
}
