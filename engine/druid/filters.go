package druid

import "github.com/rivlab/analytics-core/structs"

// compileFilter translates one filter into a native predicate node.
// Returns nil for operations this grammar has no mapping for.
func compileFilter(dimension string, f structs.Filter) map[string]any {
	first := func() any {
		if len(f.Values) > 0 {
			return f.Values[0]
		}
		return nil
	}
	switch f.Op {
	case structs.FilterEquals:
		return map[string]any{"type": "selector", "dimension": dimension, "value": first()}
	case structs.FilterNotEqual:
		return map[string]any{"type": "not", "field": map[string]any{
			"type": "selector", "dimension": dimension, "value": first(),
		}}
	case structs.FilterIsNull:
		return map[string]any{"type": "selector", "dimension": dimension, "value": nil}
	case structs.FilterNotNull:
		return map[string]any{"type": "not", "field": map[string]any{
			"type": "selector", "dimension": dimension, "value": nil,
		}}
	case structs.FilterRegex:
		return map[string]any{"type": "regex", "dimension": dimension, "pattern": first()}
	case structs.FilterNotRegex:
		return map[string]any{"type": "not", "field": map[string]any{
			"type": "regex", "dimension": dimension, "pattern": first(),
		}}
	case structs.FilterLike:
		return map[string]any{"type": "like", "dimension": dimension, "pattern": first()}
	case structs.FilterNotLike:
		return map[string]any{"type": "not", "field": map[string]any{
			"type": "like", "dimension": dimension, "pattern": first(),
		}}
	case structs.FilterIn:
		return map[string]any{"type": "in", "dimension": dimension, "values": f.Values}
	case structs.FilterNotIn:
		return map[string]any{"type": "not", "field": map[string]any{
			"type": "in", "dimension": dimension, "values": f.Values,
		}}
	case structs.FilterSearch:
		return map[string]any{"type": "search", "dimension": dimension, "query": map[string]any{
			"type": "insensitive_contains", "value": first(),
		}}
	case structs.FilterLTE:
		return map[string]any{"type": "bound", "dimension": dimension, "upper": first(), "ordering": "numeric"}
	case structs.FilterGTE:
		return map[string]any{"type": "bound", "dimension": dimension, "lower": first(), "ordering": "numeric"}
	}
	return nil
}

// compileDimensionFilters combines a dimension's filters into one node,
// AND-wrapping when there is more than one.
func compileDimensionFilters(dimension string, filters []structs.Filter) map[string]any {
	var nodes []any
	for _, f := range filters {
		if node := compileFilter(dimension, f); node != nil {
			nodes = append(nodes, node)
		}
	}
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0].(map[string]any)
	default:
		return map[string]any{"type": "and", "fields": nodes}
	}
}

// rewriteTimeFilter rewrites predicates targeting a virtual time dimension
// onto the raw timestamp column with the matching extraction function.
func rewriteTimeFilter(node map[string]any) {
	if fields, ok := node["fields"].([]any); ok {
		for _, f := range fields {
			if m, ok := f.(map[string]any); ok {
				rewriteSingle(m)
			}
		}
		return
	}
	rewriteSingle(node)
}

func rewriteSingle(node map[string]any) {
	dim, ok := node["dimension"].(string)
	if !ok {
		return
	}
	format, virtual := virtualTimeFormats[dim]
	if !virtual {
		return
	}
	node["extractionFn"] = map[string]any{
		"type":   "timeFormat",
		"format": format,
	}
	node["dimension"] = timeColumn
}

// buildFilter compiles every dimension's filters, AND-combined across
// dimensions. Returns nil when no filters apply.
func buildFilter(dimensions []structs.Dimension) map[string]any {
	var fields []any
	for _, d := range dimensions {
		if len(d.Filters) == 0 {
			continue
		}
		node := compileDimensionFilters(d.Field, d.Filters)
		if node == nil {
			continue
		}
		rewriteTimeFilter(node)
		fields = append(fields, node)
	}
	if len(fields) == 0 {
		return nil
	}
	return map[string]any{"type": "and", "fields": fields}
}
