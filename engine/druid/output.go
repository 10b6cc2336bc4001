package druid

import (
	"sort"
	"strings"
	"time"

	"github.com/rivlab/analytics-core/structs"
)

// typeMap translates backend column types to semantic types
var typeMap = map[string]string{
	"STRING":      "string",
	"LONG":        "number",
	"hyperUnique": "number",
	"FLOAT":       "number",
}

// normalizeRows detects the response shape from the first element's fields
// and flattens accordingly. An unrecognized shape degrades to an empty row
// set so a dashboard breaks gracefully instead of erroring.
func normalizeRows(queryType string, data []map[string]any) []structs.Row {
	if len(data) == 0 {
		return []structs.Row{}
	}
	first := data[0]

	if _, ok := first["events"]; ok {
		return normalizeEventBatches(data)
	}
	if _, ok := first["columns"]; ok {
		// metadata shape, handled by normalizeSchema
		return []structs.Row{}
	}
	if _, ok := first["event"]; ok {
		return normalizeEvents(queryType, data)
	}
	if result, ok := first["result"].([]any); ok {
		return normalizeValueList(result)
	}
	if _, hasTS := first["timestamp"]; hasTS {
		if _, hasResult := first["result"]; hasResult {
			return normalizeTimeseries(data)
		}
	}
	return []structs.Row{}
}

// event-batch lists: every element carries an events array; the reserved
// timestamp column is promoted onto the row.
func normalizeEventBatches(data []map[string]any) []structs.Row {
	output := []structs.Row{}
	for _, d := range data {
		events, ok := d["events"].([]any)
		if !ok {
			continue
		}
		for _, e := range events {
			ev, ok := e.(map[string]any)
			if !ok {
				continue
			}
			row := make(structs.Row, len(ev))
			for k, v := range ev {
				row[k] = v
			}
			if ts, ok := row[timeColumn]; ok {
				row[timestampField] = toTime(ts)
				delete(row, timeColumn)
			}
			output = append(output, row)
		}
	}
	return output
}

// flattened event lists: a backend timestamp rides alongside each event and
// is promoted onto the row unless the query was a rollup
func normalizeEvents(queryType string, data []map[string]any) []structs.Row {
	output := []structs.Row{}
	for _, d := range data {
		ev, ok := d["event"].(map[string]any)
		if !ok {
			continue
		}
		row := make(structs.Row, len(ev)+1)
		for k, v := range ev {
			row[k] = v
		}
		if ts, ok := d["timestamp"]; ok && queryType != "groupBy" {
			row[timestampField] = toTime(ts)
		}
		output = append(output, row)
	}
	return output
}

// plain value+count lists from search queries
func normalizeValueList(result []any) []structs.Row {
	output := []structs.Row{}
	for _, r := range result {
		if m, ok := r.(map[string]any); ok {
			output = append(output, structs.Row(m))
		}
	}
	return output
}

// timestamp+result timeseries rows
func normalizeTimeseries(data []map[string]any) []structs.Row {
	output := []structs.Row{}
	for _, d := range data {
		result, ok := d["result"].(map[string]any)
		if !ok {
			continue
		}
		row := make(structs.Row, len(result)+1)
		row[timestampField] = toTime(d["timestamp"])
		for k, v := range result {
			row[k] = v
		}
		output = append(output, row)
	}
	return output
}

// normalizeSchema reads the column/type metadata shape. The reserved
// timestamp column is excluded; names ending in Count are measures, names
// ending in Value or Ms are both a dimension and a measure.
func normalizeSchema(data []map[string]any) *structs.Schema {
	schema := &structs.Schema{
		Dimensions: []structs.SchemaField{},
		Measures:   []structs.SchemaField{},
	}
	if len(data) == 0 {
		return schema
	}
	first := data[0]
	if n, ok := first["numRows"].(float64); ok {
		schema.NumRows = int64(n)
	}
	if intervals, ok := first["intervals"].([]any); ok {
		for _, iv := range intervals {
			if s, ok := iv.(string); ok {
				schema.Intervals = append(schema.Intervals, s)
			}
		}
	}
	columns, ok := first["columns"].(map[string]any)
	if !ok {
		return schema
	}
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == timeColumn {
			continue
		}
		spec := columns[name]
		columnType := ""
		if m, ok := spec.(map[string]any); ok {
			if t, ok := m["type"].(string); ok {
				columnType = typeMap[t]
			}
		}
		isDimension, isMeasure := classifyColumn(name)
		if isDimension {
			schema.Dimensions = append(schema.Dimensions, structs.SchemaField{Name: name, Type: columnType})
		}
		if isMeasure {
			schema.Measures = append(schema.Measures, structs.SchemaField{Name: name, Type: columnType})
		}
	}
	return schema
}

func classifyColumn(name string) (isDimension, isMeasure bool) {
	switch {
	case strings.HasSuffix(name, "Count"):
		return false, true
	case strings.HasSuffix(name, "Value"), strings.HasSuffix(name, "Ms"):
		return true, true
	default:
		return true, false
	}
}

// toTime coerces a backend timestamp (epoch millis or ISO string) into a
// time.Time, passing unrecognized values through untouched
func toTime(v any) any {
	switch ts := v.(type) {
	case float64:
		return time.UnixMilli(int64(ts)).UTC()
	case string:
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
	}
	return v
}
