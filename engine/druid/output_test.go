package druid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEventBatches(t *testing.T) {
	data := []map[string]any{
		{
			"events": []any{
				map[string]any{timeColumn: float64(1718445600000), "Country": "US"},
				map[string]any{timeColumn: "2024-06-15T10:00:00Z", "Country": "DE"},
			},
		},
	}
	rows := normalizeRows("scan", data)
	require.Len(t, rows, 2)
	assert.Equal(t, time.UnixMilli(1718445600000).UTC(), rows[0]["Timestamp"])
	assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), rows[1]["Timestamp"])
	assert.NotContains(t, rows[0], timeColumn)
	assert.Equal(t, "US", rows[0]["Country"])
}

func TestNormalizeEventsPromotesTimestamp(t *testing.T) {
	data := []map[string]any{
		{"timestamp": "2024-06-15T10:00:00Z", "event": map[string]any{"Bytes": float64(10)}},
	}
	rows := normalizeRows("topN", data)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), rows[0]["Timestamp"])
	assert.Equal(t, float64(10), rows[0]["Bytes"])
}

func TestNormalizeEventsSkipsTimestampForGroupBy(t *testing.T) {
	data := []map[string]any{
		{"timestamp": "2024-06-15T10:00:00Z", "event": map[string]any{"Bytes": float64(10)}},
	}
	rows := normalizeRows("groupBy", data)
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0], "Timestamp")
}

func TestNormalizeValueList(t *testing.T) {
	data := []map[string]any{
		{"result": []any{
			map[string]any{"value": "US", "count": float64(5)},
			map[string]any{"value": "DE", "count": float64(2)},
		}},
		{"result": []any{
			map[string]any{"value": "FR", "count": float64(1)},
		}},
	}
	// only the first element's result list is read
	rows := normalizeRows("search", data)
	require.Len(t, rows, 2)
	assert.Equal(t, "US", rows[0]["value"])
}

func TestNormalizeTimeseries(t *testing.T) {
	data := []map[string]any{
		{"timestamp": "2024-06-15T10:00:00Z", "result": map[string]any{"Bytes": float64(10)}},
		{"timestamp": "2024-06-15T11:00:00Z", "result": map[string]any{"Bytes": float64(20)}},
	}
	rows := normalizeRows("timeseries", data)
	require.Len(t, rows, 2)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), rows[0]["Timestamp"])
	assert.Equal(t, float64(20), rows[1]["Bytes"])
}

func TestNormalizeUnknownShape(t *testing.T) {
	rows := normalizeRows("groupBy", []map[string]any{{"mystery": true}})
	assert.Empty(t, rows)

	rows = normalizeRows("groupBy", nil)
	assert.Empty(t, rows)
}

func TestNormalizeSchema(t *testing.T) {
	data := []map[string]any{
		{
			"numRows":   float64(1200),
			"intervals": []any{"2024-06-01T00:00:00Z/2024-06-15T12:00:00Z"},
			"columns": map[string]any{
				timeColumn:    map[string]any{"type": "LONG"},
				"Country":     map[string]any{"type": "STRING"},
				"RequestMs":   map[string]any{"type": "FLOAT"},
				"TotalCount":  map[string]any{"type": "LONG"},
				"OrderValue":  map[string]any{"type": "LONG"},
				"UniqueUsers": map[string]any{"type": "hyperUnique"},
			},
		},
	}
	schema := normalizeSchema(data)
	assert.Equal(t, int64(1200), schema.NumRows)
	assert.Equal(t, []string{"2024-06-01T00:00:00Z/2024-06-15T12:00:00Z"}, schema.Intervals)

	dims := map[string]string{}
	for _, d := range schema.Dimensions {
		dims[d.Name] = d.Type
	}
	measures := map[string]string{}
	for _, m := range schema.Measures {
		measures[m.Name] = m.Type
	}

	assert.NotContains(t, dims, timeColumn)
	assert.NotContains(t, measures, timeColumn)

	assert.Equal(t, "string", dims["Country"])
	assert.NotContains(t, measures, "Country")

	// Count suffix is measure-only
	assert.Equal(t, "number", measures["TotalCount"])
	assert.NotContains(t, dims, "TotalCount")

	// Value and Ms suffixes appear on both sides
	assert.Contains(t, dims, "OrderValue")
	assert.Contains(t, measures, "OrderValue")
	assert.Contains(t, dims, "RequestMs")
	assert.Contains(t, measures, "RequestMs")

	assert.Equal(t, "number", dims["UniqueUsers"])
}

func TestNormalizeSchemaDeterministicOrder(t *testing.T) {
	data := []map[string]any{
		{"columns": map[string]any{
			"Zeta":  map[string]any{"type": "STRING"},
			"Alpha": map[string]any{"type": "STRING"},
			"Mid":   map[string]any{"type": "STRING"},
		}},
	}
	schema := normalizeSchema(data)
	require.Len(t, schema.Dimensions, 3)
	assert.Equal(t, "Alpha", schema.Dimensions[0].Name)
	assert.Equal(t, "Mid", schema.Dimensions[1].Name)
	assert.Equal(t, "Zeta", schema.Dimensions[2].Name)
}

func TestNormalizeSchemaEmpty(t *testing.T) {
	schema := normalizeSchema(nil)
	assert.Empty(t, schema.Dimensions)
	assert.Empty(t, schema.Measures)
}

func TestToTime(t *testing.T) {
	assert.Equal(t, time.UnixMilli(1718445600000).UTC(), toTime(float64(1718445600000)))
	assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), toTime("2024-06-15T10:00:00Z"))
	assert.Equal(t, "not a time", toTime("not a time"))
	assert.Equal(t, 42, toTime(42))
}
