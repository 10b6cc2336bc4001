package druid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivlab/analytics-core/structs"
)

func testNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func singleStore() structs.Dataset {
	return structs.Dataset{ID: "requests", Adapter: Name, Store: structs.StoreSpec{Name: "requests"}}
}

func TestBuildNativeRequiresKind(t *testing.T) {
	_, err := buildNative(singleStore(), buildRequest{}, testNow())
	assert.ErrorIs(t, err, structs.ErrMissingRequiredField)
}

func TestBuildNativeRequiresStore(t *testing.T) {
	_, err := buildNative(structs.Dataset{ID: "x"}, buildRequest{kind: "groupBy"}, testNow())
	assert.ErrorIs(t, err, structs.ErrMissingRequiredField)
}

func TestBuildNativeUnionDataSource(t *testing.T) {
	ds := structs.Dataset{
		ID:    "traffic",
		Store: structs.StoreSpec{Names: []string{"edge", "origin"}},
	}
	raw, err := buildNative(ds, buildRequest{kind: "groupBy"}, testNow())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"type":        "union",
		"dataSources": []string{"edge", "origin"},
	}, raw.DataSource)
}

func TestBuildNativeSingleElementListStillUnion(t *testing.T) {
	ds := structs.Dataset{
		ID:    "traffic",
		Store: structs.StoreSpec{Names: []string{"edge"}},
	}
	raw, err := buildNative(ds, buildRequest{kind: "groupBy"}, testNow())
	require.NoError(t, err)
	src, ok := raw.DataSource.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "union", src["type"])
}

func TestBuildNativeIntervals(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind:  "groupBy",
		query: structs.Query{Range: structs.RangeSpec{Preset: "1h"}},
	}, testNow())
	require.NoError(t, err)
	require.Len(t, raw.Intervals, 1)
	assert.Equal(t, "2024-06-15T11:00:00Z/2024-06-15T12:00:00Z", raw.Intervals[0])
}

func TestBuildNativeBadRange(t *testing.T) {
	_, err := buildNative(singleStore(), buildRequest{
		kind:  "groupBy",
		query: structs.Query{Range: structs.RangeSpec{Preset: "bogus"}},
	}, testNow())
	assert.ErrorIs(t, err, structs.ErrInvalidRange)
}

func TestBuildNativeGranularityDefaultsToAll(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{kind: "groupBy"}, testNow())
	require.NoError(t, err)
	assert.Equal(t, structs.GranularityAll, raw.Granularity)

	raw, err = buildNative(singleStore(), buildRequest{
		kind:  "groupBy",
		query: structs.Query{Granularity: structs.GranularityHour},
	}, testNow())
	require.NoError(t, err)
	assert.Equal(t, structs.GranularityHour, raw.Granularity)
}

func TestBuildNativeVirtualTimeDimension(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind: "groupBy",
		query: structs.Query{
			Dimensions: []structs.Dimension{{Field: "Hour"}},
		},
	}, testNow())
	require.NoError(t, err)
	require.Len(t, raw.Dimensions, 1)

	spec, ok := raw.Dimensions[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "extraction", spec["type"])
	assert.Equal(t, timeColumn, spec["dimension"])
	assert.Equal(t, "Hour", spec["outputName"])
	assert.Equal(t, map[string]any{"type": "timeFormat", "format": "HH"}, spec["extractionFn"])
}

func TestBuildNativePhysicalDimensionIsPlainString(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind:  "groupBy",
		query: structs.Query{Dimensions: []structs.Dimension{{Field: "Country"}}},
	}, testNow())
	require.NoError(t, err)
	assert.Equal(t, []any{"Country"}, raw.Dimensions)
}

func TestBuildNativeGroupByLimitAndSort(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind: "groupBy",
		query: structs.Query{
			Measures: []structs.Measure{
				{Field: "Bytes", Type: structs.AggLongSum, Sort: structs.SortDescending},
			},
			Limit: 5,
		},
	}, testNow())
	require.NoError(t, err)
	require.NotNil(t, raw.LimitSpec)
	assert.Equal(t, "default", raw.LimitSpec.Type)
	assert.Equal(t, 5, raw.LimitSpec.Limit)
	require.Len(t, raw.LimitSpec.Columns, 1)
	assert.Equal(t, limitColumn{
		Dimension:      "Bytes",
		Direction:      "descending",
		DimensionOrder: "numeric",
	}, raw.LimitSpec.Columns[0])
}

func TestBuildNativeGroupByDefaultLimit(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind:  "groupBy",
		query: structs.Query{Measures: []structs.Measure{{Field: "Bytes", Type: structs.AggLongSum}}},
	}, testNow())
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, raw.LimitSpec.Limit)
}

func TestBuildNativeHavingAccumulatesAcrossMeasures(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind: "groupBy",
		query: structs.Query{
			Measures: []structs.Measure{
				{
					Field: "Bytes", Type: structs.AggLongSum,
					Thresholds: []structs.Threshold{{Op: structs.ThresholdGT, Value: 100}},
				},
				{
					Field: "Requests", Type: structs.AggLongSum,
					Thresholds: []structs.Threshold{
						{Op: structs.ThresholdLT, Value: 50},
						{Op: structs.ThresholdEQ, Value: 7},
					},
				},
			},
		},
	}, testNow())
	require.NoError(t, err)
	require.NotNil(t, raw.Having)
	assert.Equal(t, "and", raw.Having.Type)
	assert.Equal(t, []havingClause{
		{Type: "greaterThan", Aggregation: "Bytes", Value: 100},
		{Type: "lessThan", Aggregation: "Requests", Value: 50},
		{Type: "equalTo", Aggregation: "Requests", Value: 7},
	}, raw.Having.HavingSpecs)
}

func TestBuildNativeTimeseriesHasNoLimitSpec(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind:  "timeseries",
		query: structs.Query{Measures: []structs.Measure{{Field: "Bytes", Type: structs.AggLongSum}}},
	}, testNow())
	require.NoError(t, err)
	assert.Nil(t, raw.LimitSpec)
	require.Len(t, raw.Aggregations, 1)
}

func TestBuildNativeScan(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind: "scan",
		query: structs.Query{
			Limit: 20,
			Order: structs.SortDescending,
		},
	}, testNow())
	require.NoError(t, err)
	assert.Equal(t, 20, raw.Limit)
	assert.Equal(t, "descending", raw.Order)
	assert.Equal(t, "list", raw.ResultFormat)
}

func TestBuildNativeSearch(t *testing.T) {
	raw, err := buildNative(singleStore(), buildRequest{
		kind:       "search",
		searchTerm: "us",
		query: structs.Query{
			Dimensions: []structs.Dimension{{Field: "Country"}},
			Limit:      10,
		},
	}, testNow())
	require.NoError(t, err)
	assert.Nil(t, raw.Dimensions)
	assert.Equal(t, []any{"Country"}, raw.SearchDimensions)
	assert.Equal(t, map[string]any{"type": "insensitive_contains", "value": "us"}, raw.Query)
	assert.Equal(t, map[string]any{"type": "lexicographic"}, raw.Sort)
	assert.Equal(t, 10, raw.Limit)
}

func TestAggregationSpecCardinality(t *testing.T) {
	for _, field := range []string{measureDayCount, measureHourCount} {
		agg := aggregationSpec(structs.Measure{Field: field, Type: structs.AggLongSum})
		assert.Equal(t, "cardinality", agg["type"], field)
		assert.Equal(t, field, agg["name"], field)
		assert.Equal(t, true, agg["byRow"], field)
		assert.Equal(t, true, agg["round"], field)

		fields, ok := agg["fields"].([]any)
		require.True(t, ok)
		require.Len(t, fields, 1)
		extraction := fields[0].(map[string]any)
		fn := extraction["dimExtractionFn"].(map[string]any)
		assert.Equal(t, "yyyyMMddHH", fn["format"])
	}
}

func TestAggregationSpecHyperUnique(t *testing.T) {
	agg := aggregationSpec(structs.Measure{Field: "Visitors", Type: structs.AggHyperUnique})
	assert.Equal(t, "hyperUnique", agg["type"])
	assert.Equal(t, false, agg["isInputHyperUnique"])
	assert.Equal(t, true, agg["round"])
}

func TestAggregationSpecPlain(t *testing.T) {
	agg := aggregationSpec(structs.Measure{Field: "Bytes", Type: structs.AggLongSum})
	assert.Equal(t, map[string]any{
		"fieldName": "Bytes",
		"name":      "Bytes",
		"type":      "longSum",
	}, agg)
}
