package mongolap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rivlab/analytics-core/structs"
)

func stageValue(t *testing.T, p mongo.Pipeline, name string) bson.M {
	t.Helper()
	for _, stage := range p {
		require.Len(t, stage, 1)
		if stage[0].Key == name {
			v, ok := stage[0].Value.(bson.M)
			require.True(t, ok, "stage %s is not a bson.M", name)
			return v
		}
	}
	return nil
}

func testNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestBuildPipelineStageOrder(t *testing.T) {
	p, err := buildPipeline(queryParams{
		rng:            structs.RangeSpec{Preset: "1h"},
		measures:       []structs.Measure{{Field: countMeasure}},
		granularity:    structs.GranularityHour,
		limit:          10,
		timestampField: "Timestamp",
	}, testNow())
	require.NoError(t, err)

	var names []string
	for _, stage := range p {
		names = append(names, stage[0].Key)
	}
	assert.Equal(t, []string{"$match", "$project", "$group", "$sort", "$limit"}, names)
}

func TestBuildPipelineGroupKeyByGranularity(t *testing.T) {
	tests := []struct {
		granularity structs.Granularity
		want        []string
		absent      []string
	}{
		{structs.GranularityDay, []string{"year", "month", "day"}, []string{"hour", "minute", "second"}},
		{structs.GranularityHour, []string{"year", "month", "day", "hour"}, []string{"minute", "second"}},
		{structs.GranularityMinute, []string{"year", "month", "day", "hour", "minute"}, []string{"second"}},
		{structs.GranularitySecond, []string{"year", "month", "day", "hour", "minute", "second"}, nil},
	}
	for _, tt := range tests {
		p, err := buildPipeline(queryParams{
			rng:            structs.RangeSpec{Preset: "1h"},
			granularity:    tt.granularity,
			timestampField: "Timestamp",
		}, testNow())
		require.NoError(t, err, tt.granularity)

		group := stageValue(t, p, "$group")
		key, ok := group["_id"].(bson.M)
		require.True(t, ok)
		for _, part := range tt.want {
			assert.Contains(t, key, part, "%s should bucket by %s", tt.granularity, part)
		}
		for _, part := range tt.absent {
			assert.NotContains(t, key, part, "%s should not bucket by %s", tt.granularity, part)
		}
	}
}

func TestBuildPipelineGranularityAllHasNoTimeKey(t *testing.T) {
	p, err := buildPipeline(queryParams{
		rng:            structs.RangeSpec{Preset: "1h"},
		dimensions:     []structs.Dimension{{Field: "Country"}},
		granularity:    structs.GranularityAll,
		timestampField: "Timestamp",
	}, testNow())
	require.NoError(t, err)

	group := stageValue(t, p, "$group")
	key := group["_id"].(bson.M)
	assert.NotContains(t, key, "year")
	assert.Equal(t, "$Country", key["Country"])

	// no bucketing, no dimension sort, no limit
	assert.Nil(t, stageValue(t, p, "$sort"))
	assert.Nil(t, stageValue(t, p, "$limit"))
}

func TestBuildPipelineCountIsVirtual(t *testing.T) {
	p, err := buildPipeline(queryParams{
		rng: structs.RangeSpec{Preset: "1h"},
		measures: []structs.Measure{
			{Field: countMeasure},
			{Field: "Bytes", Type: structs.AggLongSum},
		},
		granularity:    structs.GranularityAll,
		timestampField: "Timestamp",
	}, testNow())
	require.NoError(t, err)

	group := stageValue(t, p, "$group")
	assert.Equal(t, bson.M{"$sum": 1}, group[countMeasure])
	assert.Equal(t, bson.M{"$sum": "$Bytes"}, group["Bytes"])

	// Count has no backing field to project
	project := stageValue(t, p, "$project")
	assert.NotContains(t, project, countMeasure)
	assert.Equal(t, true, project["Bytes"])
}

func TestBuildPipelineMeasureSortOnlyWithoutBuckets(t *testing.T) {
	measures := []structs.Measure{{Field: "Bytes", Type: structs.AggLongSum, Sort: structs.SortDescending}}

	flat, err := buildPipeline(queryParams{
		rng:            structs.RangeSpec{Preset: "1h"},
		measures:       measures,
		granularity:    structs.GranularityAll,
		timestampField: "Timestamp",
	}, testNow())
	require.NoError(t, err)
	assert.Equal(t, bson.M{"Bytes": -1}, stageValue(t, flat, "$sort"))

	bucketed, err := buildPipeline(queryParams{
		rng:            structs.RangeSpec{Preset: "1h"},
		measures:       measures,
		granularity:    structs.GranularityHour,
		timestampField: "Timestamp",
	}, testNow())
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": 1}, stageValue(t, bucketed, "$sort"))
}

func TestBuildPipelineRangeMatch(t *testing.T) {
	now := testNow()
	p, err := buildPipeline(queryParams{
		rng:            structs.RangeSpec{Preset: "1h"},
		granularity:    structs.GranularityAll,
		timestampField: "Timestamp",
	}, now)
	require.NoError(t, err)

	match := stageValue(t, p, "$match")
	tf, ok := match["Timestamp"].(bson.M)
	require.True(t, ok)
	assert.Equal(t, now.Add(-time.Hour), tf["$gte"])
	assert.Equal(t, now, tf["$lte"])
	assert.Equal(t, "date", tf["$type"])
}

func TestBuildPipelineNoRangeRequiresTimestamp(t *testing.T) {
	p, err := buildPipeline(queryParams{
		granularity:    structs.GranularityAll,
		timestampField: "Timestamp",
	}, testNow())
	require.NoError(t, err)

	match := stageValue(t, p, "$match")
	assert.Equal(t, bson.M{"$exists": true, "$type": "date"}, match["Timestamp"])
}

func TestBuildPipelineBadRange(t *testing.T) {
	_, err := buildPipeline(queryParams{
		rng:            structs.RangeSpec{Preset: "bogus"},
		timestampField: "Timestamp",
	}, testNow())
	assert.ErrorIs(t, err, structs.ErrInvalidRange)
}

func TestBuildPipelineDimensionFilters(t *testing.T) {
	p, err := buildPipeline(queryParams{
		rng: structs.RangeSpec{Preset: "1h"},
		dimensions: []structs.Dimension{{
			Field: "Country",
			Filters: []structs.Filter{
				{Op: structs.FilterEquals, Values: []any{"US"}},
			},
		}},
		granularity:    structs.GranularityAll,
		timestampField: "Timestamp",
	}, testNow())
	require.NoError(t, err)

	match := stageValue(t, p, "$match")
	assert.Equal(t, bson.M{"$eq": "US"}, match["Country"])
}

func TestPostProcessReconstructsTimestamp(t *testing.T) {
	docs := []bson.M{
		{
			"_id":   bson.M{"year": int32(2024), "month": int32(6), "day": int32(15), "hour": int32(9)},
			"Bytes": int64(42),
			"Count": int32(3),
		},
	}
	rows := postProcess(docs, queryParams{
		granularity:    structs.GranularityHour,
		timestampField: "Timestamp",
	})
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC), rows[0]["Timestamp"])
	assert.Equal(t, int64(42), rows[0]["Bytes"])
	assert.NotContains(t, rows[0], "_id")
}

func TestPostProcessPromotesDimensions(t *testing.T) {
	docs := []bson.M{
		{"_id": bson.M{"Country": "US"}, "Count": int32(7)},
	}
	rows := postProcess(docs, queryParams{
		dimensions:     []structs.Dimension{{Field: "Country"}},
		granularity:    structs.GranularityAll,
		timestampField: "Timestamp",
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "US", rows[0]["Country"])
	assert.NotContains(t, rows[0], "Timestamp")
}

func TestFilterConditionNoOps(t *testing.T) {
	for _, op := range []structs.FilterOp{structs.FilterSearch, structs.FilterLike, structs.FilterNotLike} {
		_, _, ok := filterCondition(structs.Filter{Op: op, Values: []any{"x"}})
		assert.False(t, ok, "%s should not map", op)
	}
}

func TestAggregationOps(t *testing.T) {
	assert.Equal(t, "$max", aggregationOp(structs.AggLongMax))
	assert.Equal(t, "$min", aggregationOp(structs.AggLongMin))
	assert.Equal(t, "$avg", aggregationOp(structs.AggDoubleMean))
	assert.Equal(t, "$sum", aggregationOp(structs.AggLongSum))
	assert.Equal(t, "$sum", aggregationOp(structs.AggHyperUnique))
}
