package druid

import (
	"fmt"
	"time"

	"github.com/rivlab/analytics-core/structs"
	"github.com/rivlab/analytics-core/timerange"
)

// timeColumn is the backend's reserved timestamp column
const timeColumn = "__time"

// timestampField is the normalized timestamp key promoted onto result rows
const timestampField = "Timestamp"

const defaultLimit = 100

// virtualTimeFormats maps the virtual time dimensions to the timeFormat
// extraction code applied to the timestamp column. Virtual dimensions are
// not physical columns; they are faked with extractions on query and
// appended to every discovered schema.
var virtualTimeFormats = map[string]string{
	"DayOfMonth": "dd",
	"DayOfWeek":  "EEEE",
	"Hour":       "HH",
	"Minute":     "mm",
	"Month":      "MM",
	"MonthName":  "MMMM",
	"Second":     "ss",
	"Year":       "yyyy",
}

// virtualTimeDimensions lists the virtual dimensions in schema order
var virtualTimeDimensions = []structs.SchemaField{
	{Name: "DayOfMonth", Type: "number"},
	{Name: "DayOfWeek", Type: "string"},
	{Name: "Hour", Type: "number"},
	{Name: "Minute", Type: "number"},
	{Name: "Month", Type: "number"},
	{Name: "MonthName", Type: "string"},
	{Name: "Second", Type: "number"},
	{Name: "Year", Type: "number"},
}

// synthetic measures backed by a cardinality aggregation over the
// timestamp truncated to the hour
const (
	measureDayCount  = "DayCount"
	measureHourCount = "HourCount"
)

// nativeQuery is the wire shape posted to the query endpoint. Fields are
// populated per query kind; unset fields stay off the wire.
type nativeQuery struct {
	QueryType        string              `json:"queryType"`
	DataSource       any                 `json:"dataSource"`
	Dimensions       []any               `json:"dimensions,omitempty"`
	SearchDimensions []any               `json:"searchDimensions,omitempty"`
	Query            map[string]any      `json:"query,omitempty"`
	Sort             map[string]any      `json:"sort,omitempty"`
	Aggregations     []map[string]any    `json:"aggregations,omitempty"`
	LimitSpec        *limitSpec          `json:"limitSpec,omitempty"`
	Having           *havingSpec         `json:"having,omitempty"`
	Merge            bool                `json:"merge,omitempty"`
	Intervals        []string            `json:"intervals,omitempty"`
	Granularity      structs.Granularity `json:"granularity,omitempty"`
	Filter           map[string]any      `json:"filter,omitempty"`
	Limit            int                 `json:"limit,omitempty"`
	Order            string              `json:"order,omitempty"`
	ResultFormat     string              `json:"resultFormat,omitempty"`
}

type limitSpec struct {
	Type    string        `json:"type"`
	Limit   int           `json:"limit"`
	Columns []limitColumn `json:"columns"`
}

type limitColumn struct {
	Dimension      string `json:"dimension"`
	Direction      string `json:"direction"`
	DimensionOrder string `json:"dimensionOrder"`
}

type havingSpec struct {
	Type        string         `json:"type"`
	HavingSpecs []havingClause `json:"havingSpecs"`
}

type havingClause struct {
	Type        string  `json:"type"`
	Aggregation string  `json:"aggregation"`
	Value       float64 `json:"value"`
}

// buildRequest holds everything needed to compile one native query
type buildRequest struct {
	kind       string
	query      structs.Query
	searchTerm string
	merge      bool
}

// buildNative compiles the query IR into the backend's native query object
func buildNative(ds structs.Dataset, req buildRequest, now time.Time) (*nativeQuery, error) {
	if req.kind == "" {
		return nil, fmt.Errorf("%w: query kind", structs.ErrMissingRequiredField)
	}
	raw := &nativeQuery{QueryType: req.kind}

	// a list of stores becomes a union of sources regardless of length
	switch {
	case ds.Store.IsUnion():
		raw.DataSource = map[string]any{
			"type":        "union",
			"dataSources": ds.Store.Names,
		}
	case ds.Store.Name != "":
		raw.DataSource = ds.Store.Name
	default:
		return nil, fmt.Errorf("%w: dataSource", structs.ErrMissingRequiredField)
	}

	q := req.query
	for _, d := range q.Dimensions {
		raw.Dimensions = append(raw.Dimensions, dimensionSpec(d.Field))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	switch req.kind {
	case "search":
		raw.SearchDimensions = raw.Dimensions
		raw.Dimensions = nil
		raw.Query = map[string]any{
			"type":  "insensitive_contains",
			"value": req.searchTerm,
		}
		raw.Sort = map[string]any{"type": "lexicographic"}
		raw.Limit = q.Limit

	case "groupBy":
		raw.Aggregations = []map[string]any{}
		raw.LimitSpec = &limitSpec{Type: "default", Limit: limit, Columns: []limitColumn{}}
		for _, m := range q.Measures {
			raw.Aggregations = append(raw.Aggregations, aggregationSpec(m))
			// thresholds become post-aggregation having predicates,
			// AND-combined across every measure
			for _, t := range m.Thresholds {
				if raw.Having == nil {
					raw.Having = &havingSpec{Type: "and"}
				}
				raw.Having.HavingSpecs = append(raw.Having.HavingSpecs, havingClause{
					Type:        havingType(t.Op),
					Aggregation: m.Field,
					Value:       t.Value,
				})
			}
			if m.Sort != "" && m.Sort != structs.SortNone {
				raw.LimitSpec.Columns = append(raw.LimitSpec.Columns, limitColumn{
					Dimension:      m.Field,
					Direction:      string(m.Sort),
					DimensionOrder: "numeric",
				})
			}
		}

	case "timeseries":
		raw.Aggregations = []map[string]any{}
		for _, m := range q.Measures {
			raw.Aggregations = append(raw.Aggregations, aggregationSpec(m))
		}

	case "segmentMetadata":
		raw.Merge = req.merge

	case "scan":
		raw.Limit = q.Limit
		raw.Order = string(q.Order)
		raw.ResultFormat = "list"

	default:
		return nil, fmt.Errorf("%w: unsupported query kind %q", structs.ErrMissingRequiredField, req.kind)
	}

	if !q.Range.IsZero() {
		start, end, err := timerange.Resolve(q.Range, now)
		if err != nil {
			return nil, err
		}
		// half-open [start, end)
		raw.Intervals = []string{fmt.Sprintf("%s/%s",
			start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))}
	}

	if q.Granularity.Valid() {
		raw.Granularity = q.Granularity
	} else {
		raw.Granularity = structs.GranularityAll
	}

	raw.Filter = buildFilter(q.Dimensions)

	return raw, nil
}

// dimensionSpec returns the dimension name, or an extraction spec over the
// timestamp column for virtual time dimensions
func dimensionSpec(field string) any {
	format, virtual := virtualTimeFormats[field]
	if !virtual {
		return field
	}
	return map[string]any{
		"type":       "extraction",
		"dimension":  timeColumn,
		"outputName": field,
		"extractionFn": map[string]any{
			"type":   "timeFormat",
			"format": format,
		},
	}
}

// aggregationSpec compiles one measure into an aggregation. The synthetic
// DayCount/HourCount measures count distinct hours via a cardinality
// aggregation on the timestamp, not a sum over a stored field.
func aggregationSpec(m structs.Measure) map[string]any {
	if m.Field == measureDayCount || m.Field == measureHourCount {
		return map[string]any{
			"type": "cardinality",
			"name": m.Field,
			"fields": []any{
				map[string]any{
					"type":       "extraction",
					"dimension":  timeColumn,
					"outputName": m.Field,
					"dimExtractionFn": map[string]any{
						"type":     "timeFormat",
						"format":   "yyyyMMddHH",
						"locale":   "en-US",
						"timeZone": "UTC",
					},
				},
			},
			"byRow": true,
			"round": true,
		}
	}
	agg := map[string]any{
		"fieldName": m.Field,
		"name":      m.Field,
		"type":      string(m.Type),
	}
	if m.Type == structs.AggHyperUnique {
		agg["isInputHyperUnique"] = false
		agg["round"] = true
	}
	return agg
}

func havingType(op structs.ThresholdOp) string {
	switch op {
	case structs.ThresholdLT:
		return "lessThan"
	case structs.ThresholdGT:
		return "greaterThan"
	default:
		return "equalTo"
	}
}
