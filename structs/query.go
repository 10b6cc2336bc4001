package structs

import (
	"encoding/json"
	"fmt"
)

// Granularity defines the time bucket width for timeseries grouping
type Granularity string

const (
	GranularityAll    Granularity = "all"
	GranularitySecond Granularity = "second"
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// Valid reports whether g is one of the supported granularities
func (g Granularity) Valid() bool {
	switch g {
	case GranularityAll, GranularitySecond, GranularityMinute, GranularityHour, GranularityDay:
		return true
	}
	return false
}

// SortDirection is the tri-state sort setting for measures and result order
type SortDirection string

const (
	SortNone       SortDirection = "none"
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

// Next returns the following state in the fixed toggle cycle
// descending -> ascending -> none -> descending
func (s SortDirection) Next() SortDirection {
	switch s {
	case SortDescending:
		return SortAscending
	case SortAscending:
		return SortNone
	default:
		return SortDescending
	}
}

// AggregationType is the aggregation applied to a measure
type AggregationType string

const (
	AggLongSum     AggregationType = "longSum"
	AggLongMin     AggregationType = "longMin"
	AggLongMax     AggregationType = "longMax"
	AggDoubleMean  AggregationType = "doubleMean"
	AggHyperUnique AggregationType = "hyperUnique"
	AggCount       AggregationType = "count"
)

// FilterOp defines a dimension filter operation
type FilterOp string

const (
	FilterEquals   FilterOp = "equals"
	FilterNotEqual FilterOp = "not-equal"
	FilterIsNull   FilterOp = "is-null"
	FilterNotNull  FilterOp = "not-null"
	FilterRegex    FilterOp = "regex"
	FilterNotRegex FilterOp = "not-regex"
	FilterLike     FilterOp = "like"
	FilterNotLike  FilterOp = "not-like"
	FilterIn       FilterOp = "in"
	FilterNotIn    FilterOp = "not-in"
	FilterSearch   FilterOp = "search"
	FilterLTE      FilterOp = "lte"
	FilterGTE      FilterOp = "gte"
)

// ThresholdOp defines a post-aggregation threshold comparison
type ThresholdOp string

const (
	ThresholdLT ThresholdOp = "lt"
	ThresholdGT ThresholdOp = "gt"
	ThresholdEQ ThresholdOp = "eq"
)

// Filter is a single predicate on a dimension
type Filter struct {
	ID     string   `json:"id,omitempty"`
	Op     FilterOp `json:"op"`
	Values []any    `json:"values"`
}

// Threshold is a post-aggregation ("having") condition on a measure
type Threshold struct {
	ID    string      `json:"id,omitempty"`
	Op    ThresholdOp `json:"op"`
	Value float64     `json:"value"`
}

// Transform is a presentation transform attached to a dimension or measure
type Transform struct {
	ID    string `json:"id,omitempty"`
	Op    string `json:"op"`
	Param string `json:"param,omitempty"`
	Color string `json:"color,omitempty"`
}

// Dimension is a field used to group or filter results. It may be physical
// (backed by a stored field) or virtual (derived from the timestamp).
type Dimension struct {
	ID         string      `json:"id,omitempty"`
	Field      string      `json:"field"`
	Title      string      `json:"title,omitempty"`
	Type       string      `json:"type,omitempty"`
	Color      string      `json:"color,omitempty"`
	Hidden     bool        `json:"hidden,omitempty"`
	Filters    []Filter    `json:"filters,omitempty"`
	Transforms []Transform `json:"transforms,omitempty"`
}

// Measure is a field or virtual quantity that is aggregated
type Measure struct {
	ID         string          `json:"id,omitempty"`
	Field      string          `json:"field"`
	Title      string          `json:"title,omitempty"`
	Type       AggregationType `json:"type,omitempty"`
	Sort       SortDirection   `json:"sort,omitempty"`
	Disabled   bool            `json:"disabled,omitempty"`
	Color      string          `json:"color,omitempty"`
	Thresholds []Threshold     `json:"thresholds,omitempty"`
	Transforms []Transform     `json:"transforms,omitempty"`
	Format     string          `json:"format,omitempty"`
}

// RangeSpec is either a relative preset keyword ("1h", "3D", "All", ...) or
// an explicit [start, end] instant pair. Instants are kept as strings and
// parsed by the time range resolver.
type RangeSpec struct {
	Preset string
	Start  string
	End    string
}

// IsZero reports whether no range was supplied
func (r RangeSpec) IsZero() bool {
	return r.Preset == "" && r.Start == "" && r.End == ""
}

// IsPreset reports whether the range is a preset keyword
func (r RangeSpec) IsPreset() bool {
	return r.Preset != ""
}

// UnmarshalJSON accepts either a JSON string (preset) or a two element
// array of instants.
func (r *RangeSpec) UnmarshalJSON(data []byte) error {
	var preset string
	if err := json.Unmarshal(data, &preset); err == nil {
		r.Preset = preset
		return nil
	}
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range must be a preset string or [start, end] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("explicit range must have exactly 2 elements, got %d", len(pair))
	}
	r.Start = pair[0]
	r.End = pair[1]
	return nil
}

// MarshalJSON emits the same wire shape UnmarshalJSON accepts
func (r RangeSpec) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	if r.IsPreset() {
		return json.Marshal(r.Preset)
	}
	return json.Marshal([]string{r.Start, r.End})
}

// Query is the backend-independent query intermediate representation passed
// to every adapter capability except discovery
type Query struct {
	Dimensions  []Dimension   `json:"dimensions,omitempty"`
	Measures    []Measure     `json:"measures,omitempty"`
	Granularity Granularity   `json:"granularity,omitempty"`
	Range       RangeSpec     `json:"range,omitempty"`
	Limit       int           `json:"limit,omitempty"`
	Order       SortDirection `json:"order,omitempty"`
}

// ValuesQuery describes a distinct-values search on a single field
type ValuesQuery struct {
	Field  string    `json:"field"`
	Search string    `json:"search,omitempty"`
	Range  RangeSpec `json:"range,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Row is a flat result record mapping requested dimension/measure field
// names (plus the resolved timestamp field when time-bucketed) to values
type Row map[string]any

// SchemaField describes one discovered dimension or measure
type SchemaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the discovered shape of a dataset
type Schema struct {
	Dimensions []SchemaField `json:"dimensions"`
	Measures   []SchemaField `json:"measures"`
	NumRows    int64         `json:"numRows,omitempty"`
	Intervals  []string      `json:"intervals,omitempty"`
}
