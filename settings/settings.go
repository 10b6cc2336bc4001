// Package settings holds the per-caller analytics view model: selected
// dimensions, measures, filters, thresholds, transforms, granularity, sort
// order and limit. The model performs no I/O; every mutation ends with a
// publish to a single persistence collaborator.
package settings

import (
	"fmt"

	"github.com/rivlab/analytics-core/structs"
)

// Defaults for a freshly created settings instance
const (
	DefaultView         = "Dual"
	DefaultMode         = "Rollup"
	DefaultRange        = "1M"
	DefaultLimit        = 25
	defaultMeasureColor = "#999999"
)

// Publisher receives the full settings state after every mutation.
// Persistence is the publisher's concern, keeping mutation and saving
// independently testable.
type Publisher interface {
	Publish(s *QuerySettings)
}

// QuerySettings is the mutable aggregate describing one analytics view.
// It is scoped to a single caller session and not safe for concurrent
// mutation.
type QuerySettings struct {
	View        string                `json:"view"`
	Mode        string                `json:"mode"`
	Range       structs.RangeSpec     `json:"range"`
	Limit       int                   `json:"limit"`
	Granularity structs.Granularity   `json:"granularity"`
	Order       structs.SortDirection `json:"order"`
	Dimensions  []structs.Dimension   `json:"dimensions"`
	Measures    []structs.Measure     `json:"measures"`
	Favorites   []string              `json:"favorites"`
	Indicators  []string              `json:"indicators"`

	publisher Publisher
}

// New creates a settings instance with defaults. pub may be nil.
func New(pub Publisher) *QuerySettings {
	return &QuerySettings{
		View:        DefaultView,
		Mode:        DefaultMode,
		Range:       structs.RangeSpec{Preset: DefaultRange},
		Limit:       DefaultLimit,
		Granularity: structs.GranularityHour,
		Order:       structs.SortDescending,
		Dimensions:  []structs.Dimension{},
		Measures:    []structs.Measure{},
		Favorites:   []string{},
		Indicators:  []string{},
		publisher:   pub,
	}
}

// SetPublisher attaches the persistence collaborator, typically after
// rehydrating a stored instance.
func (s *QuerySettings) SetPublisher(pub Publisher) {
	s.publisher = pub
}

func (s *QuerySettings) publish() {
	if s.publisher != nil {
		s.publisher.Publish(s)
	}
}

func (s *QuerySettings) SetMode(mode string) {
	s.Mode = mode
	s.publish()
}

func (s *QuerySettings) SetGranularity(g structs.Granularity) {
	s.Granularity = g
	s.publish()
}

func (s *QuerySettings) SetLimit(limit int) {
	s.Limit = limit
	s.publish()
}

func (s *QuerySettings) SetRange(r structs.RangeSpec) {
	s.Range = r
	s.publish()
}

func (s *QuerySettings) SetView(view string) {
	s.View = view
	s.publish()
}

// ToggleOrder rotates the overall result order through the tri-state cycle
func (s *QuerySettings) ToggleOrder() {
	s.Order = s.Order.Next()
	s.publish()
}

// AddDimension appends a new dimension with a fresh id. The field name is
// used as title when none is given.
func (s *QuerySettings) AddDimension(d structs.Dimension) structs.Dimension {
	if d.Title == "" {
		d.Title = d.Field
	}
	d.ID = newID()
	if d.Filters == nil {
		d.Filters = []structs.Filter{}
	}
	if d.Transforms == nil {
		d.Transforms = []structs.Transform{}
	}
	s.Dimensions = append(s.Dimensions, d)
	s.publish()
	return d
}

func (s *QuerySettings) RemoveDimension(id string) error {
	for i := range s.Dimensions {
		if s.Dimensions[i].ID == id {
			s.Dimensions = append(s.Dimensions[:i], s.Dimensions[i+1:]...)
			s.publish()
			return nil
		}
	}
	return fmt.Errorf("unknown dimension id %q", id)
}

// ToggleDimension flips hidden; a hidden dimension's filters still apply
// but it contributes no result grouping.
func (s *QuerySettings) ToggleDimension(id string) error {
	d, err := s.dimension(id)
	if err != nil {
		return err
	}
	d.Hidden = !d.Hidden
	s.publish()
	return nil
}

func (s *QuerySettings) SetDimensionColor(id, color string) error {
	d, err := s.dimension(id)
	if err != nil {
		return err
	}
	d.Color = color
	s.publish()
	return nil
}

func (s *QuerySettings) DimensionFilters(id string) ([]structs.Filter, error) {
	d, err := s.dimension(id)
	if err != nil {
		return nil, err
	}
	return d.Filters, nil
}

func (s *QuerySettings) AddDimensionFilter(id string, op structs.FilterOp, values []any) (structs.Filter, error) {
	d, err := s.dimension(id)
	if err != nil {
		return structs.Filter{}, err
	}
	f := structs.Filter{ID: newID(), Op: op, Values: values}
	d.Filters = append(d.Filters, f)
	s.publish()
	return f, nil
}

func (s *QuerySettings) UpdateDimensionFilter(id, filterID string, op structs.FilterOp, values []any) error {
	d, err := s.dimension(id)
	if err != nil {
		return err
	}
	for i := range d.Filters {
		if d.Filters[i].ID == filterID {
			d.Filters[i].Op = op
			d.Filters[i].Values = values
			s.publish()
			return nil
		}
	}
	return fmt.Errorf("unknown filter id %q", filterID)
}

func (s *QuerySettings) RemoveDimensionFilter(id, filterID string) error {
	d, err := s.dimension(id)
	if err != nil {
		return err
	}
	for i := range d.Filters {
		if d.Filters[i].ID == filterID {
			d.Filters = append(d.Filters[:i], d.Filters[i+1:]...)
			s.publish()
			return nil
		}
	}
	return fmt.Errorf("unknown filter id %q", filterID)
}

func (s *QuerySettings) ClearDimensionFilters(id string) error {
	d, err := s.dimension(id)
	if err != nil {
		return err
	}
	d.Filters = []structs.Filter{}
	s.publish()
	return nil
}

func (s *QuerySettings) AddDimensionTransform(id string, t structs.Transform) (structs.Transform, error) {
	d, err := s.dimension(id)
	if err != nil {
		return structs.Transform{}, err
	}
	t.ID = newID()
	d.Transforms = append(d.Transforms, t)
	s.publish()
	return t, nil
}

func (s *QuerySettings) ClearDimensionTransforms(id string) error {
	d, err := s.dimension(id)
	if err != nil {
		return err
	}
	d.Transforms = []structs.Transform{}
	s.publish()
	return nil
}

// VisibleDimensions returns dimensions that contribute result grouping
func (s *QuerySettings) VisibleDimensions() []structs.Dimension {
	out := make([]structs.Dimension, 0, len(s.Dimensions))
	for _, d := range s.Dimensions {
		if !d.Hidden {
			out = append(out, d)
		}
	}
	return out
}

func (s *QuerySettings) HiddenDimensions() []structs.Dimension {
	var out []structs.Dimension
	for _, d := range s.Dimensions {
		if d.Hidden {
			out = append(out, d)
		}
	}
	return out
}

// AddMeasure appends a new measure with a fresh id. When no explicit color
// is given, the first palette color not already used by another measure is
// assigned; with the palette exhausted the default color applies.
func (s *QuerySettings) AddMeasure(m structs.Measure) structs.Measure {
	if m.Title == "" {
		m.Title = m.Field
	}
	if m.Sort == "" {
		m.Sort = structs.SortDescending
	}
	if m.Format == "" {
		m.Format = "auto"
	}
	if m.Color == "" {
		used := make(map[string]bool, len(s.Measures))
		for _, existing := range s.Measures {
			used[existing.Color] = true
		}
		m.Color = pickColor(used, defaultMeasureColor)
	}
	m.ID = newID()
	if m.Thresholds == nil {
		m.Thresholds = []structs.Threshold{}
	}
	if m.Transforms == nil {
		m.Transforms = []structs.Transform{}
	}
	s.Measures = append(s.Measures, m)
	s.publish()
	return m
}

func (s *QuerySettings) RemoveMeasure(id string) error {
	for i := range s.Measures {
		if s.Measures[i].ID == id {
			s.Measures = append(s.Measures[:i], s.Measures[i+1:]...)
			s.publish()
			return nil
		}
	}
	return fmt.Errorf("unknown measure id %q", id)
}

func (s *QuerySettings) ToggleMeasure(id string) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	m.Disabled = !m.Disabled
	s.publish()
	return nil
}

// ToggleMeasureSort rotates the measure sort through the tri-state cycle
func (s *QuerySettings) ToggleMeasureSort(id string) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	m.Sort = m.Sort.Next()
	s.publish()
	return nil
}

func (s *QuerySettings) SetMeasureSort(id string, sort structs.SortDirection) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	m.Sort = sort
	s.publish()
	return nil
}

func (s *QuerySettings) SetMeasureType(id string, typ structs.AggregationType) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	m.Type = typ
	s.publish()
	return nil
}

func (s *QuerySettings) SetMeasureFormat(id, format string) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	m.Format = format
	s.publish()
	return nil
}

func (s *QuerySettings) MeasureThresholds(id string) ([]structs.Threshold, error) {
	m, err := s.measure(id)
	if err != nil {
		return nil, err
	}
	return m.Thresholds, nil
}

func (s *QuerySettings) AddMeasureThreshold(id string, op structs.ThresholdOp, value float64) (structs.Threshold, error) {
	m, err := s.measure(id)
	if err != nil {
		return structs.Threshold{}, err
	}
	th := structs.Threshold{ID: newID(), Op: op, Value: value}
	m.Thresholds = append(m.Thresholds, th)
	s.publish()
	return th, nil
}

func (s *QuerySettings) UpdateMeasureThreshold(id, thresholdID string, op structs.ThresholdOp, value float64) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	for i := range m.Thresholds {
		if m.Thresholds[i].ID == thresholdID {
			m.Thresholds[i].Op = op
			m.Thresholds[i].Value = value
			s.publish()
			return nil
		}
	}
	return fmt.Errorf("unknown threshold id %q", thresholdID)
}

func (s *QuerySettings) RemoveMeasureThreshold(id, thresholdID string) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	for i := range m.Thresholds {
		if m.Thresholds[i].ID == thresholdID {
			m.Thresholds = append(m.Thresholds[:i], m.Thresholds[i+1:]...)
			s.publish()
			return nil
		}
	}
	return fmt.Errorf("unknown threshold id %q", thresholdID)
}

func (s *QuerySettings) AddMeasureTransform(id string, t structs.Transform) (structs.Transform, error) {
	m, err := s.measure(id)
	if err != nil {
		return structs.Transform{}, err
	}
	t.ID = newID()
	m.Transforms = append(m.Transforms, t)
	s.publish()
	return t, nil
}

func (s *QuerySettings) RemoveMeasureTransform(id, transformID string) error {
	m, err := s.measure(id)
	if err != nil {
		return err
	}
	for i := range m.Transforms {
		if m.Transforms[i].ID == transformID {
			m.Transforms = append(m.Transforms[:i], m.Transforms[i+1:]...)
			s.publish()
			return nil
		}
	}
	return fmt.Errorf("unknown transform id %q", transformID)
}

func (s *QuerySettings) dimension(id string) (*structs.Dimension, error) {
	for i := range s.Dimensions {
		if s.Dimensions[i].ID == id {
			return &s.Dimensions[i], nil
		}
	}
	return nil, fmt.Errorf("unknown dimension id %q", id)
}

func (s *QuerySettings) measure(id string) (*structs.Measure, error) {
	for i := range s.Measures {
		if s.Measures[i].ID == id {
			return &s.Measures[i], nil
		}
	}
	return nil, fmt.Errorf("unknown measure id %q", id)
}
