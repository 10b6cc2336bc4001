// Package timerange maps relative range presets and explicit instant pairs
// to concrete start/end times. Resolution is pure given "now".
package timerange

import (
	"fmt"
	"time"

	"github.com/rivlab/analytics-core/structs"
)

// presets maps each keyword to its lookback duration from "now".
// PresetAll is handled separately and resolves start to the epoch.
var presets = map[string]time.Duration{
	"1m":  60 * time.Second,
	"15m": 900 * time.Second,
	"30m": 1800 * time.Second,
	"1h":  3600 * time.Second,
	"6h":  21600 * time.Second,
	"12h": 43200 * time.Second,
	"24h": 86400 * time.Second,
	"1D":  86400 * time.Second,
	"3D":  259200 * time.Second,
	"1W":  604800 * time.Second,
	"2W":  1209600 * time.Second,
	"1M":  2592000 * time.Second,
	"3M":  7776000 * time.Second,
	"6M":  15552000 * time.Second,
	"1Y":  31536000 * time.Second,
}

// PresetAll resolves to [epoch, now]
const PresetAll = "All"

// instantFormats are tried in order when parsing explicit range elements
var instantFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Presets returns every valid preset keyword
func Presets() []string {
	keys := make([]string, 0, len(presets)+1)
	for k := range presets {
		keys = append(keys, k)
	}
	keys = append(keys, PresetAll)
	return keys
}

// ValidPreset reports whether the keyword resolves
func ValidPreset(keyword string) bool {
	if keyword == PresetAll {
		return true
	}
	_, ok := presets[keyword]
	return ok
}

// Resolve maps a range spec to a concrete [start, end] pair. Explicit pairs
// are parsed but not order-validated: an inverted range is a valid,
// possibly-empty range for the adapters, not an error.
func Resolve(r structs.RangeSpec, now time.Time) (start, end time.Time, err error) {
	if r.IsPreset() {
		if r.Preset == PresetAll {
			return time.Unix(0, 0).UTC(), now, nil
		}
		d, ok := presets[r.Preset]
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown preset %q", structs.ErrInvalidRange, r.Preset)
		}
		return now.Add(-d), now, nil
	}
	if start, err = ParseInstant(r.Start); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad start instant %q", structs.ErrInvalidRange, r.Start)
	}
	if end, err = ParseInstant(r.End); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad end instant %q", structs.ErrInvalidRange, r.End)
	}
	return start, end, nil
}

// ParseInstant parses an explicit range element, trying each accepted
// layout in order
func ParseInstant(s string) (time.Time, error) {
	for _, layout := range instantFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable instant %q", s)
}
