package structs

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StoreSpec names the physical store(s) behind a dataset. It deserializes
// from either a single scalar or a list; a list always compiles to a
// union-of-sources query in the columnar adapter, even with one element.
type StoreSpec struct {
	Name  string
	Names []string
}

// IsUnion reports whether the spec was declared as a list of stores
func (s StoreSpec) IsUnion() bool {
	return len(s.Names) > 0
}

// First returns the first (or only) store name
func (s StoreSpec) First() string {
	if s.IsUnion() {
		return s.Names[0]
	}
	return s.Name
}

// All returns every store name in declaration order
func (s StoreSpec) All() []string {
	if s.IsUnion() {
		return s.Names
	}
	if s.Name == "" {
		return nil
	}
	return []string{s.Name}
}

func (s *StoreSpec) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		s.Name = name
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("store must be a string or list of strings: %w", err)
	}
	s.Names = names
	return nil
}

func (s StoreSpec) MarshalJSON() ([]byte, error) {
	if s.IsUnion() {
		return json.Marshal(s.Names)
	}
	return json.Marshal(s.Name)
}

func (s *StoreSpec) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err == nil {
		s.Name = name
		return nil
	}
	var names []string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("store must be a string or list of strings: %w", err)
	}
	s.Names = names
	return nil
}

// Dataset is the registration record for one queryable collection of
// records backed by exactly one external store. Immutable after
// registration.
type Dataset struct {
	ID             string    `json:"id" yaml:"id"`
	Title          string    `json:"title,omitempty" yaml:"title"`
	Adapter        string    `json:"adapter" yaml:"adapter"`
	Store          StoreSpec `json:"store" yaml:"store"`
	TimestampField string    `json:"timestampField,omitempty" yaml:"timestampField"`
	Measures       []string  `json:"measures,omitempty" yaml:"measures"`
}

// Document is one record queued for ingest into a dataset
type Document struct {
	Dataset string `json:"dataset"`
	Fields  Row    `json:"fields"`
}
