package structs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStoreSpecUnmarshalScalar(t *testing.T) {
	var s StoreSpec
	require.NoError(t, json.Unmarshal([]byte(`"requests"`), &s))
	assert.Equal(t, "requests", s.Name)
	assert.False(t, s.IsUnion())
	assert.Equal(t, "requests", s.First())
	assert.Equal(t, []string{"requests"}, s.All())
}

func TestStoreSpecUnmarshalList(t *testing.T) {
	var s StoreSpec
	require.NoError(t, json.Unmarshal([]byte(`["edge", "origin"]`), &s))
	assert.True(t, s.IsUnion())
	assert.Equal(t, "edge", s.First())
	assert.Equal(t, []string{"edge", "origin"}, s.All())
}

func TestStoreSpecSingleElementListIsStillUnion(t *testing.T) {
	var s StoreSpec
	require.NoError(t, json.Unmarshal([]byte(`["edge"]`), &s))
	assert.True(t, s.IsUnion())
}

func TestStoreSpecMarshal(t *testing.T) {
	raw, err := json.Marshal(StoreSpec{Name: "requests"})
	require.NoError(t, err)
	assert.JSONEq(t, `"requests"`, string(raw))

	raw, err = json.Marshal(StoreSpec{Names: []string{"edge", "origin"}})
	require.NoError(t, err)
	assert.JSONEq(t, `["edge", "origin"]`, string(raw))
}

func TestDatasetYAML(t *testing.T) {
	doc := `
id: traffic
title: Traffic
adapter: druid
store:
  - edge
  - origin
timestampField: Timestamp
measures:
  - Bytes
`
	var ds Dataset
	require.NoError(t, yaml.Unmarshal([]byte(doc), &ds))
	assert.Equal(t, "traffic", ds.ID)
	assert.Equal(t, "druid", ds.Adapter)
	assert.True(t, ds.Store.IsUnion())
	assert.Equal(t, []string{"edge", "origin"}, ds.Store.All())
	assert.Equal(t, []string{"Bytes"}, ds.Measures)
}

func TestDatasetYAMLScalarStore(t *testing.T) {
	doc := `
id: events
adapter: mongolap
store: events
`
	var ds Dataset
	require.NoError(t, yaml.Unmarshal([]byte(doc), &ds))
	assert.Equal(t, "events", ds.Store.Name)
	assert.False(t, ds.Store.IsUnion())
}
