package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoFeatures = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME": "France", "ISO_N3": 250},
     "geometry": {"type": "Polygon", "coordinates": [[[2,46],[3,46],[3,47],[2,47],[2,46]]]}},
    {"type": "Feature", "properties": null, "geometry": null}
  ]
}`

func TestParseCollection(t *testing.T) {
	fc, err := ParseCollection([]byte(twoFeatures))
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	f, err := DecodeFeature(fc.Features[0])
	require.NoError(t, err)
	props, err := f.Props()
	require.NoError(t, err)
	assert.Equal(t, "France", props["NAME"])
	assert.Equal(t, json.Number("250"), props["ISO_N3"])
	assert.False(t, IsNull(f.Geometry))

	empty, err := DecodeFeature(fc.Features[1])
	require.NoError(t, err)
	props, err = empty.Props()
	require.NoError(t, err)
	assert.Empty(t, props)
	assert.JSONEq(t, `{}`, string(empty.RawProperties()))
	assert.True(t, IsNull(empty.Geometry))
}

func TestParseCollection_InvalidJSON(t *testing.T) {
	for _, doc := range []string{`{"type": "FeatureCollection", "features": [`, `not json`, ``, `null`, `[1, 2]`} {
		_, err := ParseCollection([]byte(doc))
		require.Error(t, err, doc)
		assert.Contains(t, err.Error(), "invalid GeoJSON document")
	}
}

func TestParseCollection_NoFeatures(t *testing.T) {
	fc, err := ParseCollection([]byte(`{"type": "FeatureCollection"}`))
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
}

func TestParseCollection_BadFeatureIsDeferred(t *testing.T) {
	fc, err := ParseCollection([]byte(`{"features": [42, {"properties": {"name": "ok"}}]}`))
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	_, err = DecodeFeature(fc.Features[0])
	require.Error(t, err)

	f, err := DecodeFeature(fc.Features[1])
	require.NoError(t, err)
	props, err := f.Props()
	require.NoError(t, err)
	assert.Equal(t, "ok", props["name"])
}

func TestProps_NotAnObject(t *testing.T) {
	f := &Feature{Properties: json.RawMessage(`["a"]`)}
	_, err := f.Props()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode properties")
}

func TestRawProperties_Verbatim(t *testing.T) {
	raw := json.RawMessage(`{"b": 1, "a": 2}`)
	f := &Feature{Properties: raw}
	assert.Equal(t, string(raw), string(f.RawProperties()))
}

func TestLoad_GeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.geojson")
	require.NoError(t, os.WriteFile(path, []byte(twoFeatures), 0o644))

	fc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.geojson"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source: read")
}
