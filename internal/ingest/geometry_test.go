package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestEncodeGeometry_Kinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"point", `{"type":"Point","coordinates":[2.35,48.85]}`},
		{"linestring", `{"type":"LineString","coordinates":[[0,0],[1,1]]}`},
		{"polygon", `{"type":"Polygon","coordinates":[[[2,46],[3,46],[3,47],[2,47],[2,46]]]}`},
		{"multipolygon", `{"type":"MultiPolygon","coordinates":[[[[2,46],[3,46],[3,47],[2,47],[2,46]]],[[[8,41],[9,41],[9,43],[8,43],[8,41]]]]}`},
		{"multipoint", `{"type":"MultiPoint","coordinates":[[0,0],[1,1]]}`},
		{"multilinestring", `{"type":"MultiLineString","coordinates":[[[0,0],[1,1]],[[2,2],[3,3]]]}`},
		{"collection", `{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[0,0]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeGeometry(json.RawMessage(tt.raw), DefaultSRID)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			g, err := ewkb.Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, DefaultSRID, g.SRID())
		})
	}
}

func TestEncodeGeometry_PolygonRoundTrip(t *testing.T) {
	data, err := EncodeGeometry(json.RawMessage(`{"type":"Polygon","coordinates":[[[2,46],[3,46],[3,47],[2,47],[2,46]]]}`), DefaultSRID)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	poly, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, 1, poly.NumLinearRings())
	assert.Equal(t, 5, poly.NumCoords())
}

func TestEncodeGeometry_Null(t *testing.T) {
	for _, raw := range []string{"", "null", "  null  "} {
		data, err := EncodeGeometry(json.RawMessage(raw), DefaultSRID)
		require.NoError(t, err)
		assert.Nil(t, data)
	}
}

func TestEncodeGeometry_Malformed(t *testing.T) {
	for _, raw := range []string{
		`{"type":"Polygon","coordinates":"oops"}`,
		`{"type":"Hexagon","coordinates":[]}`,
		`{"coordinates":[1,2]}`,
		`[1,2]`,
	} {
		_, err := EncodeGeometry(json.RawMessage(raw), DefaultSRID)
		assert.Error(t, err, raw)
	}
}
