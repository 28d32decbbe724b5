package ingest

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/georef-cli/internal/source"
)

// EncodeGeometry parses a GeoJSON geometry object, tags it with srid and
// returns EWKB bytes. A missing or null geometry returns nil, nil.
func EncodeGeometry(raw json.RawMessage, srid int) ([]byte, error) {
	if source.IsNull(raw) {
		return nil, nil
	}

	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "ingest: decode geometry")
	}
	if g == nil {
		return nil, eris.New("ingest: decode geometry: empty result")
	}

	g, err := withSRID(g, srid)
	if err != nil {
		return nil, err
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: encode EWKB")
	}
	return data, nil
}

// withSRID sets the SRID on any concrete go-geom geometry type.
func withSRID(g geom.T, srid int) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Point:
		return t.SetSRID(srid), nil
	case *geom.LineString:
		return t.SetSRID(srid), nil
	case *geom.Polygon:
		return t.SetSRID(srid), nil
	case *geom.MultiPoint:
		return t.SetSRID(srid), nil
	case *geom.MultiLineString:
		return t.SetSRID(srid), nil
	case *geom.MultiPolygon:
		return t.SetSRID(srid), nil
	case *geom.GeometryCollection:
		return t.SetSRID(srid), nil
	default:
		return nil, eris.Errorf("ingest: unsupported geometry type %T", g)
	}
}
