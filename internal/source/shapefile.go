package source

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// ReadShapefile converts every record of a shapefile into a GeoJSON feature.
// DBF attributes become properties in column order (blank values become null)
// and the shape is encoded as GeoJSON geometry; unsupported or empty shapes
// produce a null geometry.
func ReadShapefile(shpPath string) (*Collection, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	fc := &Collection{Type: "FeatureCollection"}
	var nullGeoms int

	for reader.Next() {
		_, shape := reader.Shape()

		props := orderedProps{keys: names, values: make([]any, len(names))}
		for i := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				props.values[i] = val
			}
		}

		geometry := json.RawMessage("null")
		if g := shapeToGeom(shape); g != nil {
			data, err := geojson.Marshal(g)
			if err != nil {
				return nil, eris.Wrapf(err, "source: encode geometry in %s", shpPath)
			}
			geometry = data
		} else {
			nullGeoms++
		}

		propsJSON, err := props.MarshalJSON()
		if err != nil {
			return nil, eris.Wrapf(err, "source: encode properties in %s", shpPath)
		}

		raw, err := json.Marshal(Feature{
			Type:       "Feature",
			Properties: propsJSON,
			Geometry:   geometry,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "source: encode feature in %s", shpPath)
		}
		fc.Features = append(fc.Features, raw)
	}

	if nullGeoms > 0 {
		zap.L().Debug("source: shapefile records without usable geometry",
			zap.String("path", shpPath),
			zap.Int("records", nullGeoms),
		)
	}

	return fc, nil
}

// orderedProps marshals attributes as a JSON object in DBF column order.
type orderedProps struct {
	keys   []string
	values []any
}

func (p orderedProps) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// shapeToGeom converts a go-shp shape to a go-geom geometry.
// Returns nil for unsupported or empty shapes.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil
		}
		return geom.NewMultiPointFlat(geom.XY, pointsFlat(s.Points))
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polygonToMultiPolygon(s)
	default:
		return nil
	}
}

// partBounds returns the [start, end) point range of part i.
func partBounds(parts []int32, numParts int32, numPoints int, i int32) (int32, int32) {
	start := parts[i]
	end := int32(numPoints)
	if i+1 < numParts {
		end = parts[i+1]
	}
	return start, end
}

// polyLineToMultiLineString converts a shapefile PolyLine to a geom.MultiLineString.
func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i := int32(0); i < pl.NumParts; i++ {
		start, end := partBounds(pl.Parts, pl.NumParts, len(pl.Points), i)
		ls := geom.NewLineStringFlat(geom.XY, pointsFlat(pl.Points[start:end]))
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("source: skipping malformed linestring part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Shapefile outer rings wind clockwise and holes counter-clockwise; each hole
// belongs to the outer ring before it. A hole with no preceding outer ring is
// kept as an outer ring.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys []*geom.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start, end := partBounds(p.Parts, p.NumParts, len(p.Points), i)
		pts := p.Points[start:end]
		if len(pts) < 4 {
			zap.L().Debug("source: skipping degenerate polygon ring", zap.Int32("part", i), zap.Int("points", len(pts)))
			continue
		}
		ring := geom.NewLinearRingFlat(geom.XY, pointsFlat(pts))

		if signedArea(pts) > 0 && len(polys) > 0 {
			if err := polys[len(polys)-1].Push(ring); err != nil {
				zap.L().Debug("source: skipping malformed polygon hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("source: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		polys = append(polys, poly)
	}

	if len(polys) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, poly := range polys {
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("source: skipping malformed polygon part", zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area of a ring: negative when clockwise.
func signedArea(pts []shp.Point) float64 {
	var sum float64
	for i := 0; i < len(pts)-1; i++ {
		sum += pts[i].X*pts[i+1].Y - pts[i+1].X*pts[i].Y
	}
	return sum / 2
}

// pointsFlat converts shapefile points to flat XY coordinates for go-geom.
func pointsFlat(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, pt := range points {
		flat = append(flat, pt.X, pt.Y)
	}
	return flat
}
