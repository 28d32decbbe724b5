// Package seed provides a small fixed set of sample countries and states for
// development databases and smoke tests. Samples go through the regular
// ingest path, so reseeding is a no-op and states link to their countries.
package seed

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/georef-cli/internal/db"
	"github.com/sells-group/georef-cli/internal/ingest"
)

// BBox is a lon/lat bounding box: min x, min y, max x, max y.
type BBox [4]float64

// Country is a sample admin-0 row.
type Country struct {
	Name  string
	ISOA2 string
	ISOA3 string
	ISON3 string
	BBox  BBox
}

// State is a sample admin-1 row. Admin names the parent country.
type State struct {
	Name     string
	ISOA2    string
	Admin    string
	ADM1Code string
	Type     string
	BBox     BBox
}

// Countries are the sample countries.
var Countries = []Country{
	{Name: "United States of America", ISOA2: "US", ISOA3: "USA", ISON3: "840", BBox: BBox{-125.0, 24.5, -66.9, 49.4}},
	{Name: "Canada", ISOA2: "CA", ISOA3: "CAN", ISON3: "124", BBox: BBox{-141.0, 41.7, -52.6, 83.1}},
	{Name: "France", ISOA2: "FR", ISOA3: "FRA", ISON3: "250", BBox: BBox{-5.1, 41.3, 9.6, 51.1}},
	{Name: "Germany", ISOA2: "DE", ISOA3: "DEU", ISON3: "276", BBox: BBox{5.9, 47.3, 15.0, 55.1}},
	{Name: "Brazil", ISOA2: "BR", ISOA3: "BRA", ISON3: "076", BBox: BBox{-74.0, -33.8, -34.8, 5.3}},
}

// States are the sample states and provinces.
var States = []State{
	{Name: "California", ISOA2: "US", Admin: "United States of America", ADM1Code: "US-CA", Type: "State", BBox: BBox{-124.4, 32.5, -114.1, 42.0}},
	{Name: "Texas", ISOA2: "US", Admin: "United States of America", ADM1Code: "US-TX", Type: "State", BBox: BBox{-106.6, 25.8, -93.5, 36.5}},
	{Name: "Ontario", ISOA2: "CA", Admin: "Canada", ADM1Code: "CA-ON", Type: "Province", BBox: BBox{-95.2, 41.7, -74.3, 56.9}},
	{Name: "Île-de-France", ISOA2: "FR", Admin: "France", ADM1Code: "FR-IDF", Type: "Region", BBox: BBox{1.4, 48.1, 3.6, 49.2}},
	{Name: "Bavaria", ISOA2: "DE", Admin: "Germany", ADM1Code: "DE-BY", Type: "State", BBox: BBox{8.9, 47.3, 13.9, 50.6}},
}

// Result holds the summaries of both seeding passes.
type Result struct {
	Countries *ingest.Summary
	States    *ingest.Summary
}

// Load inserts the sample countries and then the sample states.
func Load(ctx context.Context, pool db.Pool) (*Result, error) {
	log := zap.L().With(zap.String("component", "seed"))

	countries, err := CountriesDocument()
	if err != nil {
		return nil, err
	}
	states, err := StatesDocument()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if res.Countries, err = ingest.Run(ctx, pool, ingest.KindCountry, countries); err != nil {
		return nil, eris.Wrap(err, "seed: countries")
	}
	if res.States, err = ingest.Run(ctx, pool, ingest.KindState, states); err != nil {
		return res, eris.Wrap(err, "seed: states")
	}

	log.Info("seed complete",
		zap.Int("countries_inserted", res.Countries.Inserted),
		zap.Int("states_inserted", res.States.Inserted),
	)
	return res, nil
}

// CountriesDocument renders Countries as a FeatureCollection using Natural
// Earth admin-0 property names.
func CountriesDocument() ([]byte, error) {
	features := make([]*geojson.Feature, 0, len(Countries))
	for _, c := range Countries {
		features = append(features, &geojson.Feature{
			ID:       c.ISOA3,
			Geometry: c.BBox.Polygon(),
			Properties: map[string]any{
				"NAME":    c.Name,
				"NAME_EN": c.Name,
				"ISO_A2":  c.ISOA2,
				"ISO_A3":  c.ISOA3,
				"ISO_N3":  c.ISON3,
			},
		})
	}
	return marshal(features)
}

// StatesDocument renders States as a FeatureCollection using Natural Earth
// admin-1 property names.
func StatesDocument() ([]byte, error) {
	features := make([]*geojson.Feature, 0, len(States))
	for _, s := range States {
		features = append(features, &geojson.Feature{
			ID:       s.ADM1Code,
			Geometry: s.BBox.Polygon(),
			Properties: map[string]any{
				"name":      s.Name,
				"name_en":   s.Name,
				"iso_a2":    s.ISOA2,
				"admin":     s.Admin,
				"adm1_code": s.ADM1Code,
				"type":      s.Type,
				"type_en":   s.Type,
			},
		})
	}
	return marshal(features)
}

// Polygon returns b as a closed rectangular ring.
func (b BBox) Polygon() *geom.Polygon {
	minX, minY, maxX, maxY := b[0], b[1], b[2], b[3]
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}})
}

func marshal(features []*geojson.Feature) ([]byte, error) {
	data, err := json.Marshal(&geojson.FeatureCollection{Features: features})
	if err != nil {
		return nil, eris.Wrap(err, "seed: encode feature collection")
	}
	return data, nil
}
