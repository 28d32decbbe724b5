package gis

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/georef-cli/internal/db"
)

// Report summarizes what the reference tables hold.
type Report struct {
	Countries        int64
	States           int64
	LinkedStates     int64
	CountriesNoGeom  int64
	StatesNoGeom     int64
	StatesPerCountry []CountryStates
}

// CountryStates is the number of states linked to one country.
type CountryStates struct {
	Name   string
	ISOA2  string
	States int64
}

const countsSQL = `
	SELECT
		(SELECT count(*) FROM gis.countries),
		(SELECT count(*) FROM gis.states),
		(SELECT count(*) FROM gis.states WHERE country_id IS NOT NULL),
		(SELECT count(*) FROM gis.countries WHERE geom IS NULL),
		(SELECT count(*) FROM gis.states WHERE geom IS NULL)`

const statesPerCountrySQL = `
	SELECT c.name, COALESCE(c.iso_a2, ''), count(s.id)
	FROM gis.countries c
	LEFT JOIN gis.states s ON s.country_id = c.id
	GROUP BY c.id, c.name, c.iso_a2
	ORDER BY count(s.id) DESC, c.name
	LIMIT $1`

// Verify reads table counts and the top countries by linked state count.
// It never writes.
func Verify(ctx context.Context, pool db.Pool, limit int) (*Report, error) {
	var r Report
	if err := pool.QueryRow(ctx, countsSQL).Scan(
		&r.Countries, &r.States, &r.LinkedStates, &r.CountriesNoGeom, &r.StatesNoGeom,
	); err != nil {
		return nil, eris.Wrap(err, "gis: verify counts")
	}

	if limit <= 0 {
		return &r, nil
	}

	rows, err := pool.Query(ctx, statesPerCountrySQL, limit)
	if err != nil {
		return nil, eris.Wrap(err, "gis: verify states per country")
	}
	defer rows.Close()

	for rows.Next() {
		var cs CountryStates
		if err := rows.Scan(&cs.Name, &cs.ISOA2, &cs.States); err != nil {
			return nil, eris.Wrap(err, "gis: scan states per country")
		}
		r.StatesPerCountry = append(r.StatesPerCountry, cs)
	}
	return &r, rows.Err()
}

// UnlinkedStates returns the number of states without a parent country.
func (r *Report) UnlinkedStates() int64 {
	return r.States - r.LinkedStates
}
