// Package ingest loads Natural Earth GeoJSON features into the gis.countries
// and gis.states reference tables.
//
// Each feature is mapped, linked and inserted as its own statement
// (autocommit); a failure is recorded on the feature and the run moves on.
// Only an unparseable document or a cancelled context stops a run.
package ingest

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/georef-cli/internal/db"
	"github.com/sells-group/georef-cli/internal/source"
)

// Options tunes a run.
type Options struct {
	// RunID tags log lines and the run log; a random ID is used when zero.
	RunID uuid.UUID
	// SRID overrides DefaultSRID.
	SRID int
}

// Countries loads a country FeatureCollection and returns the number of
// features attempted.
func Countries(ctx context.Context, pool db.Pool, geojsonText []byte) (int, error) {
	s, err := Run(ctx, pool, KindCountry, geojsonText)
	if err != nil {
		return 0, err
	}
	return s.Attempted, nil
}

// States loads a state/province FeatureCollection and returns the number of
// features attempted. Countries must already be loaded for states to link.
func States(ctx context.Context, pool db.Pool, geojsonText []byte) (int, error) {
	s, err := Run(ctx, pool, KindState, geojsonText)
	if err != nil {
		return 0, err
	}
	return s.Attempted, nil
}

// Run parses geojsonText and loads its features as kind. A document that is
// not valid JSON fails before anything is written.
func Run(ctx context.Context, pool db.Pool, kind Kind, geojsonText []byte) (*Summary, error) {
	fc, err := source.ParseCollection(geojsonText)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: %s", kind)
	}
	return RunCollection(ctx, pool, kind, fc, Options{})
}

// RunCollection loads an already parsed collection as kind.
func RunCollection(ctx context.Context, pool db.Pool, kind Kind, fc *source.Collection, opts Options) (*Summary, error) {
	m, err := MappingFor(kind)
	if err != nil {
		return nil, err
	}
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	if opts.SRID == 0 {
		opts.SRID = DefaultSRID
	}

	log := zap.L().With(
		zap.String("component", "ingest"),
		zap.String("kind", string(kind)),
		zap.String("run_id", opts.RunID.String()),
	)

	l := &loader{pool: pool, mapping: m, insert: m.insertConfig(), srid: opts.SRID, log: log}
	summary := &Summary{RunID: opts.RunID, Kind: kind}

	log.Info("ingest started", zap.Int("features", len(fc.Features)))

	for i, raw := range fc.Features {
		if err := ctx.Err(); err != nil {
			return summary, eris.Wrapf(err, "ingest: %s cancelled after %d features", kind, i)
		}

		o := l.feature(ctx, i, raw)
		switch o.Status {
		case StatusFailed:
			log.Warn("feature skipped",
				zap.Int("index", o.Index),
				zap.String("name", o.Name),
				zap.String("error", o.Reason),
			)
		case StatusDuplicate:
			log.Debug("duplicate feature", zap.Int("index", o.Index), zap.String("name", o.Name))
		}
		summary.add(o)
	}

	log.Info("ingest complete",
		zap.Int("attempted", summary.Attempted),
		zap.Int("inserted", summary.Inserted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failed", summary.Failed),
		zap.Int("unlinked", summary.Unlinked),
	)
	return summary, nil
}

// loader holds the per-run state shared by every feature.
type loader struct {
	pool    db.Pool
	mapping Mapping
	insert  db.InsertConfig
	srid    int
	log     *zap.Logger
}

// row is a mapped feature ready for insertion.
type row struct {
	values     map[string]any
	properties []byte
	geoJSON    any
	ewkb       []byte
}

// feature maps, links and inserts one feature. It never returns an error:
// failures are reported on the Outcome.
func (l *loader) feature(ctx context.Context, index int, raw json.RawMessage) Outcome {
	o := Outcome{Index: index, Name: UnknownName}

	r, err := l.mapFeature(raw)
	if r != nil {
		if name, ok := r.values[colName].(string); ok {
			o.Name = name
		}
	}
	if err != nil {
		o.Status, o.Reason = StatusFailed, err.Error()
		return o
	}

	var countryID any
	if l.mapping.LinkCountry {
		id, found, err := LookupCountry(ctx, l.pool, r.values[colISOA2], r.values[colAdmin])
		if err != nil {
			o.Status, o.Reason = StatusFailed, err.Error()
			return o
		}
		if found {
			countryID = id
			o.Linked = true
		}
	}

	args := make([]any, 0, len(l.insert.Columns))
	for _, f := range l.mapping.Fields {
		args = append(args, r.values[f.Column])
	}
	if l.mapping.LinkCountry {
		args = append(args, countryID)
	}
	args = append(args, r.properties, r.geoJSON, r.ewkb)

	inserted, err := db.InsertIgnore(ctx, l.pool, l.insert, args...)
	if err != nil {
		o.Status, o.Reason = StatusFailed, err.Error()
		return o
	}
	if !inserted {
		o.Status = StatusDuplicate
		return o
	}
	o.Status = StatusInserted
	return o
}

// mapFeature decodes raw and applies the mapping. The returned row carries the
// mapped values even when geometry conversion fails, so the caller can name
// the feature in its diagnostics.
func (l *loader) mapFeature(raw json.RawMessage) (*row, error) {
	f, err := source.DecodeFeature(raw)
	if err != nil {
		return nil, err
	}

	props, err := f.Props()
	if err != nil {
		return nil, err
	}

	r := &row{
		values:     Extract(l.mapping.Fields, props),
		properties: []byte(f.RawProperties()),
	}
	if !source.IsNull(f.Geometry) {
		r.geoJSON = string(f.Geometry)
	}

	r.ewkb, err = EncodeGeometry(f.Geometry, l.srid)
	if err != nil {
		return r, err
	}
	return r, nil
}

// countryLookupSQL prefers an ISO alpha-2 match over a name match and breaks
// remaining ties by lowest id.
const countryLookupSQL = `
	SELECT id FROM gis.countries
	WHERE iso_a2 = $1 OR name = $2
	ORDER BY CASE WHEN iso_a2 = $1 THEN 0 ELSE 1 END, id
	LIMIT 1`

// LookupCountry resolves a country id by ISO alpha-2 code or display name.
// A miss is reported as found=false, not as an error.
func LookupCountry(ctx context.Context, pool db.Pool, isoA2, name any) (int64, bool, error) {
	if isoA2 == nil && name == nil {
		return 0, false, nil
	}

	var id int64
	err := pool.QueryRow(ctx, countryLookupSQL, isoA2, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, eris.Wrap(err, "ingest: lookup country")
	}
	return id, true, nil
}
