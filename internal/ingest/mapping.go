package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/georef-cli/internal/db"
)

// Kind identifies the entity table a dataset is loaded into.
type Kind string

// Supported entity kinds.
const (
	KindCountry Kind = "country"
	KindState   Kind = "state"
)

// DefaultSRID is the spatial reference every stored geometry is tagged with (WGS84).
const DefaultSRID = 4326

// UnknownName is stored when a feature has no usable name property.
const UnknownName = "Unknown"

// Column names shared by both entity tables.
const (
	colName       = "name"
	colISOA2      = "iso_a2"
	colAdmin      = "admin"
	colCountryID  = "country_id"
	colProperties = "properties"
	colGeoJSON    = "geojson"
	colGeom       = "geom"
)

// Dedup keys. A row whose key columns all match an existing row (NULLs equal)
// is a duplicate; the unique indexes in the gis migrations enforce them.
var (
	CountryDedupKey = []string{"name", "name_en", "iso_a2", "iso_a3", "iso_n3"}
	StateDedupKey   = []string{"name", "iso_a2", "adm1_code", "admin"}
)

// Mapping describes how features of one kind become rows.
type Mapping struct {
	Kind     Kind
	Table    string
	Fields   []Field
	DedupKey []string
	// LinkCountry resolves country_id from iso_a2 / admin before insert.
	LinkCountry bool
}

// CountryMapping maps Natural Earth admin-0 country features.
var CountryMapping = Mapping{
	Kind:  KindCountry,
	Table: "gis.countries",
	Fields: []Field{
		{Column: colName, Keys: []string{"NAME", "name", "ADMIN", "admin"}, Default: UnknownName},
		{Column: "name_en", Keys: []string{"NAME_EN", "name_en"}, FallbackTo: colName},
		{Column: colISOA2, Keys: []string{"ISO_A2", "iso_a2"}, NullValues: []string{NoCode}},
		{Column: "iso_a3", Keys: []string{"ISO_A3", "iso_a3"}, NullValues: []string{NoCode}},
		{Column: "iso_n3", Keys: []string{"ISO_N3", "iso_n3"}, NullValues: []string{NoCode}},
	},
	DedupKey: CountryDedupKey,
}

// StateMapping maps Natural Earth admin-1 state/province features.
var StateMapping = Mapping{
	Kind:  KindState,
	Table: "gis.states",
	Fields: []Field{
		{Column: colName, Keys: []string{"name", "NAME"}, Default: UnknownName},
		{Column: "name_en", Keys: []string{"name_en", "NAME_EN"}, FallbackTo: colName},
		{Column: colISOA2, Keys: []string{"iso_a2", "ISO_A2"}, NullValues: []string{NoCode, ""}},
		{Column: colAdmin, Keys: []string{"admin", "ADMIN"}},
		{Column: "adm1_code", Keys: []string{"adm1_code", "ADM1_CODE", "code_local"}},
		{Column: "type", Keys: []string{"type", "TYPE"}},
		{Column: "type_en", Keys: []string{"type_en", "TYPE_EN"}},
	},
	DedupKey:    StateDedupKey,
	LinkCountry: true,
}

// MappingFor returns the mapping for kind.
func MappingFor(kind Kind) (Mapping, error) {
	switch kind {
	case KindCountry:
		return CountryMapping, nil
	case KindState:
		return StateMapping, nil
	default:
		return Mapping{}, eris.Errorf("ingest: unknown entity kind %q", kind)
	}
}

// ParseKind accepts the singular or plural kind name used on the command line.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "country", "countries":
		return KindCountry, nil
	case "state", "states", "province", "provinces":
		return KindState, nil
	default:
		return "", eris.Errorf("ingest: unknown entity kind %q", s)
	}
}

// Columns returns the insert columns in argument order: mapped fields, then
// country_id when linking, then properties, geojson and geom.
func (m Mapping) Columns() []string {
	cols := make([]string, 0, len(m.Fields)+4)
	for _, f := range m.Fields {
		cols = append(cols, f.Column)
	}
	if m.LinkCountry {
		cols = append(cols, colCountryID)
	}
	return append(cols, colProperties, colGeoJSON, colGeom)
}

// insertConfig describes the row insert for this mapping.
func (m Mapping) insertConfig() db.InsertConfig {
	return db.InsertConfig{
		Table:   m.Table,
		Columns: m.Columns(),
		Exprs:   map[string]string{colGeom: "ST_GeomFromEWKB(%s)"},
	}
}
