package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"country", "countries"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, KindCountry, k)
	}
	for _, s := range []string{"state", "states", "province", "provinces"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		assert.Equal(t, KindState, k)
	}

	_, err := ParseKind("county")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity kind")
}

func TestMappingFor(t *testing.T) {
	m, err := MappingFor(KindCountry)
	require.NoError(t, err)
	assert.Equal(t, "gis.countries", m.Table)
	assert.False(t, m.LinkCountry)

	m, err = MappingFor(KindState)
	require.NoError(t, err)
	assert.Equal(t, "gis.states", m.Table)
	assert.True(t, m.LinkCountry)

	_, err = MappingFor(Kind("city"))
	assert.Error(t, err)
}

func TestMapping_Columns(t *testing.T) {
	assert.Equal(t,
		[]string{"name", "name_en", "iso_a2", "iso_a3", "iso_n3", "properties", "geojson", "geom"},
		CountryMapping.Columns(),
	)
	assert.Equal(t,
		[]string{"name", "name_en", "iso_a2", "admin", "adm1_code", "type", "type_en", "country_id", "properties", "geojson", "geom"},
		StateMapping.Columns(),
	)
}

func TestMapping_DedupKeysAreMappedColumns(t *testing.T) {
	for _, m := range []Mapping{CountryMapping, StateMapping} {
		cols := make(map[string]bool)
		for _, c := range m.Columns() {
			cols[c] = true
		}
		for _, k := range m.DedupKey {
			assert.True(t, cols[k], "%s dedup column %s", m.Kind, k)
		}
	}
}

func TestMapping_InsertConfig(t *testing.T) {
	cfg := CountryMapping.insertConfig()
	assert.Equal(t, "gis.countries", cfg.Table)
	assert.Equal(t, "ST_GeomFromEWKB(%s)", cfg.Exprs["geom"])
}
