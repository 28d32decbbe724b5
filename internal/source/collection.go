// Package source reads Natural Earth datasets into raw GeoJSON features.
//
// Properties and geometry stay as raw JSON so they can be stored verbatim;
// decoding happens per feature so that one bad feature does not reject the
// whole document.
package source

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Collection is a GeoJSON FeatureCollection whose features are left undecoded.
type Collection struct {
	Type     string            `json:"type"`
	Name     string            `json:"name,omitempty"`
	Features []json.RawMessage `json:"features"`
}

// Feature is a single GeoJSON feature with raw properties and geometry.
type Feature struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// ParseCollection decodes a FeatureCollection document. It fails only when the
// document is not valid JSON or its top level is not an object; a document
// without a features member is an empty collection.
func ParseCollection(data []byte) (*Collection, error) {
	if IsNull(data) {
		return nil, eris.New("source: invalid GeoJSON document: expected an object")
	}

	var fc Collection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "source: invalid GeoJSON document")
	}
	return &fc, nil
}

// DecodeFeature decodes one element of Collection.Features.
func DecodeFeature(raw json.RawMessage) (*Feature, error) {
	var f Feature
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "source: decode feature")
	}
	return &f, nil
}

// Props decodes the feature's properties into a map. Numbers are kept as
// json.Number so codes like ISO_N3 keep their source spelling. A missing or
// null properties member yields an empty map.
func (f *Feature) Props() (map[string]any, error) {
	props := make(map[string]any)
	if IsNull(f.Properties) {
		return props, nil
	}

	dec := json.NewDecoder(bytes.NewReader(f.Properties))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, eris.Wrap(err, "source: decode properties")
	}
	return props, nil
}

// RawProperties returns the properties object as stored, "{}" when absent.
func (f *Feature) RawProperties() json.RawMessage {
	if IsNull(f.Properties) {
		return json.RawMessage(`{}`)
	}
	return f.Properties
}

// IsNull reports whether raw is empty or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
