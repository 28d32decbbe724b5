package ingest

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// NoCode is Natural Earth's "no code assigned" sentinel.
const NoCode = "-99"

// Field maps one target column to a prioritized list of source property keys.
type Field struct {
	Column string
	// Keys are tried in order; the first key that is present and not null wins.
	Keys []string
	// FallbackTo names an earlier column whose value is used when no key
	// matches, provided that column came from the feature's properties rather
	// than its Default (name_en falls back to name, never to "Unknown").
	FallbackTo string
	// Default is used when neither Keys nor FallbackTo produce a value.
	Default any
	// NullValues are normalized to NULL after extraction.
	NullValues []string
}

// Resolve returns the value of the first key in keys that is present in props
// with a non-null value.
func Resolve(props map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := props[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Extract applies fields in order and returns column values. Values are
// strings or nil.
func Extract(fields []Field, props map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	// Columns whose value came from props, directly or by fallback.
	fromProps := make(map[string]bool, len(fields))
	for _, f := range fields {
		var val any
		found := true
		if v, ok := Resolve(props, f.Keys); ok {
			val = textValue(v)
		} else if f.FallbackTo != "" && fromProps[f.FallbackTo] {
			val = out[f.FallbackTo]
		} else {
			val = f.Default
			found = false
		}

		if s, ok := val.(string); ok {
			for _, nv := range f.NullValues {
				if s == nv {
					val = nil
					break
				}
			}
		}
		out[f.Column] = val
		fromProps[f.Column] = found && val != nil
	}
	return out
}

// textValue renders a decoded JSON value as column text, NFC-normalized.
func textValue(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = fmt.Sprintf("%t", t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(data)
		}
	}
	return norm.NFC.String(s)
}
