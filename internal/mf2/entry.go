// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package mf2

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
)

// Properties maps property names to their value lists. Every property is a
// list, even when it holds a single value; list order is preserved.
type Properties map[string][]Value

// Entry is an mf2 item: its types and properties.
type Entry struct {
	Type       []string   `json:"type"`
	Properties Properties `json:"properties"`
}

// NewEntry creates an entry of the given type with empty properties.
func NewEntry(types ...string) *Entry {
	return &Entry{Type: types, Properties: Properties{}}
}

// HasType reports whether t is among the entry's types.
func (e *Entry) HasType(t string) bool {
	for _, typ := range e.Type {
		if typ == t {
			return true
		}
	}
	return false
}

// Equal reports deep equality, ignoring property order.
func (e *Entry) Equal(o *Entry) bool {
	if len(e.Type) != len(o.Type) {
		return false
	}
	for i := range e.Type {
		if e.Type[i] != o.Type[i] {
			return false
		}
	}
	return e.Properties.Equal(o.Properties)
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	types := append([]string(nil), e.Type...)
	return &Entry{Type: types, Properties: e.Properties.Clone()}
}

// Has reports whether the property exists with at least one value.
func (p Properties) Has(name string) bool {
	return len(p[name]) > 0
}

// First returns the first value of a property.
func (p Properties) First(name string) (Value, bool) {
	vs := p[name]
	if len(vs) == 0 {
		return Value{}, false
	}
	return vs[0], true
}

// FirstText returns the text of the first value of a property, or "".
func (p Properties) FirstText(name string) string {
	v, ok := p.First(name)
	if !ok {
		return ""
	}
	return v.Text()
}

// Texts returns the text of every value of a property, skipping empty ones.
func (p Properties) Texts(name string) []string {
	out := make([]string, 0, len(p[name]))
	for _, v := range p[name] {
		if t := v.Text(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of p.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, vs := range p {
		out[k] = cloneValues(vs)
	}
	return out
}

// Equal reports deep equality.
func (p Properties) Equal(o Properties) bool {
	if len(p) != len(o) {
		return false
	}
	for k, vs := range p {
		ovs, ok := o[k]
		if !ok || !valuesEqual(vs, ovs) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes nil properties as an empty object.
func (p Properties) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string][]Value(p))
}

// UnmarshalJSON accepts both list and bare values, wrapping the latter in a
// single-element list.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Properties, len(raw))
	for k, r := range raw {
		vs, err := decodePropertyValues(r)
		if err != nil {
			return err
		}
		out[k] = vs
	}
	*p = out
	return nil
}

func decodePropertyValues(raw json.RawMessage) ([]Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var vs []Value
		if err := json.Unmarshal(raw, &vs); err != nil {
			return nil, err
		}
		if vs == nil {
			vs = []Value{}
		}
		return vs, nil
	}
	var v Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return []Value{v}, nil
}
