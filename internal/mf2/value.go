// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

// Package mf2 models Microformats2 data as carried by Micropub requests.
//
// A property value is one of four shapes, represented by the Value sum type:
//
//   - KindScalar: a plain string ("hello", "2016-01-01T04:01:23-08:00")
//   - KindList: a nested JSON array inside a property value
//   - KindEntry: an embedded microformat such as an h-geo or h-card
//   - KindObject: any other JSON object, e.g. {"html": "<p>hi</p>"}
//
// Consumers switch on Value.Kind() instead of inspecting dynamic types.
package mf2

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Kind identifies the shape held by a Value.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindEntry
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindEntry:
		return "entry"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single mf2 property value.
type Value struct {
	kind  Kind
	str   string
	list  []Value
	entry *Entry
	obj   map[string]Value
}

// Scalar returns a string value.
func Scalar(s string) Value { return Value{kind: KindScalar, str: s} }

// List returns a list value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Nested returns a value embedding a microformat.
func Nested(e *Entry) Value { return Value{kind: KindEntry, entry: e} }

// Object returns a plain object value.
func Object(fields map[string]Value) Value { return Value{kind: KindObject, obj: fields} }

// Scalars wraps each string as a scalar value.
func Scalars(ss ...string) []Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = Scalar(s)
	}
	return out
}

// Kind reports the shape of v.
func (v Value) Kind() Kind { return v.kind }

// Str returns the scalar string, or "" for other kinds.
func (v Value) Str() string {
	if v.kind == KindScalar {
		return v.str
	}
	return ""
}

// Items returns the elements of a list value.
func (v Value) Items() []Value {
	if v.kind == KindList {
		return v.list
	}
	return nil
}

// Entry returns the embedded microformat, or nil.
func (v Value) Entry() *Entry {
	if v.kind == KindEntry {
		return v.entry
	}
	return nil
}

// Fields returns the fields of an object value, or nil.
func (v Value) Fields() map[string]Value {
	if v.kind == KindObject {
		return v.obj
	}
	return nil
}

// Field returns one field of an object value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[name]
	return f, ok
}

// Text returns the plain-text reading of v: the scalar itself, the "value"
// field of an object, or the first "name" of an embedded microformat.
func (v Value) Text() string {
	switch v.kind {
	case KindScalar:
		return v.str
	case KindObject:
		if f, ok := v.obj["value"]; ok {
			return f.Text()
		}
	case KindEntry:
		if v.entry != nil {
			return v.entry.Properties.FirstText("name")
		}
	case KindList:
		if len(v.list) > 0 {
			return v.list[0].Text()
		}
	}
	return ""
}

// IsEmpty reports whether v carries no data.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindScalar:
		return strings.TrimSpace(v.str) == ""
	case KindList:
		return len(v.list) == 0
	case KindEntry:
		return v.entry == nil
	case KindObject:
		return len(v.obj) == 0
	}
	return true
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		return v.str == o.str
	case KindList:
		return valuesEqual(v.list, o.list)
	case KindEntry:
		if v.entry == nil || o.entry == nil {
			return v.entry == o.entry
		}
		return v.entry.Equal(o.entry)
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, fv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		return List(cloneValues(v.list)...)
	case KindEntry:
		if v.entry == nil {
			return v
		}
		return Nested(v.entry.Clone())
	case KindObject:
		fields := make(map[string]Value, len(v.obj))
		for k, f := range v.obj {
			fields[k] = f.Clone()
		}
		return Object(fields)
	default:
		return v
	}
}

func cloneValues(vs []Value) []Value {
	if vs == nil {
		return nil
	}
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

// MarshalJSON encodes v in its natural JSON shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindEntry:
		return json.Marshal(v.entry)
	case KindObject:
		return json.Marshal(v.obj)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON decodes any JSON value. Objects with an h-* "type" become
// embedded entries; numbers and booleans become scalars holding their literal text.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("mf2: empty value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Scalar(s)
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = List(items...)
	case '{':
		var probe struct {
			Type json.RawMessage `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		if isMicroformatType(probe.Type) {
			var e Entry
			if err := json.Unmarshal(data, &e); err != nil {
				return err
			}
			*v = Nested(&e)
			return nil
		}
		var fields map[string]Value
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		*v = Object(fields)
	case 'n':
		*v = Scalar("")
	default:
		*v = Scalar(string(data))
	}
	return nil
}

func isMicroformatType(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var types []string
	if err := json.Unmarshal(raw, &types); err != nil {
		return false
	}
	return len(types) > 0 && strings.HasPrefix(types[0], "h-")
}
