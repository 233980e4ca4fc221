// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package mf2

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Directive is one partial-update operation (replace, add or delete) as it
// arrived on the wire. Shape validation is left to the caller.
type Directive struct {
	Present bool       // the field was sent
	IsList  bool       // sent as an array of property names
	Invalid bool       // sent as neither an object nor an array of names
	Props   Properties // object shape: property -> values
	Keys    []string   // list shape: property names
}

// Request is a decoded Micropub request.
type Request struct {
	Action  string
	URL     string
	Entry   *Entry
	Replace Directive
	Add     Directive
	Delete  Directive

	// AccessToken is the legacy body credential. It is never a property.
	AccessToken string
}

// IsEmpty reports whether nothing usable was decoded.
func (r *Request) IsEmpty() bool {
	if r == nil {
		return true
	}
	return r.Action == "" && r.URL == "" && len(r.Entry.Type) == 0 && len(r.Entry.Properties) == 0 &&
		!r.Replace.Present && !r.Add.Present && !r.Delete.Present
}

// Properties is shorthand for r.Entry.Properties.
func (r *Request) Properties() Properties {
	return r.Entry.Properties
}

// EffectiveAction returns the lowercased action, defaulting to create.
func (r *Request) EffectiveAction() string {
	if r.Action == "" {
		return "create"
	}
	return strings.ToLower(r.Action)
}

// MarshalJSON encodes the request in Micropub JSON syntax.
func (r *Request) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	if len(r.Entry.Type) > 0 {
		out["type"] = r.Entry.Type
	}
	if len(r.Entry.Properties) > 0 {
		out["properties"] = r.Entry.Properties
	}
	if r.Action != "" {
		out["action"] = r.Action
	}
	if r.URL != "" {
		out["url"] = r.URL
	}
	for name, d := range map[string]Directive{"replace": r.Replace, "add": r.Add, "delete": r.Delete} {
		switch {
		case !d.Present || d.Invalid:
		case d.IsList:
			out[name] = d.Keys
		default:
			out[name] = d.Props
		}
	}
	return json.Marshal(out)
}

// FromJSON decodes a Micropub JSON body.
func FromJSON(data []byte) (*Request, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("mf2: invalid JSON body: %w", err)
	}

	req := &Request{Entry: NewEntry()}
	for key, value := range raw {
		var err error
		switch key {
		case "type":
			err = json.Unmarshal(value, &req.Entry.Type)
		case "properties":
			err = json.Unmarshal(value, &req.Entry.Properties)
		case "action":
			err = json.Unmarshal(value, &req.Action)
		case "url":
			err = json.Unmarshal(value, &req.URL)
		case "replace":
			req.Replace, err = decodeDirective(value)
		case "add":
			req.Add, err = decodeDirective(value)
		case "delete":
			req.Delete, err = decodeDirective(value)
		case "access_token":
			err = json.Unmarshal(value, &req.AccessToken)
		}
		if err != nil {
			return nil, fmt.Errorf("mf2: invalid %q: %w", key, err)
		}
	}
	if req.Entry.Properties == nil {
		req.Entry.Properties = Properties{}
	}
	return req, nil
}

func decodeDirective(raw json.RawMessage) (Directive, error) {
	raw = bytes.TrimSpace(raw)
	d := Directive{Present: true}
	if len(raw) == 0 {
		d.Invalid = true
		return d, nil
	}

	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, &d.Props); err != nil {
			return d, err
		}
	case '[':
		d.IsList = true
		if err := json.Unmarshal(raw, &d.Keys); err != nil {
			d.Invalid = true
		}
	default:
		d.Invalid = true
	}
	return d, nil
}
