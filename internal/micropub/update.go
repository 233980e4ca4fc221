// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package micropub

import (
	"github.com/tomtom215/scribe/internal/mf2"
)

// additiveProps may appear in add and in value-level delete.
var additiveProps = map[string]bool{
	"category":    true,
	"syndication": true,
}

// ValidateUpdate checks the shape of the update directives.
func ValidateUpdate(req *mf2.Request) *Error {
	if req.Replace.Present && (req.Replace.IsList || req.Replace.Invalid) {
		return InvalidRequest("invalid update: replace must be an object")
	}
	if req.Add.Present {
		if req.Add.IsList || req.Add.Invalid {
			return InvalidRequest("invalid update: add must be an object")
		}
		for _, k := range req.Add.Props.Keys() {
			if !additiveProps[k] {
				return InvalidRequest("invalid update: cannot add to %s", k)
			}
		}
	}
	if req.Delete.Present {
		if req.Delete.Invalid {
			return InvalidRequest("invalid update: delete must be an object or a list of properties")
		}
		if !req.Delete.IsList {
			for _, k := range req.Delete.Props.Keys() {
				if !additiveProps[k] {
					return InvalidRequest("invalid update: cannot delete values from %s", k)
				}
			}
		}
	}
	return nil
}

// ApplyUpdate applies delete, then add, then replace to props in place.
// Deleting a value or property that does not exist is a no-op.
func ApplyUpdate(props mf2.Properties, req *mf2.Request) {
	if req.Delete.Present {
		if req.Delete.IsList {
			for _, k := range req.Delete.Keys {
				delete(props, k)
			}
		} else {
			for k, drop := range req.Delete.Props {
				kept := removeValues(props[k], drop)
				if len(kept) == 0 {
					delete(props, k)
				} else {
					props[k] = kept
				}
			}
		}
	}

	if req.Add.Present {
		for k, vals := range req.Add.Props {
			props[k] = append(props[k], vals...)
		}
	}

	if req.Replace.Present {
		for k, vals := range req.Replace.Props {
			if len(vals) == 0 {
				delete(props, k)
				continue
			}
			props[k] = vals
		}
	}
}

func removeValues(vals, drop []mf2.Value) []mf2.Value {
	var out []mf2.Value
	for _, v := range vals {
		matched := false
		for _, d := range drop {
			if v.Equal(d) {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, v)
		}
	}
	return out
}
