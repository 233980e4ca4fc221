// Scribe - Micropub Server for IndieWeb Publishing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/scribe

package mf2

import (
	"net/url"
	"strconv"
	"strings"
)

// FromForm converts form-encoded (or query) fields into a Request.
//
//   - h becomes type ["h-" + h]
//   - action and url are hoisted out of the properties
//   - access_token is dropped from the properties and kept on the Request
//   - every other field becomes a property
//
// Bracketed keys are honored: category[]=a, category[0]=a and
// location[latitude]=1 all work. A bracketed field counts as a list only when
// its keys are a contiguous 0-based integer sequence; otherwise it is an
// object. For action=update, replace, add and delete are read as directives.
func FromForm(values url.Values) *Request {
	root := map[string]*formNode{}
	for key, vals := range values {
		base, segs := splitFormKey(key)
		node, ok := root[base]
		if !ok {
			node = &formNode{}
			root[base] = node
		}
		node.insert(segs, vals)
	}

	req := &Request{Entry: NewEntry()}
	if n, ok := root["action"]; ok {
		req.Action = n.first()
	}
	isUpdate := strings.EqualFold(req.Action, "update")

	for key, node := range root {
		switch key {
		case "h":
			if h := node.first(); h != "" {
				req.Entry.Type = []string{"h-" + h}
			}
		case "action":
		case "access_token":
			req.AccessToken = node.first()
		case "url":
			req.URL = node.first()
		case "replace", "add", "delete":
			if isUpdate {
				d := node.directive(key == "delete")
				switch key {
				case "replace":
					req.Replace = d
				case "add":
					req.Add = d
				default:
					req.Delete = d
				}
				continue
			}
			req.Entry.Properties[key] = node.propertyValues()
		default:
			req.Entry.Properties[key] = node.propertyValues()
		}
	}
	return req
}

// splitFormKey splits "a[b][]" into "a" and ["b", ""].
func splitFormKey(key string) (string, []string) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, nil
	}

	base := key[:open]
	rest := key[open:]
	var segs []string
	for len(rest) > 0 {
		if rest[0] != '[' {
			return key, nil
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return key, nil
		}
		segs = append(segs, rest[1:end])
		rest = rest[end+1:]
	}
	return base, segs
}

// formNode is one level of a bracketed form field.
type formNode struct {
	values   []string
	list     bool
	children map[string]*formNode
}

func (n *formNode) insert(segs []string, vals []string) {
	if len(segs) == 0 {
		n.values = append(n.values, vals...)
		if len(n.values) > 1 {
			n.list = true
		}
		return
	}

	seg := segs[0]
	if seg == "" {
		if len(segs) == 1 {
			n.values = append(n.values, vals...)
			n.list = true
			return
		}
		seg = strconv.Itoa(len(n.children))
	}

	if n.children == nil {
		n.children = map[string]*formNode{}
	}
	child, ok := n.children[seg]
	if !ok {
		child = &formNode{}
		n.children[seg] = child
	}
	child.insert(segs[1:], vals)
}

func (n *formNode) first() string {
	if len(n.values) > 0 {
		return n.values[0]
	}
	return ""
}

// sequentialKeys returns the child keys in index order when they are exactly
// "0".."n-1".
func (n *formNode) sequentialKeys() ([]string, bool) {
	keys := make([]string, len(n.children))
	for k := range n.children {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(n.children) || strconv.Itoa(i) != k {
			return nil, false
		}
		if keys[i] != "" {
			return nil, false
		}
		keys[i] = k
	}
	return keys, true
}

// propertyValues renders the node as a property value list.
func (n *formNode) propertyValues() []Value {
	if len(n.children) > 0 {
		if keys, ok := n.sequentialKeys(); ok {
			out := make([]Value, 0, len(keys))
			for _, k := range keys {
				out = append(out, n.children[k].value())
			}
			return out
		}
		return []Value{n.object()}
	}
	return Scalars(n.values...)
}

// value renders the node as a single value.
func (n *formNode) value() Value {
	if len(n.children) > 0 {
		if _, ok := n.sequentialKeys(); ok {
			return List(n.propertyValues()...)
		}
		return n.object()
	}
	if n.list {
		return List(Scalars(n.values...)...)
	}
	return Scalar(n.first())
}

func (n *formNode) object() Value {
	fields := make(map[string]Value, len(n.children))
	for k, c := range n.children {
		fields[k] = c.value()
	}
	return Object(fields)
}

// directive interprets the node as an update directive. allowList permits
// the array-of-names shape used by delete.
func (n *formNode) directive(allowList bool) Directive {
	d := Directive{Present: true}

	if len(n.children) > 0 {
		if keys, ok := n.sequentialKeys(); ok {
			if !allowList {
				d.Invalid = true
				return d
			}
			d.IsList = true
			for _, k := range keys {
				d.Keys = append(d.Keys, n.children[k].first())
			}
			return d
		}
		d.Props = make(Properties, len(n.children))
		for k, c := range n.children {
			d.Props[k] = c.propertyValues()
		}
		return d
	}

	if allowList && len(n.values) > 0 {
		d.IsList = true
		d.Keys = append(d.Keys, n.values...)
		return d
	}
	d.Invalid = true
	return d
}
