// Copyright 2020 The Hyperschedule Authors
// This file is part of the hyperschedule library.
//
// The hyperschedule library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The hyperschedule library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the hyperschedule library. If not, see <http://www.gnu.org/licenses/>.

// Package course models scraped course data as dynamic JSON trees and
// implements the diff algebra used to ship incremental updates to clients.
package course

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Delete is the reserved diff leaf marking a key for removal. Snapshots may
// never contain it anywhere; scraper output that does is rejected wholesale.
const Delete = "$delete"

// Value is one node of a course data tree: either an Object with string keyed
// children, or an Atom wrapping any other JSON value. The diff algebra only
// descends into objects; arrays are atoms and get replaced wholesale.
type Value interface {
	isValue()
}

// Object is an unordered string-keyed collection of child values.
type Object map[string]Value

// Atom wraps a non-object JSON value: nil, bool, json.Number, string, or a
// []interface{} decoded from an array. Atoms are opaque to the diff algebra.
type Atom struct {
	V interface{}
}

func (Object) isValue() {}
func (Atom) isValue()   {}

// Decode parses a raw JSON document into a Value. Numbers are retained in
// their wire form via json.Number so round-tripping does not lose precision.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return FromGo(raw), nil
}

// Encode serializes a Value back into JSON.
func Encode(v Value) ([]byte, error) {
	return json.Marshal(v)
}

// FromGo converts a value decoded by encoding/json into a Value. Maps nested
// inside arrays stay inside their Atom untouched.
func FromGo(raw interface{}) Value {
	if m, ok := raw.(map[string]interface{}); ok {
		obj := make(Object, len(m))
		for k, v := range m {
			obj[k] = FromGo(v)
		}
		return obj
	}
	return Atom{V: raw}
}

// object is Object without the custom marshaler, so encoding the map itself
// doesn't recurse forever.
type object map[string]Value

// MarshalJSON encodes the object with each child serialized by its own type.
func (o Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(object(o))
}

// MarshalJSON encodes the wrapped value verbatim.
func (a Atom) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.V)
}

// Equal reports whether two values are structurally equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case Atom:
		bv, ok := b.(Atom)
		return ok && rawEqual(av.V, bv.V)
	}
	return a == nil && b == nil
}

// rawEqual compares two decoded JSON values, descending into the arrays and
// maps that may live inside an atom.
func rawEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !rawEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !rawEqual(v, w) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ContainsDelete reports whether the sentinel string appears anywhere in the
// value, keys included.
func ContainsDelete(v Value) bool {
	switch vv := v.(type) {
	case Object:
		for k, child := range vv {
			if k == Delete || ContainsDelete(child) {
				return true
			}
		}
	case Atom:
		return rawContainsDelete(vv.V)
	}
	return false
}

func rawContainsDelete(raw interface{}) bool {
	switch rv := raw.(type) {
	case string:
		return rv == Delete
	case []interface{}:
		for _, elem := range rv {
			if rawContainsDelete(elem) {
				return true
			}
		}
	case map[string]interface{}:
		for k, elem := range rv {
			if k == Delete || rawContainsDelete(elem) {
				return true
			}
		}
	}
	return false
}

// isDelete reports whether a diff leaf is the deletion sentinel.
func isDelete(v Value) bool {
	atom, ok := v.(Atom)
	if !ok {
		return false
	}
	s, ok := atom.V.(string)
	return ok && s == Delete
}
