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

package api

import (
	"encoding/json"

	"github.com/hyperschedule/hyperschedule-api/course"
)

// validatePost checks the shape of a scraper upload and extracts its fields.
// Required shape: {"scraper": string, "term": term descriptor, "courses":
// map}, where the term descriptor carries termCode and termName strings and
// a termSortKey array of booleans, integers and strings. The courses tree
// must not contain the deletion sentinel.
func validatePost(body []byte) (string, course.Term, course.Value, error) {
	var term course.Term

	val, err := course.Decode(body)
	if err != nil {
		return "", term, nil, course.NewUserError("request body is not valid JSON")
	}
	data, ok := val.(course.Object)
	if !ok {
		return "", term, nil, course.NewUserError("data is not a map")
	}
	scraper, ok := stringField(data, "scraper")
	if !ok {
		return "", term, nil, course.NewUserError("scraper ID is not a string")
	}
	termVal, ok := data["term"].(course.Object)
	if !ok {
		return "", term, nil, course.NewUserError("term info is not a map")
	}
	if term.Code, ok = stringField(termVal, "termCode"); !ok {
		return "", term, nil, course.NewUserError("termCode is not a string")
	}
	if term.Name, ok = stringField(termVal, "termName"); !ok {
		return "", term, nil, course.NewUserError("termName is not a string")
	}
	sortAtom, ok := termVal["termSortKey"].(course.Atom)
	if !ok {
		return "", term, nil, course.NewUserError("termSortKey is not an array")
	}
	sortKey, ok := sortAtom.V.([]interface{})
	if !ok {
		return "", term, nil, course.NewUserError("termSortKey is not an array")
	}
	for _, item := range sortKey {
		if !primitiveSortItem(item) {
			return "", term, nil, course.NewUserError("termSortKey contains non-primitive: %v", item)
		}
	}
	term.SortKey = sortKey

	courses, ok := data["courses"].(course.Object)
	if !ok {
		return "", term, nil, course.NewUserError("courses is not a map")
	}
	if course.ContainsDelete(courses) {
		return "", term, nil, course.NewUserError("courses contain the reserved string %q", course.Delete)
	}
	return scraper, term, courses, nil
}

func stringField(obj course.Object, key string) (string, bool) {
	atom, ok := obj[key].(course.Atom)
	if !ok {
		return "", false
	}
	s, ok := atom.V.(string)
	return s, ok
}

// primitiveSortItem accepts booleans, integers and strings; anything else,
// fractional numbers included, is rejected.
func primitiveSortItem(item interface{}) bool {
	switch v := item.(type) {
	case bool, string:
		return true
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
