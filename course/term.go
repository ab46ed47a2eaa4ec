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

package course

import (
	"encoding/json"
	"strings"
)

// Term identifies an academic term and carries the key used to order terms
// chronologically. Sort keys are arrays of primitives compared element-wise.
type Term struct {
	Code    string        `json:"termCode"`
	Name    string        `json:"termName"`
	SortKey []interface{} `json:"termSortKey"`
}

// Compare orders two terms by sort key: negative if t precedes other,
// positive if it follows, zero if the keys are equal.
func (t Term) Compare(other Term) int {
	return compareSortKeys(t.SortKey, other.SortKey)
}

// compareSortKeys compares two sort keys lexicographically. A key that is a
// strict prefix of another orders before it.
func compareSortKeys(a, b []interface{}) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := comparePrimitive(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Type ranks for mixed-type sort key slots. Slots of differing types have no
// native order, so they fall back to this fixed ranking to stay total.
const (
	rankBool = iota
	rankNumber
	rankString
	rankOther
)

func primitiveRank(v interface{}) int {
	switch v.(type) {
	case bool:
		return rankBool
	case json.Number, float64, int, int64:
		return rankNumber
	case string:
		return rankString
	}
	return rankOther
}

// comparePrimitive orders two sort key slots. Same-type slots compare
// natively; false precedes true for booleans.
func comparePrimitive(a, b interface{}) int {
	ra, rb := primitiveRank(a), primitiveRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case rankBool:
		av, bv := a.(bool), b.(bool)
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
		return 0
	case rankNumber:
		av, bv := numValue(a), numValue(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case rankString:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

func numValue(v interface{}) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
