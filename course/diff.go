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

// Compute returns a diff that, when applied to old, yields new. Neither
// argument is modified. Between two objects the empty object diff means "no
// change"; if either argument is an atom the diff is new itself.
func Compute(old, new Value) Value {
	oldObj, ok := old.(Object)
	if !ok {
		return new
	}
	newObj, ok := new.(Object)
	if !ok {
		return new
	}
	diff := Object{}
	for k, nv := range newObj {
		ov, ok := oldObj[k]
		if !ok {
			diff[k] = nv
			continue
		}
		if !Equal(ov, nv) {
			diff[k] = Compute(ov, nv)
		}
	}
	for k := range oldObj {
		if _, ok := newObj[k]; !ok {
			diff[k] = Atom{V: Delete}
		}
	}
	return diff
}

// Apply applies diff to target, returning a new value. The target is never
// mutated; unchanged subtrees are shared between input and output.
func Apply(target, diff Value) Value {
	tObj, ok := target.(Object)
	if !ok {
		return diff
	}
	dObj, ok := diff.(Object)
	if !ok {
		return diff
	}
	out := make(Object, len(tObj))
	for k, v := range tObj {
		out[k] = v
	}
	for k, dv := range dObj {
		if isDelete(dv) {
			delete(out, k)
			continue
		}
		tv, ok := out[k]
		if !ok {
			out[k] = dv
			continue
		}
		out[k] = Apply(tv, dv)
	}
	return out
}

// Merge combines two diffs into a single diff equivalent to applying d1 and
// then d2. Neither argument is modified. Merge is associative.
func Merge(d1, d2 Value) Value {
	a, ok := d1.(Object)
	if !ok {
		return d2
	}
	b, ok := d2.(Object)
	if !ok {
		return d2
	}
	out := make(Object, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if prev, ok := a[k]; ok {
			out[k] = Merge(prev, v)
		} else {
			out[k] = v
		}
	}
	return out
}
