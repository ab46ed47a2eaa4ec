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
	"math/rand"
	"testing"
)

var treeKeys = []string{"a", "b", "c", "d", "e"}

var treeAtoms = []interface{}{
	nil,
	true,
	false,
	json.Number("1"),
	json.Number("2"),
	"x",
	"y",
	[]interface{}{json.Number("1"), "z"},
}

// randomTree generates a tree of at most the given depth. Snapshots never
// contain the deletion sentinel, so the atom pool excludes it.
func randomTree(rng *rand.Rand, depth int) Value {
	if depth == 0 || rng.Intn(3) == 0 {
		return Atom{V: treeAtoms[rng.Intn(len(treeAtoms))]}
	}
	obj := Object{}
	for _, key := range treeKeys {
		switch rng.Intn(3) {
		case 0:
			obj[key] = randomTree(rng, depth-1)
		case 1:
			obj[key] = Atom{V: treeAtoms[rng.Intn(len(treeAtoms))]}
		}
	}
	return obj
}

// Real scraper payloads keep a stable kind per key: a field is either always
// a nested object or always a leaf. A key flipping between the two kinds
// across versions is not expressible in the diff wire format, so the
// compose and associativity generators respect the kind split below.
var (
	objectKeys = []string{"a", "b"}
	atomKeys   = []string{"c", "d", "e"}
)

// kindTree generates a tree whose keys honor the global kind split.
func kindTree(rng *rand.Rand, depth int) Value {
	obj := Object{}
	for _, key := range objectKeys {
		if depth > 0 && rng.Intn(3) > 0 {
			obj[key] = kindTree(rng, depth-1)
		}
	}
	for _, key := range atomKeys {
		if rng.Intn(3) > 0 {
			obj[key] = Atom{V: treeAtoms[rng.Intn(len(treeAtoms))]}
		}
	}
	return obj
}

// kindDiff generates a diff honoring the kind split, with sentinel leaves
// sprinkled over the atom-kind keys.
func kindDiff(rng *rand.Rand, depth int) Value {
	obj := Object{}
	for _, key := range objectKeys {
		if depth > 0 && rng.Intn(2) == 0 {
			obj[key] = kindDiff(rng, depth-1)
		}
	}
	for _, key := range atomKeys {
		if rng.Intn(2) == 0 {
			if rng.Intn(5) == 0 {
				obj[key] = Atom{V: Delete}
			} else {
				obj[key] = Atom{V: treeAtoms[rng.Intn(len(treeAtoms))]}
			}
		}
	}
	return obj
}

func mustJSON(t *testing.T, v Value) string {
	t.Helper()
	data, err := Encode(v)
	if err != nil {
		t.Fatalf("failed to encode value: %v", err)
	}
	return string(data)
}

// clone round-trips a value through JSON so mutation checks have a pristine
// copy to compare against.
func clone(t *testing.T, v Value) Value {
	t.Helper()
	data, err := Encode(v)
	if err != nil {
		t.Fatalf("failed to encode value: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("failed to decode value: %v", err)
	}
	return out
}

// Tests that applying compute(a, b) to a yields b, on random trees.
func TestComputeApplyRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		a := randomTree(rng, 4)
		b := randomTree(rng, 4)

		diff := Compute(a, b)
		if got := Apply(a, diff); !Equal(got, b) {
			t.Fatalf("apply(a, compute(a, b)) != b\n a: %s\n b: %s\n diff: %s\n got: %s",
				mustJSON(t, a), mustJSON(t, b), mustJSON(t, diff), mustJSON(t, got))
		}
	}
}

// Tests that merging two consecutive diffs is equivalent to applying them in
// sequence: apply(a, merge(compute(a, b), compute(b, c))) == c.
func TestMergeComposes(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	for i := 0; i < 500; i++ {
		a := kindTree(rng, 4)
		b := kindTree(rng, 4)
		c := kindTree(rng, 4)

		merged := Merge(Compute(a, b), Compute(b, c))
		if got := Apply(a, merged); !Equal(got, c) {
			t.Fatalf("apply(a, merge(ab, bc)) != c\n a: %s\n b: %s\n c: %s\n got: %s",
				mustJSON(t, a), mustJSON(t, b), mustJSON(t, c), mustJSON(t, got))
		}
	}
}

// Tests that the empty object diff is the identity of apply.
func TestApplyEmptyDiff(t *testing.T) {
	rng := rand.New(rand.NewSource(44))
	for i := 0; i < 100; i++ {
		a := randomTree(rng, 4)
		if got := Apply(a, Object{}); !Equal(got, a) {
			t.Fatalf("apply(a, {}) != a\n a: %s\n got: %s", mustJSON(t, a), mustJSON(t, got))
		}
	}
}

// Tests that merge is associative over kind-stable diffs, sentinels included.
func TestMergeAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(45))
	for i := 0; i < 500; i++ {
		x := kindDiff(rng, 3)
		y := kindDiff(rng, 3)
		z := kindDiff(rng, 3)

		left := Merge(Merge(x, y), z)
		right := Merge(x, Merge(y, z))
		if !Equal(left, right) {
			t.Fatalf("merge not associative\n x: %s\n y: %s\n z: %s\n left: %s\n right: %s",
				mustJSON(t, x), mustJSON(t, y), mustJSON(t, z), mustJSON(t, left), mustJSON(t, right))
		}
	}
}

// Tests that none of the algebra functions mutate their arguments.
func TestAlgebraDoesNotMutate(t *testing.T) {
	rng := rand.New(rand.NewSource(46))
	for i := 0; i < 100; i++ {
		a := randomTree(rng, 4)
		b := randomTree(rng, 4)
		aCopy := clone(t, a)
		bCopy := clone(t, b)

		diff := Compute(a, b)
		diffCopy := clone(t, diff)
		Apply(a, diff)
		Merge(diff, Compute(b, a))

		if !Equal(a, aCopy) {
			t.Fatalf("argument a mutated: have %s, want %s", mustJSON(t, a), mustJSON(t, aCopy))
		}
		if !Equal(b, bCopy) {
			t.Fatalf("argument b mutated: have %s, want %s", mustJSON(t, b), mustJSON(t, bCopy))
		}
		if !Equal(diff, diffCopy) {
			t.Fatalf("diff mutated: have %s, want %s", mustJSON(t, diff), mustJSON(t, diffCopy))
		}
	}
}

// Tests a few literal diffs so the wire format stays nailed down.
func TestComputeLiterals(t *testing.T) {
	tests := []struct {
		old, new, want string
	}{
		{`{"A":1}`, `{"A":1,"B":2}`, `{"B":2}`},
		{`{"A":1,"B":2}`, `{"A":1}`, `{"B":"$delete"}`},
		{`{"A":1}`, `{"A":2}`, `{"A":2}`},
		{`{"A":{"x":1,"y":2}}`, `{"A":{"x":1,"y":3}}`, `{"A":{"y":3}}`},
		{`{"A":[1,2]}`, `{"A":[1,3]}`, `{"A":[1,3]}`},
		{`{"A":1}`, `{"A":1}`, `{}`},
		{`{"A":{"x":1}}`, `{"A":2}`, `{"A":2}`},
		{`1`, `{"A":1}`, `{"A":1}`},
	}
	for _, tt := range tests {
		before, err := Decode([]byte(tt.old))
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.old, err)
		}
		after, err := Decode([]byte(tt.new))
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.new, err)
		}
		want, err := Decode([]byte(tt.want))
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.want, err)
		}
		if got := Compute(before, after); !Equal(got, want) {
			t.Errorf("compute(%s, %s): have %s, want %s", tt.old, tt.new, mustJSON(t, got), tt.want)
		}
	}
}

// Tests that applying a sentinel deletes the key and tolerates absent keys.
func TestApplyDelete(t *testing.T) {
	target, _ := Decode([]byte(`{"A":1,"B":2}`))
	diff, _ := Decode([]byte(`{"B":"$delete","C":"$delete"}`))
	want, _ := Decode([]byte(`{"A":1}`))

	if got := Apply(target, diff); !Equal(got, want) {
		t.Fatalf("apply delete: have %s, want %s", mustJSON(t, got), mustJSON(t, want))
	}
}
