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
	"math/rand"
	"testing"
)

// Tests that trees survive a JSON round trip unchanged.
func TestCodecRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	for i := 0; i < 200; i++ {
		tree := randomTree(rng, 4)

		data, err := Encode(tree)
		if err != nil {
			t.Fatalf("failed to encode tree: %v", err)
		}
		back, err := Decode(data)
		if err != nil {
			t.Fatalf("failed to decode tree: %v", err)
		}
		if !Equal(tree, back) {
			t.Fatalf("round trip changed tree: have %s, want %s", mustJSON(t, back), mustJSON(t, tree))
		}
	}
}

// Tests that oversized numbers keep their wire form through the codec.
func TestCodecNumberPrecision(t *testing.T) {
	raw := `{"id":9007199254740993}`
	tree, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	data, err := Encode(tree)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if string(data) != raw {
		t.Fatalf("precision lost: have %s, want %s", data, raw)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"a":1} trailing`, "\xff"} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("decode(%q): expected error", raw)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`{"a":1}`, `{"a":2}`, false},
		{`{"a":1}`, `{"a":1,"b":2}`, false},
		{`{"a":[1,{"x":2}]}`, `{"a":[1,{"x":2}]}`, true},
		{`{"a":[1,2]}`, `{"a":[2,1]}`, false},
		{`null`, `null`, true},
		{`1`, `"1"`, false},
		{`{}`, `{}`, true},
	}
	for _, tt := range tests {
		a, _ := Decode([]byte(tt.a))
		b, _ := Decode([]byte(tt.b))
		if got := Equal(a, b); got != tt.want {
			t.Errorf("equal(%s, %s): have %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestContainsDelete(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"a":1}`, false},
		{`{"a":"$delete"}`, true},
		{`{"a":{"b":"$delete"}}`, true},
		{`{"a":["x","$delete"]}`, true},
		{`{"a":[{"deep":"$delete"}]}`, true},
		{`{"$delete":1}`, true},
		{`"$delete"`, true},
		{`{"a":"$deleted"}`, false},
	}
	for _, tt := range tests {
		v, err := Decode([]byte(tt.raw))
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tt.raw, err)
		}
		if got := ContainsDelete(v); got != tt.want {
			t.Errorf("containsDelete(%s): have %v, want %v", tt.raw, got, tt.want)
		}
	}
}
