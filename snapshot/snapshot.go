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

// Package snapshot maintains versioned course trees together with the diff
// history needed to answer "what changed since timestamp T" in bounded memory.
package snapshot

import (
	"errors"
	"sync/atomic"

	"github.com/hyperschedule/hyperschedule-api/course"
)

// ErrAgeRegression is returned by SetCurrent if the new snapshot is older
// than the installed one. Ages must be monotonically non-decreasing.
var ErrAgeRegression = errors.New("snapshot age regressed")

// entry records that applying diff to the tree that was current at age yields
// the present tree. Entries are kept in ascending age order.
type entry struct {
	age  int64
	diff course.Value
}

// state is the immutable (age, tree, history) triple. A fresh triple is
// swapped in on every update, so a reader holding one sees a consistent view.
type state struct {
	age     int64
	tree    course.Value
	history []entry
}

// History tracks the evolution of the course tree for one (scraper, term)
// pair. A single writer installs snapshots through SetCurrent; any number of
// readers fetch views concurrently without locks, since the whole state is
// published through an atomic pointer swap.
//
// Pruning keeps at least one history entry in the last time step, one in the
// last two, one in the last four and so on, which bounds the history to
// logarithmically many entries regardless of uptime.
type History struct {
	state atomic.Pointer[state]
}

// Result is the outcome of a DiffSince call. When Full is set, Payload is the
// entire snapshot rather than a diff and the client must discard what it had.
type Result struct {
	Payload course.Value
	Full    bool
	Age     int64
}

// SetCurrent installs a new snapshot. Writer-only: the caller must hold the
// catalog's writer lock. The new age must not precede the current one.
func (h *History) SetCurrent(age int64, tree course.Value) error {
	cur := h.state.Load()
	var hist []entry
	if cur != nil {
		if age < cur.age {
			return ErrAgeRegression
		}
		hist = append([]entry(nil), cur.history...)

		// Prune newest to oldest: every kept entry doubles the gap required
		// of the next older one.
		keep := int64(1)
		for i := len(hist) - 1; i >= 0; i-- {
			if age-hist[i].age < keep {
				hist = append(hist[:i], hist[i+1:]...)
			} else {
				keep *= 2
			}
		}
		// Record the previous snapshot as a new history entry, then fold the
		// fresh diff into every retained entry so each still diffs to present.
		diff := course.Compute(cur.tree, tree)
		hist = append(hist, entry{age: cur.age, diff: course.Object{}})
		for i := range hist {
			hist[i].diff = course.Merge(hist[i].diff, diff)
		}
	}
	h.state.Store(&state{age: age, tree: tree, history: hist})
	return nil
}

// Current returns the age and tree of the installed snapshot, or false if no
// snapshot has been installed yet.
func (h *History) Current() (int64, course.Value, bool) {
	cur := h.state.Load()
	if cur == nil {
		return 0, nil, false
	}
	return cur.age, cur.tree, true
}

// DiffSince returns the changes between the snapshot a client held at the
// given age and the present. With hasSince unset the full snapshot is
// returned. A since at or past the current age yields an empty diff; a since
// older than the retained history promotes the response to a full snapshot.
func (h *History) DiffSince(since int64, hasSince bool) (Result, bool) {
	cur := h.state.Load()
	if cur == nil {
		return Result{}, false
	}
	if hasSince {
		if since >= cur.age {
			return Result{Payload: course.Object{}, Age: cur.age}, true
		}
		for i := len(cur.history) - 1; i >= 0; i-- {
			if since >= cur.history[i].age {
				return Result{Payload: cur.history[i].diff, Age: cur.age}, true
			}
		}
	}
	return Result{Payload: cur.tree, Full: true, Age: cur.age}, true
}
