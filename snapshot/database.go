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

package snapshot

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/hyperschedule/hyperschedule-api/course"
	log "github.com/inconshreveable/log15"
)

// ErrUnavailable is returned by Query when no data has been ingested yet for
// the requested scraper. The dispatcher maps it to HTTP 503.
var ErrUnavailable = errors.New("data not available yet")

// Database is the process-wide catalog of course histories, keyed by scraper
// and term. All mutations happen under a single writer lock; per-history
// reads go through the atomically swapped state, so readers never observe a
// partial update.
type Database struct {
	lock      sync.Mutex
	histories map[string]map[string]*History
	terms     map[string]map[string]course.Term
	recent    map[string]course.Term

	clock func() time.Time
}

// Query names the parameters of a client read.
type Query struct {
	Scraper       string
	Since         int64
	HasSince      bool
	CurrentTerm   string
	RequestedTerm string // empty selects the scraper's most recent term
}

// Response pairs a diff result with the descriptor of the term it covers.
type Response struct {
	Result
	Term course.Term
}

// NewDatabase creates an empty catalog backed by the wall clock.
func NewDatabase() *Database {
	return NewDatabaseWithClock(time.Now)
}

// NewDatabaseWithClock creates a catalog that reads ingest timestamps from
// clock. Tests use it to drive deterministic ages.
func NewDatabaseWithClock(clock func() time.Time) *Database {
	return &Database{
		histories: make(map[string]map[string]*History),
		terms:     make(map[string]map[string]course.Term),
		recent:    make(map[string]course.Term),
		clock:     clock,
	}
}

// Ingest stores a fresh course tree for a scraper and term, creating the
// history on first use, and returns the age assigned to the snapshot. The
// scraper's most recent term is re-derived from the known sort keys.
func (db *Database) Ingest(scraper string, term course.Term, courses course.Value) int64 {
	db.lock.Lock()
	defer db.lock.Unlock()

	age := db.clock().Unix()

	byTerm := db.histories[scraper]
	if byTerm == nil {
		byTerm = make(map[string]*History)
		db.histories[scraper] = byTerm
	}
	hist := byTerm[term.Code]
	if hist == nil {
		hist = new(History)
		byTerm[term.Code] = hist
	}
	if err := hist.SetCurrent(age, courses); err != nil {
		// Ages come from the wall clock under the writer lock; a regression
		// is programmer error, not bad input.
		log.Crit("Course history corrupted", "scraper", scraper, "term", term.Code, "err", err)
		os.Exit(1)
	}
	if db.terms[scraper] == nil {
		db.terms[scraper] = make(map[string]course.Term)
	}
	db.terms[scraper][term.Code] = term

	recent := term
	for _, t := range db.terms[scraper] {
		if t.Compare(recent) > 0 {
			recent = t
		}
	}
	db.recent[scraper] = recent
	return age
}

// Snapshot returns the current snapshot for a scraper and term, bypassing
// term resolution. The refresh worker uses it to feed the previous tree back
// into the scraper.
func (db *Database) Snapshot(scraper, termCode string) (int64, course.Value, bool) {
	db.lock.Lock()
	hist := db.histories[scraper][termCode]
	db.lock.Unlock()

	if hist == nil {
		return 0, nil, false
	}
	return hist.Current()
}

// Query resolves a client read to the right history and returns its diff
// result along with the term descriptor. An unknown scraper yields
// ErrUnavailable; an unknown term yields a UserError. A client whose held
// snapshot belongs to a different term than the one requested cannot be
// diffed and is handed the full snapshot.
func (db *Database) Query(q Query) (Response, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	recent, ok := db.recent[q.Scraper]
	if !ok {
		return Response{}, ErrUnavailable
	}
	requested := q.RequestedTerm
	if requested == "" {
		requested = recent.Code
	}
	if q.CurrentTerm != requested {
		q.HasSince = false
	}
	hist := db.histories[q.Scraper][requested]
	if hist == nil {
		return Response{}, course.NewUserError("no such term: %s", requested)
	}
	res, ok := hist.DiffSince(q.Since, q.HasSince)
	if !ok {
		return Response{}, ErrUnavailable
	}
	return Response{Result: res, Term: db.terms[q.Scraper][requested]}, nil
}
