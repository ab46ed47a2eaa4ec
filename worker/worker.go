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

// Package worker runs the periodic scrape that feeds the course database.
//
// Each cycle spawns the scraper as a child process, writes the previous
// snapshot (or null) to its stdin as JSON and reads the new tree from its
// stdout. A cycle that fails in any way is logged and skipped; readers keep
// seeing the previous snapshot until a later cycle succeeds.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
	"unicode/utf8"

	log "github.com/inconshreveable/log15"

	"github.com/hyperschedule/hyperschedule-api/course"
	"github.com/hyperschedule/hyperschedule-api/notify"
	"github.com/hyperschedule/hyperschedule-api/persist"
	"github.com/hyperschedule/hyperschedule-api/snapshot"
)

const (
	// DefaultInterval is the pause between two scrape attempts.
	DefaultInterval = 24 * time.Hour

	// DefaultTimeout is how long a scraper subprocess may run before it is
	// killed and its partial output discarded.
	DefaultTimeout = 60 * time.Second
)

// Config parameterizes a refresh worker.
type Config struct {
	Scraper  string      // scraper id used for ingests
	Term     course.Term // term descriptor bound to this scraper's output
	Command  []string    // scraper argv
	Interval time.Duration
	Timeout  time.Duration

	Webhook *notify.Webhook // pinged after each successful ingest, may be nil
	Seed    []persist.Store // consulted in order at startup until one yields a tree
	Sinks   []persist.Store // written through on every successful scrape
}

// Worker periodically runs a scraper subprocess and feeds its output into
// the database.
type Worker struct {
	cfg Config
	db  *snapshot.Database

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a worker. Zero interval and timeout take the defaults.
func New(db *snapshot.Database, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Worker{cfg: cfg, db: db, done: make(chan struct{})}
}

// Start seeds the database from the durable cache and launches the scrape
// loop in the background.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.seed()
	go w.loop(ctx)
}

// Stop cancels the loop and any in-flight subprocess, then waits for the
// loop goroutine to exit.
func (w *Worker) Stop() {
	w.cancel()
	<-w.done
}

// seed installs the most recently persisted tree so readers get data before
// the first scrape completes.
func (w *Worker) seed() {
	for _, store := range w.cfg.Seed {
		tree, err := store.Read()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Debug("No cached courses to seed from", "scraper", w.cfg.Scraper)
			} else {
				log.Warn("Failed to read cached courses", "scraper", w.cfg.Scraper, "err", err)
			}
			continue
		}
		if course.ContainsDelete(tree) {
			log.Warn("Cached courses contain the deletion sentinel, ignoring", "scraper", w.cfg.Scraper)
			continue
		}
		w.db.Ingest(w.cfg.Scraper, w.cfg.Term, tree)
		log.Info("Seeded courses from durable cache", "scraper", w.cfg.Scraper, "term", w.cfg.Term.Code)
		return
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		w.runOnce(ctx)
		select {
		case <-time.After(w.cfg.Interval):
		case <-ctx.Done():
			return
		}
	}
}

// runOnce performs a single scrape cycle. Failures leave the previous
// snapshot in place and skip the webhook and cache write-through.
func (w *Worker) runOnce(ctx context.Context) {
	tree, err := w.scrape(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("Scrape failed", "scraper", w.cfg.Scraper, "err", err)
		}
		return
	}
	log.Info("Scraper succeeded", "scraper", w.cfg.Scraper, "term", w.cfg.Term.Code)
	w.db.Ingest(w.cfg.Scraper, w.cfg.Term, tree)

	for _, store := range w.cfg.Sinks {
		if err := store.Write(tree); err != nil {
			log.Warn("Failed to write course cache", "scraper", w.cfg.Scraper, "err", err)
		}
	}
	w.cfg.Webhook.Ping()
}

// scrape runs one scraper subprocess: the previous snapshot goes in on
// stdin, the new tree comes out on stdout.
func (w *Worker) scrape(ctx context.Context) (course.Value, error) {
	input := []byte("null")
	if _, prev, ok := w.db.Snapshot(w.cfg.Scraper, w.cfg.Term.Code); ok {
		data, err := course.Encode(prev)
		if err != nil {
			return nil, err
		}
		input = data
	}
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	log.Info("Running scraper", "scraper", w.cfg.Scraper, "timeout", w.cfg.Timeout)
	cmd := exec.CommandContext(ctx, w.cfg.Command[0], w.cfg.Command[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stderr = os.Stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	// A killed scraper can leave grandchildren holding stdout open; don't
	// wait on them for longer than this after the kill.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("scraper timed out after %v", w.cfg.Timeout)
		}
		return nil, fmt.Errorf("scraper failed: %v", err)
	}
	out := stdout.Bytes()
	if !utf8.Valid(out) {
		return nil, errors.New("scraper emitted malformed output")
	}
	if bytes.Contains(out, []byte(course.Delete)) {
		return nil, fmt.Errorf("scraper output contains %q", course.Delete)
	}
	tree, err := course.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("scraper did not return valid JSON: %v", err)
	}
	if _, ok := tree.(course.Object); !ok {
		return nil, errors.New("scraper did not return a JSON object")
	}
	return tree, nil
}
