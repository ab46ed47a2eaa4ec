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

// Package persist implements the advisory durable cache holding the most
// recent course tree, so restarts can serve data before the first scrape.
package persist

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/natefinch/atomic"

	"github.com/hyperschedule/hyperschedule-api/course"
)

// Store reads and writes the latest course tree. Both directions are best
// effort: callers log failures and move on, the in-memory state is canonical.
type Store interface {
	Read() (course.Value, error)
	Write(tree course.Value) error
}

// FileStore caches the tree in a single JSON file. Writes go to a sibling
// temporary file in the same directory and are renamed over the target, so a
// crash mid-write never leaves a torn document behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path. The parent
// directory must exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read loads and decodes the cached tree.
func (s *FileStore) Read() (course.Value, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return course.Decode(data)
}

// Write atomically replaces the cached tree.
func (s *FileStore) Write(tree course.Value) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return atomic.WriteFile(s.path, bytes.NewReader(data))
}
