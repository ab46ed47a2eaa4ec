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

// Package api exposes the HTTP surface of the course service: one read
// endpoint polled by browsers and one write endpoint posted to by scrapers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/inconshreveable/log15"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/hyperschedule/hyperschedule-api/course"
	"github.com/hyperschedule/hyperschedule-api/notify"
	"github.com/hyperschedule/hyperschedule-api/snapshot"
)

// frontendURL is where the index page sends stray visitors.
const frontendURL = "https://hyperschedule.io"

// payloadCacheSize bounds the cache of encoded full snapshots. Every cold
// client between two scrapes downloads the same full payload, so encoding it
// once per (scraper, term, age) saves the bulk of the read-path work.
const payloadCacheSize = 16

// Server dispatches client requests onto the database.
type Server struct {
	db       *snapshot.Database
	hook     *notify.Webhook
	payloads *lru.Cache
	handler  http.Handler
}

// payloadKey identifies one encoded full snapshot.
type payloadKey struct {
	scraper string
	term    string
	age     int64
}

// coursesReply is the success envelope of the read endpoint.
type coursesReply struct {
	Error   *string         `json:"error"`
	Courses json.RawMessage `json:"courses"`
	Until   int64           `json:"until"`
	Full    bool            `json:"full"`
	Term    course.Term     `json:"term"`
}

// errorReply is the envelope reported for client mistakes.
type errorReply struct {
	Error string `json:"error"`
}

// postReply acknowledges a successful scraper upload.
type postReply struct {
	Error *string `json:"error"`
}

// NewServer creates the dispatcher. The webhook may be nil.
func NewServer(db *snapshot.Database, hook *notify.Webhook) *Server {
	s := &Server{db: db, hook: hook}
	s.payloads, _ = lru.New(payloadCacheSize)

	router := httprouter.New()
	router.GET("/", s.index)
	router.GET("/health-check", s.healthCheck)
	router.GET("/api/v4/courses", s.getCourses)
	router.POST("/api/v4/courses", s.postCourses)

	// Browsers poll from the frontend origin, so every response needs CORS
	// headers the way the original deployment sent them.
	s.handler = cors.Default().Handler(router)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, frontendURL, http.StatusFound)
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getCourses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := s.db.Query(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	payload, err := s.encodePayload(q.Scraper, resp)
	if err != nil {
		log.Error("Failed to encode course payload", "scraper", q.Scraper, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, coursesReply{
		Courses: payload,
		Until:   resp.Age,
		Full:    resp.Full,
		Term:    resp.Term,
	})
}

func (s *Server) postCourses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, course.NewUserError("failed to read request body"))
		return
	}
	scraper, term, courses, err := validatePost(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.db.Ingest(scraper, term, courses)
	s.hook.Ping()
	writeJSON(w, postReply{})
}

// encodePayload serializes the courses payload, reusing cached bytes for
// full snapshots since those repeat identically until the next ingest.
func (s *Server) encodePayload(scraper string, resp snapshot.Response) (json.RawMessage, error) {
	if !resp.Full {
		return json.Marshal(resp.Payload)
	}
	key := payloadKey{scraper: scraper, term: resp.Term.Code, age: resp.Age}
	if cached, ok := s.payloads.Get(key); ok {
		return cached.(json.RawMessage), nil
	}
	data, err := json.Marshal(resp.Payload)
	if err != nil {
		return nil, err
	}
	s.payloads.Add(key, json.RawMessage(data))
	return data, nil
}

// parseQuery extracts the read endpoint's query parameters.
func parseQuery(r *http.Request) (snapshot.Query, error) {
	vals := r.URL.Query()

	q := snapshot.Query{
		Scraper:       vals.Get("scraper"),
		CurrentTerm:   vals.Get("currentTerm"),
		RequestedTerm: vals.Get("requestedTerm"),
	}
	if q.Scraper == "" {
		return q, course.NewUserError("request failed to specify scraper")
	}
	if raw := vals.Get("since"); raw != "" {
		since, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, course.NewUserError("timestamp is not an integer: %s", raw)
		}
		if q.CurrentTerm == "" {
			return q, course.NewUserError("incremental update requires specifying current term")
		}
		q.Since, q.HasSince = since, true
	}
	return q, nil
}

// writeError maps an error onto the wire: client mistakes become an error
// envelope with HTTP 200, missing data becomes a bare 503.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, snapshot.ErrUnavailable) {
		http.Error(w, snapshot.ErrUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}
	var uerr *course.UserError
	if errors.As(err, &uerr) {
		writeJSON(w, errorReply{Error: uerr.Message})
		return
	}
	log.Error("Request failed", "err", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "err", err)
	}
}
