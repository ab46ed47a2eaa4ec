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

// Package notify pings a liveness webhook whenever course data is ingested,
// so an external monitor can alert when the scrapers go quiet.
package notify

import (
	"net/http"
	"time"

	log "github.com/inconshreveable/log15"
	"golang.org/x/time/rate"
)

// DefaultURL is the Dead Man's Snitch endpoint pinged on scrape success.
const DefaultURL = "https://nosnch.in/f08b6b7be5"

// DefaultInterval is the minimum time between two webhook pings.
const DefaultInterval = 5 * time.Minute

// pingTimeout bounds the webhook GET request.
const pingTimeout = 5 * time.Second

// Webhook GETs a fixed URL at most once per interval. Calls made before the
// interval has elapsed since the last ping are silently dropped.
type Webhook struct {
	url     string
	limiter *rate.Limiter
	client  *http.Client
}

// NewWebhook creates a webhook that pings url at most once every interval.
func NewWebhook(url string, interval time.Duration) *Webhook {
	return &Webhook{
		url:     url,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		client:  &http.Client{Timeout: pingTimeout},
	}
}

// Ping reports success upstream. Network failures are logged and swallowed;
// the caller never sees them. A nil webhook drops every ping, which is how a
// disabled snitch is wired.
func (w *Webhook) Ping() {
	if w == nil || !w.limiter.Allow() {
		return
	}
	resp, err := w.client.Get(w.url)
	if err != nil {
		log.Warn("Failed to reach success webhook", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		log.Warn("Success webhook refused ping", "status", resp.StatusCode)
	}
}
