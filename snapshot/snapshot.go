/* Copyright (c) 2016 Jason Ish
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions
 * are met:
 *
 * 1. Redistributions of source code must retain the above copyright
 *    notice, this list of conditions and the following disclaimer.
 * 2. Redistributions in binary form must reproduce the above copyright
 *    notice, this list of conditions and the following disclaimer in the
 *    documentation and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED ``AS IS'' AND ANY EXPRESS OR IMPLIED
 * WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
 * DISCLAIMED. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY DIRECT,
 * INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES
 * (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
 * SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS INTERRUPTION)
 * HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN CONTRACT,
 * STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING
 * IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/jasonish/evebox-triage/alertstore"
	"github.com/pkg/errors"
)

const DefaultTTL = time.Hour

// Snapshot is the state of a list view saved when navigating away from it.
type Snapshot struct {
	Route       string           `json:"route"`
	QueryString string           `json:"queryString"`
	View        string           `json:"view"`
	TimeRange   string           `json:"timeRange"`
	State       alertstore.State `json:"state"`
	Created     time.Time        `json:"created"`
}

// Matches returns true if the snapshot was taken for the given route and
// query string.
func (s Snapshot) Matches(route string, queryString string) bool {
	return s.Route == route && s.QueryString == queryString
}

// Cache stores one snapshot per key, the most recent put wins.
type Cache interface {
	Put(ctx context.Context, key string, snapshot Snapshot) error

	// Get returns the snapshot for key, leaving it in place.
	Get(ctx context.Context, key string) (Snapshot, bool, error)

	// Pop returns the snapshot for key and removes it.
	Pop(ctx context.Context, key string) (Snapshot, bool, error)

	Close() error
}

// Key returns the cache key for a route of a console.
func Key(consoleID string, route string) string {
	return consoleID + ":" + route
}

func encode(snapshot Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode snapshot")
	}
	return data, nil
}

func decode(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&snapshot); err != nil {
		return snapshot, errors.Wrap(err, "failed to decode snapshot")
	}
	return snapshot, nil
}
