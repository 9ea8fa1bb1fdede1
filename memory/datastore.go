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

package memory

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/eve"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/util"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
)

const DefaultIndex = "evebox"

var _ core.Datastore = (*DataStore)(nil)

type document struct {
	core.Document
	timestamp time.Time
}

// DataStore keeps events in memory and answers alert and bulk queries
// against them. It is used for development and in tests.
type DataStore struct {
	mu   sync.RWMutex
	docs []*document
	byID map[string]*document

	// The entropy source for ulid generation.
	entropy *rand.Rand

	now func() time.Time
}

func NewDataStore() *DataStore {
	return &DataStore{
		byID:    map[string]*document{},
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

func (s *DataStore) Name() string {
	return "memory"
}

// Add stores the events and returns their new IDs.
func (s *DataStore) Add(events ...eve.EveEvent) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(events))
	for _, event := range events {
		source := util.JsonMap(event.Source())
		source["tags"] = source.GetAsStrings("tags")

		// Range queries are against @timestamp, which may have less
		// precision than the Eve timestamp.
		timestamp, err := eve.ParseTimestamp(source.GetString("@timestamp"))
		if err != nil {
			timestamp = event.Timestamp()
		}
		id := ulid.MustNew(ulid.Timestamp(timestamp), s.entropy).String()
		doc := &document{
			Document: core.Document{
				Index:  DefaultIndex,
				ID:     id,
				Source: source,
			},
			timestamp: timestamp,
		}
		s.docs = append(s.docs, doc)
		s.byID[id] = doc
		ids = append(ids, id)
	}
	return ids
}

// Load reads Eve events, one per line, from the reader.
func (s *DataStore) Load(r io.Reader) (int, error) {
	events, err := eve.ReadEvents(r)
	if err != nil {
		return 0, err
	}
	s.Add(events...)
	return len(events), nil
}

func (s *DataStore) LoadFile(filename string) (int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open eve file")
	}
	defer file.Close()
	count, err := s.Load(file)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to load %s", filename)
	}
	log.Info("Loaded %d events from %s", count, filename)
	return count, nil
}

// Get returns a copy of the document with the given ID.
func (s *DataStore) Get(id string) (core.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[id]
	if !ok {
		return core.Document{}, false
	}
	return doc.Clone(), true
}

func (s *DataStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *DataStore) AlertQuery(ctx context.Context, options core.AlertQueryOptions) ([]core.AlertGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matcher := s.newMatcher(options.QueryString, options.MustHaveTags,
		options.MustNotHaveTags, nil, options.TimeRange, options.MinTs,
		options.MaxTs, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type entry struct {
		group  core.AlertGroup
		newest *document
		oldest *document
	}
	groups := map[core.AlertGroupKey]*entry{}

	for _, doc := range s.docs {
		if !matcher.match(doc) {
			continue
		}
		key := core.AlertGroupKey{
			SignatureID: doc.SignatureID(),
			SrcIP:       doc.SrcIP(),
			DestIP:      doc.DestIP(),
		}
		e := groups[key]
		if e == nil {
			e = &entry{newest: doc, oldest: doc}
			groups[key] = e
		}
		e.group.Count++
		if core.IsEscalated(doc.Tags()) {
			e.group.EscalatedCount++
		}
		if doc.timestamp.After(e.newest.timestamp) {
			e.newest = doc
		}
		if doc.timestamp.Before(e.oldest.timestamp) {
			e.oldest = doc
		}
	}

	alertGroups := make(core.AlertGroupSet, 0, len(groups))
	for _, e := range groups {
		e.group.Event = e.newest.Clone()
		e.group.MaxTs = e.newest.Timestamp()
		e.group.MinTs = e.oldest.Timestamp()
		alertGroups = append(alertGroups, e.group)
	}

	sort.Stable(sort.Reverse(alertGroups))

	return alertGroups, nil
}

func (s *DataStore) FindDocuments(ctx context.Context, scope core.Scope, size int) (core.DocumentBatch, error) {
	if err := ctx.Err(); err != nil {
		return core.DocumentBatch{}, err
	}

	matcher := s.newMatcher(scope.QueryString, scope.MustHaveTags,
		scope.MustNotHaveTags, scope.HaveAnyTags, scope.TimeRange,
		time.Time{}, time.Time{}, scope.Group)

	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := core.DocumentBatch{
		Documents: []core.Document{},
	}
	for _, doc := range s.docs {
		if !matcher.match(doc) {
			continue
		}
		batch.Total++
		if len(batch.Documents) < size {
			batch.Documents = append(batch.Documents, doc.Clone())
		}
	}
	return batch, nil
}

func (s *DataStore) Bulk(ctx context.Context, actions []core.BulkAction) (core.BulkResult, error) {
	result := core.BulkResult{}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := map[string]bool{}
	for _, action := range actions {
		id := action.Document.ID
		doc, ok := s.byID[id]
		if action.Delete {
			// Already gone is not an error.
			if ok {
				delete(s.byID, id)
				deleted[id] = true
			}
			result.Succeeded++
			continue
		}
		if !ok {
			result.Failed = append(result.Failed, core.BulkItemError{
				ID:     id,
				Status: http.StatusNotFound,
				Reason: "document missing",
			})
			continue
		}
		tags := make([]string, len(action.Tags))
		copy(tags, action.Tags)
		doc.Source["tags"] = tags
		result.Succeeded++
	}

	if len(deleted) > 0 {
		docs := s.docs[:0]
		for _, doc := range s.docs {
			if !deleted[doc.ID] {
				docs = append(docs, doc)
			}
		}
		s.docs = docs
	}

	return result, nil
}

type matcher struct {
	filter      queryFilter
	mustHave    []string
	mustNotHave []string
	haveAny     []string
	minTs       time.Time
	maxTs       time.Time
	group       *core.AlertGroupQueryParams
}

func (s *DataStore) newMatcher(queryString string, mustHave []string,
	mustNotHave []string, haveAny []string, timeRange string,
	minTs time.Time, maxTs time.Time,
	group *core.AlertGroupQueryParams) *matcher {
	m := &matcher{
		filter:      parseQueryFilter(queryString),
		mustHave:    mustHave,
		mustNotHave: mustNotHave,
		haveAny:     haveAny,
		group:       group,
	}
	if timeRange != "" {
		duration, err := core.ParseTimeRange(timeRange)
		if err != nil {
			log.Warning("Ignoring time range: %v", err)
		} else {
			m.minTs = s.now().Add(-duration)
		}
	} else {
		m.minTs = minTs
		m.maxTs = maxTs
	}
	return m
}

func (m *matcher) match(doc *document) bool {
	if doc.Source.GetString("event_type") != "alert" {
		return false
	}

	tags := doc.Tags()
	for _, tag := range m.mustHave {
		if !util.StringSliceContains(tags, tag) {
			return false
		}
	}
	for _, tag := range m.mustNotHave {
		if util.StringSliceContains(tags, tag) {
			return false
		}
	}
	if len(m.haveAny) > 0 {
		found := false
		for _, tag := range m.haveAny {
			if util.StringSliceContains(tags, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if !m.minTs.IsZero() && doc.timestamp.Before(m.minTs) {
		return false
	}
	if !m.maxTs.IsZero() && doc.timestamp.After(m.maxTs) {
		return false
	}

	if group := m.group; group != nil {
		if doc.SignatureID() != group.SignatureID ||
			doc.SrcIP() != group.SrcIP || doc.DestIP() != group.DstIP {
			return false
		}
		if !group.MinTimestamp.IsZero() && doc.timestamp.Before(group.MinTimestamp) {
			return false
		}
		if !group.MaxTimestamp.IsZero() && doc.timestamp.After(group.MaxTimestamp) {
			return false
		}
	}

	return m.filter.Match(doc.Source)
}
