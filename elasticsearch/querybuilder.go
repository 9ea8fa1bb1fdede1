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

package elasticsearch

import (
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/eve"
	"github.com/jasonish/evebox-triage/log"
)

const DefaultAggSize = 10000

// EventQuery is a type for building up an Elastic Search event query.
type EventQuery struct {
	Query *Query `json:"query,omitempty"`

	// Pointer so its not serialized unless set.
	Size *int64 `json:"size,omitempty"`

	Sort           []interface{}          `json:"sort,omitempty"`
	Aggs           map[string]interface{} `json:"aggs,omitempty"`
	Source         interface{}            `json:"_source,omitempty"`
	TrackTotalHits interface{}            `json:"track_total_hits,omitempty"`
}

func NewEventQuery() EventQuery {
	query := EventQuery{
		Query: &Query{
			Bool: &Bool{},
		},
	}
	query.AddFilter(ExistsQuery("event_type"))
	return query
}

func (q *EventQuery) SetSize(val int64) *EventQuery {
	q.Size = &val
	return q
}

func (q *EventQuery) AddFilter(filter interface{}) {
	q.Query.Bool.Filter = append(q.Query.Bool.Filter, filter)
}

func (q *EventQuery) MustNot(query interface{}) {
	q.Query.Bool.MustNot = append(q.Query.Bool.MustNot, query)
}

// AddTimeRangeFilter limits the query to events newer than now minus the
// time range.
func (q *EventQuery) AddTimeRangeFilter(now time.Time, timeRange string) error {
	duration, err := core.ParseTimeRange(timeRange)
	if err != nil {
		return err
	}
	q.AddFilter(RangeGte("@timestamp", eve.FormatTimestampUTC(now.Add(-duration))))
	return nil
}

// QueryBuilder converts query options and bulk scopes to Elastic Search
// request bodies. It has no side effects.
type QueryBuilder struct {
	keyword string
	aggSize int
	now     func() time.Time
}

func NewQueryBuilder(keyword string, aggSize int) *QueryBuilder {
	if aggSize <= 0 {
		aggSize = DefaultAggSize
	}
	return &QueryBuilder{
		keyword: keyword,
		aggSize: aggSize,
		now:     time.Now,
	}
}

func (b *QueryBuilder) FormatKeyword(field string) string {
	return FormatKeyword(field, b.keyword)
}

func (b *QueryBuilder) addCommonFilters(query *EventQuery, queryString string,
	mustHave []string, mustNotHave []string) {

	// Limit to alerts.
	query.AddFilter(TermQuery("event_type", "alert"))

	// Set must have tags, for example to get escalated alerts.
	for _, tag := range mustHave {
		query.AddFilter(TermQuery("tags", tag))
	}

	// Set must not have tags. For example, the inbox must not have
	// archive tags set.
	for _, tag := range mustNotHave {
		query.MustNot(TermQuery("tags", tag))
	}

	if queryString == "" {
		queryString = "*"
	}
	query.AddFilter(QueryString(queryString))
}

func (b *QueryBuilder) addTimeFilters(query *EventQuery, timeRange string,
	minTs time.Time, maxTs time.Time) {
	if timeRange != "" {
		if err := query.AddTimeRangeFilter(b.now(), timeRange); err != nil {
			log.Warning("Ignoring time range: %v", err)
		}
		return
	}
	if !maxTs.IsZero() {
		query.AddFilter(RangeLte("@timestamp", eve.FormatTimestampUTC(maxTs)))
	}
	if !minTs.IsZero() {
		query.AddFilter(RangeGte("@timestamp", eve.FormatTimestampUTC(minTs)))
	}
}

// AlertQuery builds the aggregation query returning alert groups.
func (b *QueryBuilder) AlertQuery(options core.AlertQueryOptions) EventQuery {
	query := NewEventQuery()
	query.SetSize(0)
	b.addCommonFilters(&query, options.QueryString, options.MustHaveTags,
		options.MustNotHaveTags)
	b.addTimeFilters(&query, options.TimeRange, options.MinTs, options.MaxTs)

	// Set the aggs for grouping by sig, source, then dest...
	query.Aggs = b.get3TupleAggs()

	return query
}

// ScopeQuery builds the query returning one batch of documents matching a
// bulk scope. Only the tags are returned in the source.
func (b *QueryBuilder) ScopeQuery(scope core.Scope, size int) EventQuery {
	query := NewEventQuery()
	query.SetSize(int64(size))
	query.Source = []string{"tags"}
	query.Sort = l{"_doc"}
	query.TrackTotalHits = true

	b.addCommonFilters(&query, scope.QueryString, scope.MustHaveTags,
		scope.MustNotHaveTags)
	if len(scope.HaveAnyTags) > 0 {
		query.AddFilter(TermsQuery("tags", scope.HaveAnyTags...))
	}
	b.addTimeFilters(&query, scope.TimeRange, time.Time{}, time.Time{})

	if group := scope.Group; group != nil {
		query.AddFilter(TermQuery("alert.signature_id", group.SignatureID))
		query.AddFilter(KeywordTermQuery("src_ip", group.SrcIP, b.keyword))
		query.AddFilter(KeywordTermQuery("dest_ip", group.DstIP, b.keyword))
		var gte, lte interface{}
		if !group.MinTimestamp.IsZero() {
			gte = eve.FormatTimestampUTC(group.MinTimestamp)
		}
		if !group.MaxTimestamp.IsZero() {
			lte = eve.FormatTimestampUTC(group.MaxTimestamp)
		}
		if gte != nil || lte != nil {
			query.AddFilter(NewRangeQuery("@timestamp", gte, lte))
		}
	}

	return query
}

// Return a 3 tuple aggregation: signature, source, dest...
func (b *QueryBuilder) get3TupleAggs() map[string]interface{} {
	destinations := TermsAgg(b.FormatKeyword("dest_ip"), b.aggSize)
	destinations["aggs"] = m{
		"newest": TopHitsAgg("@timestamp", "desc", 1),
		"oldest": TopHitsAgg("@timestamp", "asc", 1),
		"escalated": m{
			"filter": TermsQuery("tags", core.EscalateTags...),
		},
	}

	sources := TermsAgg(b.FormatKeyword("src_ip"), b.aggSize)
	sources["aggs"] = m{
		"destinations": destinations,
	}

	signatures := TermsAgg("alert.signature_id", b.aggSize)
	signatures["aggs"] = m{
		"sources": sources,
	}

	return map[string]interface{}{
		"signatures": signatures,
	}
}
