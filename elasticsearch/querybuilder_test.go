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
	"encoding/json"
	"testing"
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRangeQuery(t *testing.T) {

	// No values set.
	query := NewRangeQuery("@timestamp", nil, nil)
	expected := map[string]interface{}{
		"range": map[string]interface{}{
			"@timestamp": map[string]interface{}{},
		},
	}
	assert.Equal(t, query, expected)

	// Gte set.
	query = NewRangeQuery("@timestamp", 100, nil)
	expected = map[string]interface{}{
		"range": map[string]interface{}{
			"@timestamp": map[string]interface{}{
				"gte": 100,
			},
		},
	}
	assert.Equal(t, query, expected)

	// Lte set.
	query = NewRangeQuery("@timestamp", nil, 200)
	expected = map[string]interface{}{
		"range": map[string]interface{}{
			"@timestamp": map[string]interface{}{
				"lte": 200,
			},
		},
	}
	assert.Equal(t, query, expected)

	// Both gte and lte set.
	query = NewRangeQuery("@timestamp", 100, 200)
	expected = map[string]interface{}{
		"range": map[string]interface{}{
			"@timestamp": map[string]interface{}{
				"gte": 100,
				"lte": 200,
			},
		},
	}
	assert.Equal(t, query, expected)
}

// toJsonMap round trips a query through JSON so it can be inspected the
// way Elastic Search will see it.
func toJsonMap(t *testing.T, query interface{}) util.JsonMap {
	buf, err := json.Marshal(query)
	require.NoError(t, err)
	var out util.JsonMap
	require.NoError(t, json.Unmarshal(buf, &out))
	return out
}

func filtersOf(query util.JsonMap) []util.JsonMap {
	return query.GetMap("query").GetMap("bool").GetMapList("filter")
}

func mustNotOf(query util.JsonMap) []util.JsonMap {
	return query.GetMap("query").GetMap("bool").GetMapList("must_not")
}

func hasFilter(filters []util.JsonMap, kind string, field string) util.JsonMap {
	for _, filter := range filters {
		if inner := filter.GetMap(kind); inner != nil && inner.HasKey(field) {
			return inner
		}
	}
	return nil
}

func fixedBuilder(now time.Time) *QueryBuilder {
	builder := NewQueryBuilder(DefaultKeyword, 0)
	builder.now = func() time.Time { return now }
	return builder
}

func TestAlertQueryEmptyQueryString(t *testing.T) {
	query := toJsonMap(t, NewQueryBuilder(DefaultKeyword, 0).AlertQuery(core.AlertQueryOptions{}))

	var queryString util.JsonMap
	for _, filter := range filtersOf(query) {
		if qs := filter.GetMap("query_string"); qs != nil {
			queryString = qs
		}
	}
	require.NotNil(t, queryString)
	assert.Equal(t, "*", queryString.GetString("query"))
	assert.Equal(t, "AND", queryString.GetString("default_operator"))

	assert.Equal(t, int64(0), query.GetInt64("size"))
	assert.NotNil(t, hasFilter(filtersOf(query), "term", "event_type"))
}

func TestAlertQueryTags(t *testing.T) {
	query := toJsonMap(t, NewQueryBuilder(DefaultKeyword, 0).AlertQuery(core.AlertQueryOptions{
		MustHaveTags:    []string{core.TagEscalated},
		MustNotHaveTags: []string{core.TagArchived},
		QueryString:     "alert.severity:1",
	}))

	term := hasFilter(filtersOf(query), "term", "tags")
	require.NotNil(t, term)
	assert.Equal(t, core.TagEscalated, term.GetString("tags"))

	mustNot := hasFilter(mustNotOf(query), "term", "tags")
	require.NotNil(t, mustNot)
	assert.Equal(t, core.TagArchived, mustNot.GetString("tags"))
}

func TestAlertQueryAggregations(t *testing.T) {
	query := toJsonMap(t, NewQueryBuilder(DefaultKeyword, 500).AlertQuery(core.AlertQueryOptions{}))

	signatures := query.GetMap("aggs").GetMap("signatures")
	assert.Equal(t, "alert.signature_id", signatures.GetMap("terms").GetString("field"))
	assert.Equal(t, int64(500), signatures.GetMap("terms").GetInt64("size"))

	sources := signatures.GetMap("aggs").GetMap("sources")
	assert.Equal(t, "src_ip.keyword", sources.GetMap("terms").GetString("field"))

	destinations := sources.GetMap("aggs").GetMap("destinations")
	assert.Equal(t, "dest_ip.keyword", destinations.GetMap("terms").GetString("field"))

	aggs := destinations.GetMap("aggs")
	assert.Equal(t, int64(1), aggs.GetMap("newest").GetMap("top_hits").GetInt64("size"))
	assert.Equal(t, int64(1), aggs.GetMap("oldest").GetMap("top_hits").GetInt64("size"))
	assert.Equal(t, []string{"escalated", "evebox.escalated"},
		aggs.GetMap("escalated").GetMap("filter").GetMap("terms").GetAsStrings("tags"))
}

func TestAlertQueryTimeRange(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	builder := fixedBuilder(now)

	query := toJsonMap(t, builder.AlertQuery(core.AlertQueryOptions{TimeRange: "7d"}))
	rng := hasFilter(filtersOf(query), "range", "@timestamp")
	require.NotNil(t, rng)
	assert.Equal(t, "2026-03-03T12:00:00.000000Z", rng.GetMap("@timestamp").GetString("gte"))

	query = toJsonMap(t, builder.AlertQuery(core.AlertQueryOptions{TimeRange: "1h"}))
	rng = hasFilter(filtersOf(query), "range", "@timestamp")
	require.NotNil(t, rng)
	assert.Equal(t, "2026-03-10T11:00:00.000000Z", rng.GetMap("@timestamp").GetString("gte"))
}

func TestAlertQueryBadTimeRangeIsDropped(t *testing.T) {
	for _, timeRange := range []string{"yesterday", "-24h", "-1d", "0d", "0s"} {
		query := toJsonMap(t, NewQueryBuilder(DefaultKeyword, 0).AlertQuery(core.AlertQueryOptions{
			TimeRange: timeRange,
		}))
		assert.Nil(t, hasFilter(filtersOf(query), "range", "@timestamp"), timeRange)
	}
}

func TestAlertQueryMinMaxTs(t *testing.T) {
	minTs := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTs := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	query := toJsonMap(t, NewQueryBuilder(DefaultKeyword, 0).AlertQuery(core.AlertQueryOptions{
		MinTs: minTs,
		MaxTs: maxTs,
	}))

	var gte, lte string
	for _, filter := range filtersOf(query) {
		rng := filter.GetMap("range").GetMap("@timestamp")
		if rng.HasKey("gte") {
			gte = rng.GetString("gte")
		}
		if rng.HasKey("lte") {
			lte = rng.GetString("lte")
		}
	}
	assert.Equal(t, "2026-01-01T00:00:00.000000Z", gte)
	assert.Equal(t, "2026-01-02T00:00:00.000000Z", lte)
}

func TestScopeQueryGroup(t *testing.T) {
	group := core.AlertGroupQueryParams{
		SignatureID:  2013028,
		SrcIP:        "10.16.1.11",
		DstIP:        "10.16.1.1",
		MaxTimestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	scope := core.Scope{Group: &group}.WithMustNotHaveTags(core.TagArchived)

	query := toJsonMap(t, NewQueryBuilder(DefaultKeyword, 0).ScopeQuery(scope, 1000))

	assert.Equal(t, int64(1000), query.GetInt64("size"))
	assert.Equal(t, []string{"tags"}, query.GetAsStrings("_source"))
	assert.Equal(t, []string{"_doc"}, query.GetAsStrings("sort"))
	assert.Equal(t, true, query.Get("track_total_hits"))

	filters := filtersOf(query)
	sig := hasFilter(filters, "term", "alert.signature_id")
	require.NotNil(t, sig)
	assert.Equal(t, float64(2013028), sig.Get("alert.signature_id"))
	assert.Equal(t, "10.16.1.11", hasFilter(filters, "term", "src_ip.keyword").GetString("src_ip.keyword"))
	assert.Equal(t, "10.16.1.1", hasFilter(filters, "term", "dest_ip.keyword").GetString("dest_ip.keyword"))

	rng := hasFilter(filters, "range", "@timestamp").GetMap("@timestamp")
	assert.Equal(t, "2026-01-02T00:00:00.000000Z", rng.GetString("lte"))
	assert.False(t, rng.HasKey("gte"))

	assert.NotNil(t, hasFilter(mustNotOf(query), "term", "tags"))
}

func TestScopeQueryHaveAnyTags(t *testing.T) {
	scope := core.Scope{}.WithHaveAnyTags(core.EscalateTags...)
	query := toJsonMap(t, NewQueryBuilder("", 0).ScopeQuery(scope, 10))

	terms := hasFilter(filtersOf(query), "terms", "tags")
	require.NotNil(t, terms)
	assert.Equal(t, core.EscalateTags, terms.GetAsStrings("tags"))
}

func TestFormatKeyword(t *testing.T) {
	assert.Equal(t, "src_ip.keyword", FormatKeyword("src_ip", "keyword"))
	assert.Equal(t, "src_ip.raw", FormatKeyword("src_ip", "raw"))
	assert.Equal(t, "src_ip", FormatKeyword("src_ip", ""))
}
