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
	"context"
	"sort"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/util"
)

func (s *DataStore) AlertQuery(ctx context.Context, options core.AlertQueryOptions) ([]core.AlertGroup, error) {
	query := s.builder.AlertQuery(options)

	results, err := s.es.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	return NormalizeAlertGroups(util.JsonMap(results.Aggregations)), nil
}

// NormalizeAlertGroups flattens the signature, source and destination
// buckets of an alert aggregation into alert groups, newest first.
func NormalizeAlertGroups(aggs util.JsonMap) []core.AlertGroup {
	alertGroups := core.AlertGroupSet{}

	signatures := aggs.GetMap("signatures")
	for _, bucket0 := range signatures.GetMapList("buckets") {
		sources := bucket0.GetMap("sources")
		for _, bucket1 := range sources.GetMapList("buckets") {
			destinations := bucket1.GetMap("destinations")
			for _, bucket2 := range destinations.GetMapList("buckets") {
				alertGroup, ok := normalizeBucket(bucket2)
				if !ok {
					continue
				}
				alertGroups = append(alertGroups, alertGroup)
			}
		}
	}

	sort.Stable(sort.Reverse(alertGroups))

	return alertGroups
}

func normalizeBucket(bucket util.JsonMap) (core.AlertGroup, bool) {
	alertGroup := core.AlertGroup{}

	newest := bucket.GetMap("newest").GetMap("hits").GetMapList("hits")
	oldest := bucket.GetMap("oldest").GetMap("hits").GetMapList("hits")
	if len(newest) == 0 || len(oldest) == 0 {
		return alertGroup, false
	}

	alertGroup.Count = bucket.GetInt64("doc_count")
	alertGroup.EscalatedCount = bucket.GetMap("escalated").GetInt64("doc_count")
	if alertGroup.EscalatedCount > alertGroup.Count {
		alertGroup.EscalatedCount = alertGroup.Count
	}

	alertGroup.Event = core.DocumentFromHit(newest[0])
	alertGroup.MaxTs = alertGroup.Event.Timestamp()
	alertGroup.MinTs = core.DocumentFromHit(oldest[0]).Timestamp()

	return alertGroup, true
}
