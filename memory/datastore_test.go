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
	"strings"
	"testing"
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

func TestAlertQueryGrouping(t *testing.T) {
	r := require.New(t)
	ds := NewDataStore()

	ds.Add(
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(1)),
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(3), "escalated"),
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(2)),
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.3", at(4)),
		NewAlertEvent(2, "SIG 2", "10.0.0.1", "10.0.0.2", at(5), "evebox.escalated"),
	)

	groups, err := ds.AlertQuery(context.Background(), core.AlertQueryOptions{})
	r.NoError(err)
	r.Len(groups, 3)

	// Newest first.
	r.Equal(uint64(2), groups[0].Key().SignatureID)
	r.True(groups[0].IsEscalated())

	r.Equal("10.0.0.3", groups[1].Key().DestIP)
	r.Equal(int64(1), groups[1].Count)

	group := groups[2]
	r.Equal(int64(3), group.Count)
	r.Equal(int64(1), group.EscalatedCount)
	r.True(group.IsPartiallyEscalated())
	r.Equal("2026-01-01T00:01:00.000Z", group.MinTs)
	r.Equal("2026-01-01T00:03:00.000Z", group.MaxTs)
	r.Equal([]string{"escalated"}, group.Event.Tags())

	// Every document lands in exactly one group.
	total := int64(0)
	for _, group := range groups {
		total += group.Count
	}
	r.Equal(int64(5), total)
}

func TestAlertQueryTags(t *testing.T) {
	ds := NewDataStore()
	ds.Add(
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(1), "archived"),
		NewAlertEvent(2, "SIG 2", "10.0.0.1", "10.0.0.2", at(2), "escalated"),
		NewAlertEvent(3, "SIG 3", "10.0.0.1", "10.0.0.2", at(3)),
	)

	inbox, err := ds.AlertQuery(context.Background(), core.AlertQueryOptions{
		MustNotHaveTags: []string{core.TagArchived},
	})
	require.NoError(t, err)
	assert.Len(t, inbox, 2)

	escalated, err := ds.AlertQuery(context.Background(), core.AlertQueryOptions{
		MustHaveTags: []string{core.TagEscalated},
	})
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.Equal(t, uint64(2), escalated[0].Key().SignatureID)

	byQuery, err := ds.AlertQuery(context.Background(), core.AlertQueryOptions{
		QueryString: "alert.signature_id:3",
	})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "SIG 3", byQuery[0].Event.Signature())
}

func TestAlertQueryTimeRange(t *testing.T) {
	ds := NewDataStore()
	ds.now = func() time.Time { return at(60) }
	ds.Add(
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(1)),
		NewAlertEvent(2, "SIG 2", "10.0.0.1", "10.0.0.2", at(50)),
	)

	groups, err := ds.AlertQuery(context.Background(), core.AlertQueryOptions{TimeRange: "30m"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, uint64(2), groups[0].Key().SignatureID)

	// An invalid time range is ignored.
	groups, err = ds.AlertQuery(context.Background(), core.AlertQueryOptions{TimeRange: "bogus"})
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestFindDocumentsAndBulk(t *testing.T) {
	r := require.New(t)
	ds := NewDataStore()
	ids := ds.Add(
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(1)),
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(2)),
		NewAlertEvent(1, "SIG 1", "10.0.0.1", "10.0.0.2", at(3)),
		NewAlertEvent(2, "SIG 2", "10.0.0.1", "10.0.0.2", at(4)),
	)

	group := core.AlertGroupQueryParams{
		SignatureID:  1,
		SrcIP:        "10.0.0.1",
		DstIP:        "10.0.0.2",
		MaxTimestamp: at(2),
	}
	scope := core.Scope{Group: &group}.WithMustNotHaveTags(core.TagArchived)

	batch, err := ds.FindDocuments(context.Background(), scope, 1)
	r.NoError(err)
	r.Equal(int64(2), batch.Total)
	r.Len(batch.Documents, 1)

	result, err := ds.Bulk(context.Background(), []core.BulkAction{
		{Document: batch.Documents[0], Tags: core.ArchiveTags},
		{Document: core.Document{ID: "missing"}, Tags: core.ArchiveTags},
		{Document: core.Document{ID: ids[3]}, Delete: true},
	})
	r.NoError(err)
	r.Equal(int64(2), result.Succeeded)
	r.Len(result.Failed, 1)
	r.Equal("missing", result.Failed[0].ID)
	r.Equal(3, ds.Count())

	doc, ok := ds.Get(batch.Documents[0].ID)
	r.True(ok)
	r.True(core.IsArchived(doc.Tags()))

	batch, err = ds.FindDocuments(context.Background(), scope, 1000)
	r.NoError(err)
	r.Equal(int64(1), batch.Total)
}

func TestLoad(t *testing.T) {
	input := `{"timestamp": "2026-01-01T00:00:01.000000+0000", "event_type": "alert", "src_ip": "10.0.0.1", "dest_ip": "10.0.0.2", "alert": {"signature_id": 1, "signature": "SIG 1"}}

{"timestamp": "2026-01-01T00:00:02.000000+0000", "event_type": "flow", "src_ip": "10.0.0.1", "dest_ip": "10.0.0.2"}
`
	ds := NewDataStore()
	count, err := ds.Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	groups, err := ds.AlertQuery(context.Background(), core.AlertQueryOptions{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "2026-01-01T00:00:01.000Z", groups[0].MaxTs)

	_, err = ds.Load(strings.NewReader("{bad json}\n"))
	assert.Error(t, err)
}
