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

package core

import (
	"time"

	"github.com/jasonish/evebox-triage/eve"
	"github.com/jasonish/evebox-triage/util"
	"github.com/pkg/errors"
)

// AlertGroup represents many alerts that have been grouped together by
// signature, source and destination.
//
// It provides enough information to act on the alert group such as
// archiving or escalating all the alerts in the group.
type AlertGroup struct {
	Count          int64    `json:"count"`
	EscalatedCount int64    `json:"escalatedCount"`
	MinTs          string   `json:"minTs"`
	MaxTs          string   `json:"maxTs"`
	Event          Document `json:"event"`
}

// AlertGroupKey is the identity of an alert group.
type AlertGroupKey struct {
	SignatureID uint64 `json:"signature_id"`
	SrcIP       string `json:"src_ip"`
	DestIP      string `json:"dest_ip"`
}

func (g *AlertGroup) Key() AlertGroupKey {
	return AlertGroupKey{
		SignatureID: g.Event.SignatureID(),
		SrcIP:       g.Event.SrcIP(),
		DestIP:      g.Event.DestIP(),
	}
}

// Time returns the timestamp of the newest alert in the group.
func (g *AlertGroup) Time() time.Time {
	ts, _ := eve.ParseTimestamp(g.MaxTs)
	return ts
}

func (g *AlertGroup) IsEscalated() bool {
	return g.Count > 0 && g.EscalatedCount >= g.Count
}

func (g *AlertGroup) IsPartiallyEscalated() bool {
	return g.EscalatedCount > 0 && g.EscalatedCount < g.Count
}

func (g *AlertGroup) IsArchived() bool {
	return IsArchived(g.Event.Tags())
}

// SetEscalated updates the escalation state of the group in place.
func (g *AlertGroup) SetEscalated(escalated bool) {
	tags := g.Event.Tags()
	if escalated {
		g.EscalatedCount = g.Count
		tags = util.AddStrings(tags, EscalateTags...)
	} else {
		g.EscalatedCount = 0
		tags = util.RemoveStrings(tags, EscalateTags...)
	}
	g.Event.SetTags(tags)
}

// SetArchived marks the representative event as archived.
func (g *AlertGroup) SetArchived() {
	g.Event.SetTags(util.AddStrings(g.Event.Tags(), ArchiveTags...))
}

// QueryParams returns the parameters selecting the documents of this group
// as they were when the group was loaded.
func (g *AlertGroup) QueryParams() (AlertGroupQueryParams, error) {
	key := g.Key()
	params := AlertGroupQueryParams{
		SignatureID: key.SignatureID,
		SrcIP:       key.SrcIP,
		DstIP:       key.DestIP,
	}
	if g.MinTs != "" {
		ts, err := eve.ParseTimestamp(g.MinTs)
		if err != nil {
			return params, errors.Wrap(err, "bad minTs")
		}
		params.MinTimestamp = ts
	}
	if g.MaxTs != "" {
		ts, err := eve.ParseTimestamp(g.MaxTs)
		if err != nil {
			return params, errors.Wrap(err, "bad maxTs")
		}
		params.MaxTimestamp = ts
	}
	return params, nil
}

func (g *AlertGroup) Clone() *AlertGroup {
	clone := *g
	clone.Event = g.Event.Clone()
	return &clone
}

// AlertGroupSet is a list of alert groups with an interface implementing
// sorting by time.
type AlertGroupSet []AlertGroup

func (a AlertGroupSet) Len() int {
	return len(a)
}

func (a AlertGroupSet) Less(i, j int) bool {
	return a[i].Time().Before(a[j].Time())
}

func (a AlertGroupSet) Swap(i, j int) {
	a[i], a[j] = a[j], a[i]
}
