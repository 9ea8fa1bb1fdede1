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
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// AlertGroupQueryParams holds the parameters for querying a specific
// group of alerts.
type AlertGroupQueryParams struct {
	SignatureID  uint64
	SrcIP        string
	DstIP        string
	MinTimestamp time.Time
	MaxTimestamp time.Time
}

// AlertQueryOptions includes the options for querying alerts which are then
// returned as alert groups.
type AlertQueryOptions struct {
	// Tags that events must have.
	MustHaveTags []string

	// Tags that events must not have.
	MustNotHaveTags []string

	// Query string.
	QueryString string

	// Time range which is a duration string telling how far back
	// to look for events (eg. 24h, 1m, 7d).
	TimeRange string

	// Used when TimeRange is not set.
	MinTs time.Time
	MaxTs time.Time
}

// Scope selects the documents a bulk operation applies to.
type Scope struct {
	QueryString     string
	MustHaveTags    []string
	MustNotHaveTags []string

	// Documents must have at least one of these tags.
	HaveAnyTags []string

	TimeRange string

	// Limit to the documents of a single alert group.
	Group *AlertGroupQueryParams
}

// ScopeForGroup returns a scope limited to the given alert group, filtered
// by the same query string and tags used to find the group.
func ScopeForGroup(options AlertQueryOptions, group AlertGroupQueryParams) Scope {
	return Scope{
		QueryString:     options.QueryString,
		MustHaveTags:    append([]string{}, options.MustHaveTags...),
		MustNotHaveTags: append([]string{}, options.MustNotHaveTags...),
		Group:           &group,
	}
}

func (s Scope) WithMustHaveTags(tags ...string) Scope {
	s.MustHaveTags = appendNew(s.MustHaveTags, tags)
	return s
}

func (s Scope) WithMustNotHaveTags(tags ...string) Scope {
	s.MustNotHaveTags = appendNew(s.MustNotHaveTags, tags)
	return s
}

func (s Scope) WithHaveAnyTags(tags ...string) Scope {
	s.HaveAnyTags = appendNew(s.HaveAnyTags, tags)
	return s
}

// appendNew appends to a copy so scopes derived from a common parent never
// share a backing array.
func appendNew(dst []string, tags []string) []string {
	out := make([]string, 0, len(dst)+len(tags))
	out = append(out, dst...)
	for _, tag := range tags {
		found := false
		for _, existing := range out {
			if existing == tag {
				found = true
				break
			}
		}
		if !found {
			out = append(out, tag)
		}
	}
	return out
}

// ParseTimeRange parses a time range such as "24h" or "7d". Go duration
// units are accepted along with "d" for days. The range must be positive.
func ParseTimeRange(timeRange string) (time.Duration, error) {
	var duration time.Duration
	if strings.HasSuffix(timeRange, "d") {
		days, err := strconv.ParseInt(strings.TrimSuffix(timeRange, "d"), 10, 64)
		if err != nil {
			return 0, errors.Errorf("invalid time range: %s", timeRange)
		}
		duration = time.Duration(days) * 24 * time.Hour
	} else {
		var err error
		duration, err = time.ParseDuration(timeRange)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid time range: %s", timeRange)
		}
	}
	if duration <= 0 {
		return 0, errors.Errorf("time range must be positive: %s", timeRange)
	}
	return duration, nil
}
