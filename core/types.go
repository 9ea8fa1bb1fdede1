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
	"github.com/jasonish/evebox-triage/util"
)

// Tag vocabulary. The "evebox." prefixed tags were written by older
// versions and are still honoured when checking state.
const (
	TagArchived        = "archived"
	TagEscalated       = "escalated"
	TagLegacyArchived  = "evebox.archived"
	TagLegacyEscalated = "evebox.escalated"
)

// ArchiveTags are the tags added to a document when it is archived.
var ArchiveTags = []string{TagArchived, TagLegacyArchived}

// EscalateTags are the tags added to a document when it is escalated, and
// removed when it is de-escalated.
var EscalateTags = []string{TagEscalated, TagLegacyEscalated}

func IsArchived(tags []string) bool {
	return util.StringSliceContains(tags, TagArchived) ||
		util.StringSliceContains(tags, TagLegacyArchived)
}

func IsEscalated(tags []string) bool {
	return util.StringSliceContains(tags, TagEscalated) ||
		util.StringSliceContains(tags, TagLegacyEscalated)
}

// Document is a raw event document as stored in the datastore.
type Document struct {
	Index  string       `json:"_index"`
	Type   string       `json:"_type,omitempty"`
	ID     string       `json:"_id"`
	Source util.JsonMap `json:"_source"`
}

// DocumentFromHit converts a decoded search hit to a Document, making sure
// the source has a tags list.
func DocumentFromHit(hit util.JsonMap) Document {
	doc := Document{
		Index:  hit.GetString("_index"),
		Type:   hit.GetString("_type"),
		ID:     hit.GetString("_id"),
		Source: hit.GetMap("_source"),
	}
	if doc.Source == nil {
		doc.Source = util.JsonMap{}
	}
	if doc.Source["tags"] == nil {
		doc.Source["tags"] = []string{}
	}
	return doc
}

func (d Document) Tags() []string {
	return d.Source.GetAsStrings("tags")
}

func (d Document) SetTags(tags []string) {
	if d.Source == nil {
		return
	}
	d.Source["tags"] = tags
}

// Timestamp returns the @timestamp of the document, falling back to the Eve
// timestamp.
func (d Document) Timestamp() string {
	if ts := d.Source.GetString("@timestamp"); ts != "" {
		return ts
	}
	return d.Source.GetString("timestamp")
}

func (d Document) SignatureID() uint64 {
	id, _ := util.AsInt64(d.Source.GetPath("alert", "signature_id"))
	return uint64(id)
}

func (d Document) Signature() string {
	return d.Source.GetMap("alert").GetString("signature")
}

func (d Document) Severity() int64 {
	return d.Source.GetMap("alert").GetInt64("severity")
}

func (d Document) SrcIP() string {
	return d.Source.GetString("src_ip")
}

func (d Document) DestIP() string {
	return d.Source.GetString("dest_ip")
}

// Clone returns a copy of the document with its own top level source map
// and tags.
func (d Document) Clone() Document {
	clone := d
	if d.Source != nil {
		clone.Source = make(util.JsonMap, len(d.Source))
		for key, val := range d.Source {
			clone.Source[key] = val
		}
		clone.Source["tags"] = d.Tags()
	}
	return clone
}
