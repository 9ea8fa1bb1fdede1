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

package eve

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jasonish/evebox-triage/util"
	"github.com/pkg/errors"
)

// A EveEvent is an Eve event decoded into map[string]interface{} which
// contains all the data in its raw format.
type EveEvent map[string]interface{}

func NewEveEventFromBytes(b []byte) (event EveEvent, err error) {

	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	if err := decoder.Decode(&event); err != nil {
		return nil, err
	}

	// Create empty tags if it doesn't exist.
	if event["tags"] == nil {
		event["tags"] = []interface{}{}
	}

	// Attempt to parse the timestamp, fail the decode if it can't be
	// parsed.
	timestamp, err := event.parseTimestamp()
	if err != nil {
		return nil, err
	}

	// Cache the timestamp.
	event["__parsed_timestamp"] = timestamp

	// Eve events don't carry an @timestamp, Logstash and the EveBox
	// importers add one.
	if event["@timestamp"] == nil {
		event["@timestamp"] = FormatAtTimestamp(timestamp)
	}

	return event, nil
}

func NewEveEventFromString(s string) (event EveEvent, err error) {
	return NewEveEventFromBytes([]byte(s))
}

// ReadEvents decodes a stream of newline separated Eve events. Blank lines
// are skipped, any other malformed line fails the read with the line
// number.
func ReadEvents(r io.Reader) ([]EveEvent, error) {
	events := make([]EveEvent, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		event, err := NewEveEventFromBytes(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read events")
	}
	return events, nil
}

func (e EveEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Source())
}

// Source returns the event without any internal fields, suitable for
// storage as a document source.
func (e EveEvent) Source() map[string]interface{} {
	event := map[string]interface{}{}
	for key, val := range e {
		if strings.HasPrefix(key, "__") {
			continue
		}
		event[key] = val
	}
	return event
}

func (e EveEvent) parseTimestamp() (time.Time, error) {
	tsstring, ok := e["timestamp"].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("not a string")
	}
	return ParseTimestamp(tsstring)
}

func (e EveEvent) Timestamp() time.Time {
	ts, _ := e["__parsed_timestamp"].(time.Time)
	return ts
}

func (e EveEvent) EventType() string {
	return e.GetString("event_type")
}

func (e EveEvent) SrcIp() string {
	return e.GetString("src_ip")
}

func (e EveEvent) DestIp() string {
	return e.GetString("dest_ip")
}

func (e EveEvent) GetMap(key string) util.JsonMap {
	return util.JsonMap(e).GetMap(key)
}

func (e EveEvent) GetString(key string) string {
	return util.JsonMap(e).GetString(key)
}

func (e EveEvent) GetAlertSignatureId() (uint64, bool) {
	id, ok := util.AsInt64(e.GetMap("alert").Get("signature_id"))
	if ok {
		return uint64(id), true
	}
	return 0, false
}
