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
	"encoding/json"
	"testing"

	"github.com/jasonish/evebox-triage/util"
	"github.com/stretchr/testify/assert"
)

func TestQueryStringParserSingleQuotedValue(t *testing.T) {
	p := NewQueryStringParser("\"quoted string\"")
	k, v := p.Next()
	assert.Equal(t, "", k)
	assert.Equal(t, "quoted string", v)

	k, v = p.Next()
	assert.Empty(t, k)
	assert.Empty(t, v)
}

func TestQueryStringParserUnquotedValues(t *testing.T) {
	p := NewQueryStringParser("one  two three")
	for _, expected := range []string{"one", "two", "three"} {
		k, v := p.Next()
		assert.Empty(t, k)
		assert.Equal(t, expected, v)
	}
}

func TestQueryStringParserKeyVals(t *testing.T) {
	p := NewQueryStringParser("key1:val1 key2:\"val 2\" free")

	k, v := p.Next()
	assert.Equal(t, "key1", k)
	assert.Equal(t, "val1", v)

	k, v = p.Next()
	assert.Equal(t, "key2", k)
	assert.Equal(t, "val 2", v)

	k, v = p.Next()
	assert.Empty(t, k)
	assert.Equal(t, "free", v)
}

func TestQueryStringParserUnterminatedQuote(t *testing.T) {
	p := NewQueryStringParser("\"no end")
	k, v := p.Next()
	assert.Empty(t, k)
	assert.Equal(t, "no end", v)
}

func TestQueryFilterMatch(t *testing.T) {
	var source util.JsonMap
	err := json.Unmarshal([]byte(`{
		"src_ip": "10.0.0.1",
		"dest_port": 443,
		"tags": ["archived"],
		"alert": {"signature_id": 2013028, "signature": "ET POLICY curl User-Agent"}
	}`), &source)
	assert.NoError(t, err)

	tests := []struct {
		query string
		match bool
	}{
		{"", true},
		{"*", true},
		{"src_ip:10.0.0.1", true},
		{"src_ip:10.0.0.2", false},
		{"alert.signature_id:2013028", true},
		{"dest_port:443", true},
		{"tags:archived", true},
		{"-tags:archived", false},
		{"+tags:archived src_ip:10.0.0.1", true},
		{"curl", true},
		{"\"POLICY curl\"", true},
		{"-curl", false},
		{"wget", false},
		{"alert.category:*", false},
		{"alert.signature:*", true},
	}
	for _, test := range tests {
		assert.Equal(t, test.match, parseQueryFilter(test.query).Match(source), test.query)
	}
}
