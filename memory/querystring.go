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
	"fmt"
	"strconv"
	"strings"

	"github.com/jasonish/evebox-triage/util"
)

// QueryStringParser splits a query string into key/value pairs and free
// text values. Values may be double quoted.
type QueryStringParser struct {
	q string
}

func NewQueryStringParser(q string) *QueryStringParser {
	return &QueryStringParser{q: q}
}

func (p *QueryStringParser) nextString() string {
	var s string

	if len(p.q) == 0 {
		return ""
	}

	if p.q[0] == '"' {
		end := strings.IndexByte(p.q[1:], '"')
		if end < 0 {
			s = p.q[1:]
			p.q = ""
		} else {
			s = p.q[1 : end+1]
			p.q = p.q[end+2:]
		}
	} else {
		end := strings.IndexByte(p.q, ' ')
		if end < 0 {
			s = p.q
			p.q = ""
		} else {
			s = p.q[0:end]
			p.q = p.q[end:]
		}
	}

	return s
}

// Next returns the next key and value. An empty key means a free text
// value, an empty key and value means the end of the query string.
func (p *QueryStringParser) Next() (string, string) {
	p.q = strings.TrimLeft(p.q, " ")
	if len(p.q) == 0 {
		return "", ""
	}

	// Quoted string right at the start, its not a key/value.
	if p.q[0] == '"' {
		return "", p.nextString()
	}

	sep := strings.IndexAny(p.q, " :")
	if sep < 0 || p.q[sep] == ' ' {
		return "", p.nextString()
	}

	key := p.q[0:sep]
	p.q = p.q[sep+1:]
	return key, p.nextString()
}

type queryTerm struct {
	key    string
	value  string
	negate bool
}

// queryFilter is a compiled query string, a document must match every term.
type queryFilter []queryTerm

func parseQueryFilter(queryString string) queryFilter {
	filter := queryFilter{}
	parser := NewQueryStringParser(queryString)
	for {
		key, val := parser.Next()
		if key == "" && val == "" {
			break
		}
		if val == "" || (key == "" && val == "*") {
			continue
		}
		term := queryTerm{key: key, value: val}
		switch {
		case strings.HasPrefix(key, "-"):
			term.negate = true
			term.key = key[1:]
		case strings.HasPrefix(key, "+"):
			term.key = key[1:]
		case key == "" && strings.HasPrefix(val, "-") && len(val) > 1:
			term.negate = true
			term.value = val[1:]
		}
		filter = append(filter, term)
	}
	return filter
}

func (f queryFilter) Match(source util.JsonMap) bool {
	for _, term := range f {
		if term.match(source) == term.negate {
			return false
		}
	}
	return true
}

func (t queryTerm) match(source util.JsonMap) bool {
	if t.key == "" {
		return strings.Contains(strings.ToLower(util.ToJson(source)),
			strings.ToLower(t.value))
	}

	value := source.GetPath(strings.Split(t.key, ".")...)
	if value == nil {
		return false
	}
	if t.value == "*" {
		return true
	}

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if formatValue(item) == t.value {
				return true
			}
		}
		return false
	case []string:
		return util.StringSliceContains(v, t.value)
	}

	return formatValue(value) == t.value
}

func formatValue(value interface{}) string {
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}
