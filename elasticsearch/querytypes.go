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

import "fmt"

type m map[string]interface{}

type l []interface{}

type Bool struct {
	Filter  []interface{} `json:"filter,omitempty"`
	MustNot []interface{} `json:"must_not,omitempty"`
}

type Query struct {
	Bool *Bool `json:"bool,omitempty"`
}

func ExistsQuery(field string) interface{} {
	return m{
		"exists": m{
			"field": field,
		},
	}
}

func TermQuery(field string, value interface{}) map[string]interface{} {
	return m{
		"term": m{
			field: value,
		},
	}
}

func TermsQuery(field string, values ...string) map[string]interface{} {
	return m{
		"terms": m{
			field: values,
		},
	}
}

func KeywordTermQuery(field string, value string, suffix string) map[string]interface{} {
	return TermQuery(FormatKeyword(field, suffix), value)
}

// FormatKeyword returns the name of the keyword sub-field of field, or
// field itself if suffix is empty.
func FormatKeyword(field string, suffix string) string {
	if suffix == "" {
		return field
	}
	return fmt.Sprintf("%s.%s", field, suffix)
}

func QueryString(query string) map[string]interface{} {
	return m{
		"query_string": m{
			"query":            query,
			"default_operator": "AND",
		},
	}
}

func NewRangeQuery(field string, gte interface{}, lte interface{}) map[string]interface{} {
	rng := map[string]interface{}{}

	if gte != nil {
		rng["gte"] = gte
	}

	if lte != nil {
		rng["lte"] = lte
	}

	return map[string]interface{}{
		"range": map[string]interface{}{
			field: rng,
		},
	}
}

func RangeGte(field string, value interface{}) interface{} {
	return NewRangeQuery(field, value, nil)
}

func RangeLte(field string, value interface{}) interface{} {
	return NewRangeQuery(field, nil, value)
}

func Sort(field string, order string) map[string]interface{} {
	return m{
		field: m{
			"order": order,
		},
	}
}

func TopHitsAgg(field string, order string, size int64) interface{} {
	return m{
		"top_hits": m{
			"sort": l{
				Sort(field, order),
			},
			"size": size,
		},
	}
}

func TermsAgg(field string, size int) m {
	return m{
		"terms": m{
			"field": field,
			"size":  size,
		},
	}
}
