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

package util

import (
	"encoding/json"
	"strconv"
)

// A wrapper around a generic string map for accessing elements of decoded
// JSON. Accessors never panic; a missing or mistyped element yields the
// zero value.
type JsonMap map[string]interface{}

func (m JsonMap) GetMap(name string) JsonMap {
	if m == nil {
		return nil
	}
	switch v := m[name].(type) {
	case map[string]interface{}:
		return JsonMap(v)
	case JsonMap:
		return v
	}
	return nil
}

func (m JsonMap) GetMapList(name string) []JsonMap {
	if m == nil {
		return nil
	}

	switch v := m[name].(type) {
	case []interface{}:
		result := make([]JsonMap, 0, len(v))
		for _, item := range v {
			if asMap, ok := item.(map[string]interface{}); ok {
				result = append(result, JsonMap(asMap))
			}
		}
		return result
	case []map[string]interface{}:
		result := make([]JsonMap, 0, len(v))
		for _, item := range v {
			result = append(result, JsonMap(item))
		}
		return result
	}

	return nil
}

func (m JsonMap) Get(name string) interface{} {
	if m == nil {
		return nil
	}
	return m[name]
}

// GetPath follows a list of keys through nested maps, for example
// GetPath("alert", "signature_id").
func (m JsonMap) GetPath(path ...string) interface{} {
	current := m
	for i, key := range path {
		if i == len(path)-1 {
			return current.Get(key)
		}
		current = current.GetMap(key)
		if current == nil {
			return nil
		}
	}
	return nil
}

func (m JsonMap) GetString(name string) string {
	if m == nil {
		return ""
	}
	val, ok := m[name].(string)
	if !ok {
		return ""
	}
	return val
}

func (m JsonMap) GetInt64(name string) int64 {
	value, _ := AsInt64(m.Get(name))
	return value
}

// AsInt64 converts the numeric types produced by a json.Decoder (with or
// without UseNumber) to an int64.
func AsInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func (m JsonMap) HasKey(key string) bool {
	return m[key] != nil
}

// GetAsStrings will return the value with the given name as a slice
// of strings. On failure an empty slice will be returned.
func (m JsonMap) GetAsStrings(name string) []string {
	switch items := m.Get(name).(type) {
	case []string:
		out := make([]string, len(items))
		copy(out, items)
		return out
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
