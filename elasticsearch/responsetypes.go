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
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/jasonish/evebox-triage/util"
	"github.com/pkg/errors"
)

// PingResponse represents the response to an Elastic Search ping (GET /).
type PingResponse struct {
	Name        string `json:"name"`
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number string `json:"number"`
	} `json:"version"`
	Tagline string `json:"tagline"`
}

// ParseVersion parses the Elastic Search version in the ping response
// returning the major and minor versions.
func (p PingResponse) ParseVersion() (int64, int64) {
	majorVersion := int64(0)
	minorVersion := int64(0)
	parts := strings.Split(p.Version.Number, ".")
	if len(parts) > 0 {
		version, err := strconv.ParseInt(parts[0], 10, 64)
		if err == nil {
			majorVersion = version
		}
	}
	if len(parts) > 1 {
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err == nil {
			minorVersion = version
		}
	}
	return majorVersion, minorVersion
}

// Struct representing a response to a _bulk request.
type BulkResponse struct {
	Took   uint64                   `json:"took"`
	Errors bool                     `json:"errors"`
	Items  []map[string]interface{} `json:"items"`
}

type Hits struct {
	// A number before Elastic Search 7, an object with a value after.
	Total interface{}              `json:"total"`
	Hits  []map[string]interface{} `json:"hits"`
}

// TotalValue returns the total hit count for either form of the total.
func (h Hits) TotalValue() int64 {
	if total, ok := util.AsInt64(h.Total); ok {
		return total
	}
	if obj, ok := h.Total.(map[string]interface{}); ok {
		total, _ := util.AsInt64(obj["value"])
		return total
	}
	return 0
}

type SearchResponse struct {
	Took         uint64                 `json:"took"`
	TimedOut     bool                   `json:"timed_out"`
	Hits         Hits                   `json:"hits"`
	Aggregations map[string]interface{} `json:"aggregations,omitempty"`

	// The raw unmodified response body.
	Raw []byte `json:"-"`
}

// DecodeSearchResponse decodes a search response keeping numbers as
// json.Number.
func DecodeSearchResponse(r io.Reader) (*SearchResponse, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	response := &SearchResponse{}
	if err := decoder.Decode(response); err != nil {
		return nil, errors.Wrap(err, "failed to decode search response")
	}

	response.Raw = raw

	return response, nil
}

func DecodeResponse(r io.Reader, output interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(output); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
