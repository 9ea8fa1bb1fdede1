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

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/grindlemire/go-lucene"
	"github.com/jasonish/evebox-triage/eve"
	"github.com/jasonish/evebox-triage/log"
	"github.com/pkg/errors"
)

type CommonRequestArgs struct {
	MinTs       time.Time
	MaxTs       time.Time
	TimeRange   string
	QueryString string
	Tags        []string
}

func parseCommonRequestArgs(r *http.Request) (CommonRequestArgs, error) {
	var err error = nil

	args := CommonRequestArgs{}

	// time_range with timeRange fallback.
	args.TimeRange = r.FormValue("time_range")
	if args.TimeRange == "" {
		args.TimeRange = r.FormValue("timeRange")
		if args.TimeRange != "" {
			log.Warning("Found deprecated query string parameter 'timeRange'.")
		}
	}

	minTs := r.FormValue("min_ts")
	if minTs != "" {
		args.MinTs, err = eve.ParseTimestamp(minTs)
		if err != nil {
			return args, newHttpErrorResponse(http.StatusBadRequest,
				errors.Wrap(err, "bad min_ts format"))
		}
	}

	maxTs := r.FormValue("max_ts")
	if maxTs != "" {
		args.MaxTs, err = eve.ParseTimestamp(maxTs)
		if err != nil {
			return args, newHttpErrorResponse(http.StatusBadRequest,
				errors.Wrap(err, "bad max_ts format"))
		}
	}

	// query_string will queryString fallback.
	args.QueryString = r.FormValue("query_string")
	if args.QueryString == "" {
		args.QueryString = r.FormValue("queryString")
		if args.QueryString != "" {
			log.Warning("Found deprecated query string parameter 'queryString'.")
		}
	}
	checkQueryString(args.QueryString)

	tags := r.FormValue("tags")
	if tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				args.Tags = append(args.Tags, tag)
			}
		}
	}

	return args, nil
}

// checkQueryString logs a warning for query strings that are not valid
// Lucene syntax. They are still passed on, the datastore has the final
// say.
func checkQueryString(queryString string) {
	if err := validateQueryString(queryString); err != nil {
		log.Warning("%v", err)
	}
}

// validateQueryString returns a bad request error for query strings that
// are not valid Lucene syntax.
func validateQueryString(queryString string) error {
	if queryString == "" {
		return nil
	}
	if _, err := lucene.Parse(queryString); err != nil {
		return newHttpErrorResponse(http.StatusBadRequest,
			errors.Wrapf(err, "invalid query string %q", queryString))
	}
	return nil
}

// DecodeRequestBody is a helper function to decoder request bodies into a
// particular interface.
func DecodeRequestBody(r *http.Request, value interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(value); err != nil {
		return newHttpErrorResponse(http.StatusBadRequest,
			errors.Wrap(err, "failed to decode request body"))
	}
	return nil
}
