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
	"net/http"
	"strings"

	"github.com/jasonish/evebox-triage/bulk"
	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/eve"
	"github.com/pkg/errors"
)

// AlertsHandler handles GET requests to /api/1/alerts. This is the handler
// for the Inbox, Escalated and Alerts view queries.
//
// Accepted query parameters:
//
//     tags: a list of tags alerts must have, or must not have; must not
//         have tags are prefixed with a "-".
//
//     query_string: a query string alerts must match.
//
//     time_range: a duration strings (ie: 60s) representing the time before now,
//         until now that alerts must match.
//
//     min_ts: specify the earliest timestamp for the range of the query,
//         format: YYYY-MM-DDTHH:MM:SS.UUUUUUZ
//                 YYYY-MM-DDTHH:MM:SS.UUUUUU-0600
//
//     max_ts: specify the latest timestamp for the range of the query.
func (c *ApiContext) AlertsHandler(w *ResponseWriter, r *http.Request) error {
	args, err := parseCommonRequestArgs(r)
	if err != nil {
		return err
	}
	if args.TimeRange != "" && !(args.MinTs.IsZero() && args.MaxTs.IsZero()) {
		return newHttpErrorResponse(http.StatusBadRequest,
			errors.New("time_range not allowed with min_ts or max_ts"))
	}

	options := core.AlertQueryOptions{
		QueryString: args.QueryString,
		TimeRange:   args.TimeRange,
		MinTs:       args.MinTs,
		MaxTs:       args.MaxTs,
	}
	for _, tag := range args.Tags {
		if strings.HasPrefix(tag, "-") {
			options.MustNotHaveTags = append(options.MustNotHaveTags,
				strings.TrimPrefix(tag, "-"))
		} else {
			options.MustHaveTags = append(options.MustHaveTags, tag)
		}
	}

	alerts, err := c.appContext.DataStore.AlertQuery(r.Context(), options)
	if err != nil {
		return err
	}

	return w.OkJSON(map[string]interface{}{
		"alerts": alerts,
	})
}

type AlertGroupQueryParameters struct {
	SignatureId  uint64 `json:"signature_id"`
	SrcIp        string `json:"src_ip"`
	DestIp       string `json:"dest_ip"`
	MinTimestamp string `json:"min_timestamp"`
	MaxTimestamp string `json:"max_timestamp"`
	QueryString  string `json:"query_string"`
}

func (a *AlertGroupQueryParameters) ToCoreAlertGroupQueryParams() (core.AlertGroupQueryParams, error) {

	params := core.AlertGroupQueryParams{}

	if a.MinTimestamp != "" {
		minTimestamp, err := eve.ParseTimestamp(a.MinTimestamp)
		if err != nil {
			return params, errors.Wrap(err, "bad min_timestamp format")
		}
		params.MinTimestamp = minTimestamp
	}

	if a.MaxTimestamp != "" {
		maxTimestamp, err := eve.ParseTimestamp(a.MaxTimestamp)
		if err != nil {
			return params, errors.Wrap(err, "bad max_timestamp format")
		}
		params.MaxTimestamp = maxTimestamp
	}

	params.SignatureID = a.SignatureId
	params.SrcIP = a.SrcIp
	params.DstIP = a.DestIp

	return params, nil
}

// AlertGroupHandler returns the handler for /api/1/alert-group/{op}. The
// operation is applied to every alert of the group and the request returns
// once the job has finished.
func (c *ApiContext) AlertGroupHandler(op bulk.Op) apiHandlerFunc {
	return func(w *ResponseWriter, r *http.Request) error {
		var request AlertGroupQueryParameters
		if err := DecodeRequestBody(r, &request); err != nil {
			return err
		}

		params, err := request.ToCoreAlertGroupQueryParams()
		if err != nil {
			return newHttpErrorResponse(http.StatusBadRequest, err)
		}
		if params.SignatureID == 0 || params.SrcIP == "" || params.DstIP == "" {
			return newHttpErrorResponse(http.StatusBadRequest,
				errors.New("signature_id, src_ip and dest_ip are required"))
		}
		checkQueryString(request.QueryString)

		job, err := c.appContext.Queue.Submit(op, core.Scope{
			QueryString: request.QueryString,
			Group:       &params,
		})
		if err != nil {
			return err
		}

		if err := job.Wait(r.Context()); err != nil {
			return err
		}

		return w.OkJSON(map[string]interface{}{
			"status": http.StatusOK,
			"job":    job.Status(),
		})
	}
}
