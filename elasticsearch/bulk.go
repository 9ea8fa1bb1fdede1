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
	"context"
	"net/http"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/util"
)

// FindDocuments returns the next batch of documents matching the scope.
func (s *DataStore) FindDocuments(ctx context.Context, scope core.Scope, size int) (core.DocumentBatch, error) {
	query := s.builder.ScopeQuery(scope, size)
	response, err := s.es.Search(ctx, query)
	if err != nil {
		return core.DocumentBatch{}, err
	}

	batch := core.DocumentBatch{
		Documents: make([]core.Document, 0, len(response.Hits.Hits)),
		Total:     response.Hits.TotalValue(),
	}
	for _, hit := range response.Hits.Hits {
		batch.Documents = append(batch.Documents, core.DocumentFromHit(hit))
	}

	log.Debug("Search response total: %d; hits: %d", batch.Total,
		len(batch.Documents))

	return batch, nil
}

// Bulk applies the actions with a single bulk request.
func (s *DataStore) Bulk(ctx context.Context, actions []core.BulkAction) (core.BulkResult, error) {
	result := core.BulkResult{}
	if len(actions) == 0 {
		return result, nil
	}

	response, err := s.es.Bulk(ctx, BuildBulkBody(actions))
	if err != nil {
		log.Error("Bulk request failed: %v", err)
		return result, err
	}

	for _, item := range response.Items {
		itemError, ok := bulkItemError(item)
		if ok {
			result.Failed = append(result.Failed, itemError)
			log.Notice("Bulk error: %s: %s", itemError.ID, itemError.Reason)
			continue
		}
		result.Succeeded++
	}

	log.Debug("Bulk request of %d actions: succeeded=%d; failed=%d",
		len(actions), result.Succeeded, len(result.Failed))

	return result, nil
}

// BuildBulkBody encodes the actions as a newline delimited bulk request
// body of update or delete commands.
func BuildBulkBody(actions []core.BulkAction) []byte {
	var buf bytes.Buffer

	for _, action := range actions {
		header := m{
			"_id":    action.Document.ID,
			"_index": action.Document.Index,
		}
		if action.Document.Type != "" {
			header["_type"] = action.Document.Type
		}

		if action.Delete {
			buf.WriteString(util.ToJson(m{"delete": header}))
			buf.WriteByte('\n')
			continue
		}

		tags := action.Tags
		if tags == nil {
			tags = []string{}
		}
		buf.WriteString(util.ToJson(m{"update": header}))
		buf.WriteByte('\n')
		buf.WriteString(util.ToJson(m{"doc": m{"tags": tags}}))
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

func bulkItemError(item map[string]interface{}) (core.BulkItemError, bool) {
	for _, op := range []string{"update", "delete", "index"} {
		result := util.JsonMap(item).GetMap(op)
		if result == nil {
			continue
		}
		status := int(result.GetInt64("status"))

		// A delete of a document that is already gone is not an error.
		if op == "delete" && status == http.StatusNotFound {
			return core.BulkItemError{}, false
		}

		cause := result.Get("error")
		if cause == nil && status < 300 {
			return core.BulkItemError{}, false
		}

		reason := result.GetMap("error").GetString("reason")
		if reason == "" {
			reason = util.ToJson(cause)
		}
		return core.BulkItemError{
			ID:     result.GetString("_id"),
			Status: status,
			Reason: reason,
		}, true
	}
	return core.BulkItemError{}, false
}
