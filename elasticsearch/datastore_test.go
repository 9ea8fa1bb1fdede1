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
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jasonish/evebox-triage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	*httptest.Server

	bulkBody     string
	bulkQuery    string
	searchPath   string
	bulkResponse string
	bulkStatus   int
}

// newFakeServer starts an HTTP server answering just enough of the Elastic
// Search API for the client, including the product header it checks for.
func newFakeServer(t *testing.T) *fakeServer {
	fake := &fakeServer{bulkStatus: http.StatusOK}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/":
			io.WriteString(w, `{"name": "test", "cluster_name": "evebox", "version": {"number": "8.15.0"}}`)
		case strings.HasSuffix(r.URL.Path, "/_search"):
			fake.searchPath = r.URL.Path
			io.WriteString(w, `{"hits": {"total": {"value": 3, "relation": "eq"}, "hits": [
				{"_index": "evebox", "_id": "1", "_source": {"tags": ["archived"]}},
				{"_index": "evebox", "_id": "2", "_source": {}}
			]}}`)
		case r.URL.Path == "/_bulk":
			body, _ := io.ReadAll(r.Body)
			fake.bulkBody = string(body)
			fake.bulkQuery = r.URL.RawQuery
			w.WriteHeader(fake.bulkStatus)
			io.WriteString(w, fake.bulkResponse)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error": "not found"}`)
		}
	}))
	t.Cleanup(fake.Close)
	return fake
}

func newTestDataStore(t *testing.T, fake *fakeServer) *DataStore {
	es, err := New(Config{
		URL:     fake.URL,
		Index:   "evebox",
		Keyword: DefaultKeyword,
	})
	require.NoError(t, err)
	return NewDataStore(es, 0)
}

func TestPing(t *testing.T) {
	fake := newFakeServer(t)
	ds := newTestDataStore(t, fake)

	response, err := ds.es.Ping(context.Background())
	require.NoError(t, err)
	major, minor := response.ParseVersion()
	assert.Equal(t, int64(8), major)
	assert.Equal(t, int64(15), minor)
}

func TestFindDocuments(t *testing.T) {
	fake := newFakeServer(t)
	ds := newTestDataStore(t, fake)

	batch, err := ds.FindDocuments(context.Background(), core.Scope{}, 1000)
	require.NoError(t, err)
	assert.Equal(t, "/evebox/_search", fake.searchPath)
	assert.Equal(t, int64(3), batch.Total)
	require.Len(t, batch.Documents, 2)
	assert.Equal(t, []string{"archived"}, batch.Documents[0].Tags())
	assert.Equal(t, []string{}, batch.Documents[1].Tags())
}

func TestBulkUpdateAndDelete(t *testing.T) {
	fake := newFakeServer(t)
	fake.bulkResponse = `{"took": 1, "errors": true, "items": [
		{"update": {"_id": "1", "status": 200}},
		{"update": {"_id": "2", "status": 429, "error": {"type": "es_rejected_execution_exception", "reason": "rejected"}}},
		{"delete": {"_id": "3", "status": 404}}
	]}`
	ds := newTestDataStore(t, fake)

	actions := []core.BulkAction{
		{Document: core.Document{Index: "evebox", ID: "1"}, Tags: []string{"archived"}},
		{Document: core.Document{Index: "evebox", ID: "2"}, Tags: []string{"archived"}},
		{Document: core.Document{Index: "evebox", ID: "3"}, Delete: true},
	}
	result, err := ds.Bulk(context.Background(), actions)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "2", result.Failed[0].ID)
	assert.Equal(t, 429, result.Failed[0].Status)
	assert.Equal(t, "rejected", result.Failed[0].Reason)

	assert.Contains(t, fake.bulkQuery, "refresh=wait_for")
	lines := strings.Split(strings.TrimSuffix(fake.bulkBody, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.JSONEq(t, `{"update": {"_id": "1", "_index": "evebox"}}`, lines[0])
	assert.JSONEq(t, `{"doc": {"tags": ["archived"]}}`, lines[1])
	assert.JSONEq(t, `{"delete": {"_id": "3", "_index": "evebox"}}`, lines[4])
}

func TestBulkErrorStatus(t *testing.T) {
	fake := newFakeServer(t)
	fake.bulkStatus = http.StatusBadRequest
	fake.bulkResponse = `{"error": "bad request"}`
	ds := newTestDataStore(t, fake)

	_, err := ds.Bulk(context.Background(), []core.BulkAction{
		{Document: core.Document{Index: "evebox", ID: "1"}, Tags: []string{}},
	})
	require.Error(t, err)
	esError, ok := err.(ElasticSearchError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, esError.StatusCode)
	assert.Contains(t, esError.Raw, "bad request")
}

func TestBulkNoActions(t *testing.T) {
	fake := newFakeServer(t)
	ds := newTestDataStore(t, fake)

	result, err := ds.Bulk(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Succeeded)
	assert.Equal(t, "", fake.bulkBody)
}
