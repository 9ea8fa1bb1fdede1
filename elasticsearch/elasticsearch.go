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
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/jasonish/evebox-triage/log"
	"github.com/pkg/errors"
)

const DefaultIndex = "logstash-*"

const DefaultKeyword = "keyword"

type Config struct {
	URL                string
	Index              string
	Username           string
	Password           string
	NoCheckCertificate bool
	Keyword            string
	Timeout            time.Duration

	// Used in place of the default transport, mainly for testing.
	Transport http.RoundTripper
}

type ElasticSearch struct {
	client  *elasticsearch.Client
	index   string
	keyword string
}

func New(config Config) (*ElasticSearch, error) {
	if config.Index == "" {
		config.Index = DefaultIndex
	}

	transport := config.Transport
	if transport == nil {
		httpTransport := http.DefaultTransport.(*http.Transport).Clone()
		if config.NoCheckCertificate {
			httpTransport.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: true,
			}
		}
		if config.Timeout > 0 {
			httpTransport.ResponseHeaderTimeout = config.Timeout
		}
		transport = httpTransport
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{config.URL},
		Username:  config.Username,
		Password:  config.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create elasticsearch client")
	}

	return &ElasticSearch{
		client:  client,
		index:   config.Index,
		keyword: config.Keyword,
	}, nil
}

func (es *ElasticSearch) Index() string {
	return es.index
}

func (es *ElasticSearch) Keyword() string {
	return es.keyword
}

func (es *ElasticSearch) Ping(ctx context.Context) (*PingResponse, error) {
	response, err := es.client.Info(es.client.Info.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "ping failed")
	}
	defer response.Body.Close()
	if response.IsError() {
		return nil, NewElasticSearchError(response)
	}
	var body PingResponse
	if err := DecodeResponse(response.Body, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (es *ElasticSearch) Search(ctx context.Context, query interface{}) (*SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode query")
	}
	if log.IsDebug() {
		log.Debug("Search: %s", string(body))
	}
	response, err := es.client.Search(
		es.client.Search.WithContext(ctx),
		es.client.Search.WithIndex(es.index),
		es.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "search failed")
	}
	defer response.Body.Close()
	if response.IsError() {
		return nil, NewElasticSearchError(response)
	}
	return DecodeSearchResponse(response.Body)
}

// Bulk submits a newline delimited bulk request. The request waits for a
// refresh so later searches see the changes.
func (es *ElasticSearch) Bulk(ctx context.Context, body []byte) (*BulkResponse, error) {
	response, err := es.client.Bulk(bytes.NewReader(body),
		es.client.Bulk.WithContext(ctx),
		es.client.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "bulk request failed")
	}
	defer response.Body.Close()
	if response.IsError() {
		return nil, NewElasticSearchError(response)
	}
	bulkResponse := &BulkResponse{}
	if err := DecodeResponse(response.Body, bulkResponse); err != nil {
		return nil, err
	}
	return bulkResponse, nil
}

type ElasticSearchError struct {
	StatusCode int

	// The raw error body as returned from the server.
	Raw string
}

func (e ElasticSearchError) Error() string {
	return fmt.Sprintf("elasticsearch: status %d: %s", e.StatusCode, e.Raw)
}

func NewElasticSearchError(response *esapi.Response) ElasticSearchError {
	error := ElasticSearchError{
		StatusCode: response.StatusCode,
	}
	raw, _ := io.ReadAll(response.Body)
	if raw != nil {
		error.Raw = string(raw)
	}
	return error
}
