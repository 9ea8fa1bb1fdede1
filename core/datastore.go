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

package core

import (
	"context"
	"errors"
)

var ErrNotImplemented = errors.New("not implemented")

// ErrInvalidForView is returned when an operation is not allowed in the
// current view, for example archiving escalated alerts.
var ErrInvalidForView = errors.New("operation not valid for view")

// AlertQuerier returns alerts grouped by signature, source and destination,
// newest group first.
type AlertQuerier interface {
	AlertQuery(ctx context.Context, options AlertQueryOptions) ([]AlertGroup, error)
}

// DocumentBatch is one page of documents matching a scope.
type DocumentBatch struct {
	Documents []Document

	// Total number of documents matching the scope, if known.
	Total int64
}

// BulkAction is a single update or delete in a bulk request. For updates
// Tags is the complete new tag list of the document.
type BulkAction struct {
	Document Document
	Tags     []string
	Delete   bool
}

type BulkItemError struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

func (e BulkItemError) Error() string {
	return e.ID + ": " + e.Reason
}

type BulkResult struct {
	Succeeded int64
	Failed    []BulkItemError
}

// BulkBackend is the part of a datastore used to drain documents in
// batches.
type BulkBackend interface {
	FindDocuments(ctx context.Context, scope Scope, size int) (DocumentBatch, error)
	Bulk(ctx context.Context, actions []BulkAction) (BulkResult, error)
}

type Datastore interface {
	AlertQuerier
	BulkBackend

	Name() string
}
