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

package bulk

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/metrics"
	"github.com/jasonish/evebox-triage/util"
	"github.com/pkg/errors"
)

const DefaultBatchSize = 1000

// ErrNoProgress is returned when every item of a bulk request failed.
var ErrNoProgress = errors.New("bulk: no progress")

type Op string

const (
	OpArchive    Op = "archive"
	OpEscalate   Op = "escalate"
	OpDeEscalate Op = "deescalate"
	OpDelete     Op = "delete"
)

func ParseOp(name string) (Op, error) {
	switch Op(name) {
	case OpArchive, OpEscalate, OpDeEscalate, OpDelete:
		return Op(name), nil
	case "star":
		return OpEscalate, nil
	case "unstar":
		return OpDeEscalate, nil
	}
	return "", fmt.Errorf("unknown bulk operation: %s", name)
}

// Narrow limits a scope to the documents the operation still has to
// change.
func (op Op) Narrow(scope core.Scope) core.Scope {
	switch op {
	case OpArchive:
		return scope.WithMustNotHaveTags(core.TagArchived)
	case OpEscalate:
		return scope.WithMustNotHaveTags(core.TagEscalated)
	case OpDeEscalate:
		return scope.WithHaveAnyTags(core.EscalateTags...)
	}
	return scope
}

// Action returns the bulk action for a document, or false if the document
// is already in the target state.
func (op Op) Action(doc core.Document) (core.BulkAction, bool) {
	action := core.BulkAction{Document: doc}
	current := doc.Tags()

	var tags []string
	switch op {
	case OpDelete:
		action.Delete = true
		return action, true
	case OpArchive:
		tags = util.AddStrings(current, core.ArchiveTags...)
	case OpEscalate:
		tags = util.AddStrings(current, core.EscalateTags...)
	case OpDeEscalate:
		tags = util.RemoveStrings(current, core.EscalateTags...)
	default:
		return action, false
	}

	if len(tags) == len(current) {
		return action, false
	}
	action.Tags = tags
	return action, true
}

// Progress of a drain. Safe to read while the drain is running.
type Progress struct {
	value atomic.Int64
	max   atomic.Int64
}

func (p *Progress) Value() int64 {
	return p.value.Load()
}

func (p *Progress) Max() int64 {
	return p.max.Load()
}

// Engine drains bulk operations against a datastore, one batch at a time.
type Engine struct {
	backend   core.BulkBackend
	batchSize int
}

func NewEngine(backend core.BulkBackend, batchSize int) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		backend:   backend,
		batchSize: batchSize,
	}
}

// Drain applies op to every document in scope. Batches are searched and
// updated strictly in sequence until the search comes back empty. The
// number of documents changed is returned. Running a completed drain again
// changes nothing.
func (e *Engine) Drain(ctx context.Context, scope core.Scope, op Op, progress *Progress) (int64, error) {
	if progress == nil {
		progress = &Progress{}
	}
	scope = op.Narrow(scope)
	label := string(op)

	start := time.Now()
	defer func() {
		metrics.DrainDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	total := int64(0)
	for batchNo := 0; ; batchNo++ {
		batch, err := e.backend.FindDocuments(ctx, scope, e.batchSize)
		if err != nil {
			return total, errors.Wrap(err, "failed to fetch documents")
		}
		if batchNo == 0 {
			progress.max.Store(batch.Total)
		}

		if len(batch.Documents) == 0 {
			break
		}

		actions := make([]core.BulkAction, 0, len(batch.Documents))
		for _, doc := range batch.Documents {
			if action, ok := op.Action(doc); ok {
				actions = append(actions, action)
			}
		}
		if len(actions) == 0 {
			log.Debug("Bulk %s: batch %d has nothing to change", op, batchNo)
			break
		}

		result, err := e.backend.Bulk(ctx, actions)
		if err != nil {
			return total, errors.Wrap(err, "bulk request failed")
		}

		metrics.DrainBatchesTotal.WithLabelValues(label).Inc()
		metrics.DrainDocumentsTotal.WithLabelValues(label, "ok").Add(float64(result.Succeeded))
		metrics.DrainDocumentsTotal.WithLabelValues(label, "failed").Add(float64(len(result.Failed)))

		total += result.Succeeded
		progress.value.Add(result.Succeeded)

		if len(result.Failed) > 0 {
			log.Warning("Bulk %s: %d of %d documents failed", op,
				len(result.Failed), len(actions))
			if result.Succeeded == 0 {
				return total, errors.Wrap(ErrNoProgress, result.Failed[0].Error())
			}
		}
	}

	log.Debug("Bulk %s: %d documents changed", op, total)

	return total, nil
}
