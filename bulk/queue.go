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
	"math/rand"
	"sync"
	"time"

	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/metrics"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const DefaultConcurrency = 4

var ErrQueueClosed = errors.New("bulk: queue closed")

type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Job is a bulk operation submitted to the queue.
type Job struct {
	ID       string
	Op       Op
	Scope    core.Scope
	Progress Progress

	mu        sync.Mutex
	state     State
	err       error
	submitted time.Time
	finished  time.Time
	done      chan struct{}
}

// JobStatus is a point in time view of a job.
type JobStatus struct {
	ID        string    `json:"id"`
	Op        Op        `json:"op"`
	State     State     `json:"state"`
	Value     int64     `json:"value"`
	Max       int64     `json:"max"`
	Error     string    `json:"error,omitempty"`
	Submitted time.Time `json:"submitted"`
	Finished  time.Time `json:"finished,omitempty"`
}

func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	status := JobStatus{
		ID:        j.ID,
		Op:        j.Op,
		State:     j.state,
		Value:     j.Progress.Value(),
		Max:       j.Progress.Max(),
		Submitted: j.submitted,
		Finished:  j.finished,
	}
	if j.err != nil {
		status.Error = j.err.Error()
	}
	return status
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job has finished, returning its error, or until
// the context is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) setState(state State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = state
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	j.err = err
	j.finished = time.Now()
	if err != nil {
		j.state = StateFailed
	} else {
		j.state = StateDone
	}
	j.mu.Unlock()
	metrics.JobsTotal.WithLabelValues(string(j.Op), string(j.State())).Inc()
	close(j.done)
}

// Queue runs bulk jobs in submission order with at most a fixed number
// running at once. A job that fails does not affect other jobs.
type Queue struct {
	engine *Engine
	sem    *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*Job
	order   []*Job
	pending []*Job
	closed  bool
	notify  chan struct{}

	// The entropy source for ulid generation.
	entropy *rand.Rand

	dispatcher sync.WaitGroup
	running    sync.WaitGroup
}

func NewQueue(engine *Engine, concurrency int) *Queue {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		engine:  engine,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		ctx:     ctx,
		cancel:  cancel,
		jobs:    map[string]*Job{},
		notify:  make(chan struct{}, 1),
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	q.dispatcher.Add(1)
	go q.dispatch()
	return q
}

// Submit queues a drain of op over scope. Jobs run with the queue's own
// context, so a caller going away does not cancel its job.
func (q *Queue) Submit(op Op, scope core.Scope) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	now := time.Now()
	job := &Job{
		ID:        ulid.MustNew(ulid.Timestamp(now), q.entropy).String(),
		Op:        op,
		Scope:     scope,
		state:     StatePending,
		submitted: now,
		done:      make(chan struct{}),
	}
	q.jobs[job.ID] = job
	q.order = append(q.order, job)
	q.pending = append(q.pending, job)
	metrics.JobsQueued.Inc()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	log.Debug("Queued bulk job %s: %s", job.ID, op)

	return job, nil
}

func (q *Queue) Get(id string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	return job, ok
}

// Jobs returns the status of all known jobs in submission order.
func (q *Queue) Jobs() []JobStatus {
	q.mu.Lock()
	jobs := make([]*Job, len(q.order))
	copy(jobs, q.order)
	q.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jobs))
	for _, job := range jobs {
		statuses = append(statuses, job.Status())
	}
	return statuses
}

// Reap forgets finished jobs older than maxAge and returns how many were
// removed.
func (q *Queue) Reap(maxAge time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	order := q.order[:0]
	reaped := 0
	for _, job := range q.order {
		status := job.Status()
		finished := status.State == StateDone || status.State == StateFailed
		if finished && status.Finished.Before(cutoff) {
			delete(q.jobs, job.ID)
			reaped++
			continue
		}
		order = append(order, job)
	}
	for i := len(order); i < len(q.order); i++ {
		q.order[i] = nil
	}
	q.order = order
	return reaped
}

// Close stops the queue. Running jobs are cancelled and jobs still
// pending fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.dispatcher.Wait()
	q.running.Wait()

	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, job := range pending {
		metrics.JobsQueued.Dec()
		job.finish(ErrQueueClosed)
	}
}

func (q *Queue) next() *Job {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return job
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.ctx.Done():
			return nil
		}
	}
}

func (q *Queue) dispatch() {
	defer q.dispatcher.Done()
	for {
		job := q.next()
		if job == nil {
			return
		}
		metrics.JobsQueued.Dec()

		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			job.finish(ErrQueueClosed)
			return
		}

		q.running.Add(1)
		go func() {
			defer q.running.Done()
			defer q.sem.Release(1)
			q.run(job)
		}()
	}
}

func (q *Queue) run(job *Job) {
	job.setState(StateRunning)
	metrics.JobsActive.Inc()
	defer metrics.JobsActive.Dec()

	count, err := q.engine.Drain(q.ctx, job.Scope, job.Op, &job.Progress)
	if err != nil {
		log.Error("Bulk job %s (%s) failed after %d documents: %v",
			job.ID, job.Op, count, err)
	} else {
		log.Info("Bulk job %s (%s) done: %d documents", job.ID, job.Op, count)
	}
	job.finish(err)
}
