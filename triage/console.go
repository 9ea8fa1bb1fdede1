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

package triage

import (
	"context"
	"sync"
	"time"

	"github.com/jasonish/evebox-triage/alertstore"
	"github.com/jasonish/evebox-triage/bulk"
	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/metrics"
	"github.com/jasonish/evebox-triage/snapshot"
	"github.com/pkg/errors"
)

const DefaultTimeRange = "24h"

// TimeRangeAll disables the time range of a request.
const TimeRangeAll = "all"

var ErrNoRows = errors.New("no rows")

type Config struct {
	WindowSize       int
	DefaultTimeRange string
}

type Request struct {
	View        View   `json:"view"`
	QueryString string `json:"queryString"`
	TimeRange   string `json:"timeRange"`
}

// Console is the server side state of one user working through alerts: the
// current view and query, the alert groups found and the user's position
// in them.
type Console struct {
	ID string

	datastore core.AlertQuerier
	queue     *bulk.Queue
	snapshots snapshot.Cache
	store     *alertstore.Store
	config    Config

	mu            sync.Mutex
	request       Request
	options       core.AlertQueryOptions
	notifications []Notification

	watchers sync.WaitGroup
}

func NewConsole(id string, datastore core.AlertQuerier, queue *bulk.Queue,
	snapshots snapshot.Cache, config Config) *Console {
	if config.DefaultTimeRange == "" {
		config.DefaultTimeRange = DefaultTimeRange
	}
	c := &Console{
		ID:        id,
		datastore: datastore,
		queue:     queue,
		snapshots: snapshots,
		store:     alertstore.New(config.WindowSize),
		config:    config,
		request:   Request{View: ViewInbox},
	}
	c.options = c.AlertQueryOptions(c.request)
	return c
}

func (c *Console) Store() *alertstore.Store {
	return c.store
}

func (c *Console) Request() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request
}

func (c *Console) View() View {
	return c.Request().View
}

// AlertQueryOptions returns the options a request is queried with.
func (c *Console) AlertQueryOptions(request Request) core.AlertQueryOptions {
	mustHave, mustNotHave := request.View.Tags()
	options := core.AlertQueryOptions{
		QueryString:     request.QueryString,
		MustHaveTags:    mustHave,
		MustNotHaveTags: mustNotHave,
		TimeRange:       request.TimeRange,
	}
	switch options.TimeRange {
	case "":
		options.TimeRange = c.config.DefaultTimeRange
	case TimeRangeAll:
		options.TimeRange = ""
	}
	return options
}

// Refresh runs the query of the request and loads the result into the
// store.
func (c *Console) Refresh(ctx context.Context, request Request) error {
	if request.View == "" {
		request.View = ViewInbox
	}
	options := c.AlertQueryOptions(request)

	start := time.Now()
	groups, err := c.datastore.AlertQuery(ctx, options)
	if err != nil {
		return errors.Wrap(err, "alert query failed")
	}
	metrics.AlertQueryDuration.WithLabelValues(datastoreName(c.datastore)).
		Observe(time.Since(start).Seconds())

	c.mu.Lock()
	c.request = request
	c.options = options
	c.mu.Unlock()

	c.store.Load(groups)

	log.Debug("Console %s: %s view loaded %d alert groups", c.ID,
		request.View, len(groups))

	return nil
}

func datastoreName(querier core.AlertQuerier) string {
	if named, ok := querier.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}

func (c *Console) Archive(ctx context.Context, rows []*alertstore.Row) ([]*bulk.Job, error) {
	return c.Apply(ctx, bulk.OpArchive, rows)
}

func (c *Console) Escalate(ctx context.Context, rows []*alertstore.Row) ([]*bulk.Job, error) {
	return c.Apply(ctx, bulk.OpEscalate, rows)
}

func (c *Console) DeEscalate(ctx context.Context, rows []*alertstore.Row) ([]*bulk.Job, error) {
	return c.Apply(ctx, bulk.OpDeEscalate, rows)
}

func (c *Console) Delete(ctx context.Context, rows []*alertstore.Row) ([]*bulk.Job, error) {
	return c.Apply(ctx, bulk.OpDelete, rows)
}

// ApplySelected applies op to the selected rows.
func (c *Console) ApplySelected(ctx context.Context, op bulk.Op) ([]*bulk.Job, error) {
	rows := c.store.SelectedRows()
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return c.Apply(ctx, op, rows)
}

// ApplyActive applies op to the row under the cursor.
func (c *Console) ApplyActive(ctx context.Context, op bulk.Op) ([]*bulk.Job, error) {
	row := c.store.ActiveRow()
	if row == nil {
		return nil, ErrNoRows
	}
	return c.Apply(ctx, op, []*alertstore.Row{row})
}

// Apply submits one bulk job per row and updates the rows right away
// without waiting for the jobs. Rows that leave the view are removed and
// the window is filled again once the jobs are done. Failed jobs are
// reported as notifications, the store is corrected by the next refresh.
func (c *Console) Apply(ctx context.Context, op bulk.Op, rows []*alertstore.Row) ([]*bulk.Job, error) {
	c.mu.Lock()
	request := c.request
	options := c.options
	c.mu.Unlock()

	if err := request.View.Check(op); err != nil {
		c.notify(LevelWarning, "", "Can not %s in the %s view", op, request.View)
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	// The group timestamps bound the scope instead of the time range.
	options.TimeRange = ""

	jobs := make([]*bulk.Job, 0, len(rows))
	for _, row := range rows {
		params, err := row.Group.QueryParams()
		if err != nil {
			return jobs, err
		}
		job, err := c.queue.Submit(op, core.ScopeForGroup(options, params))
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
		c.watch(job, row.Group.Event.Signature())

		switch {
		case request.View.Removes(op):
			c.store.RemoveRow(row)
		case op == bulk.OpEscalate:
			c.store.Update(row, func(group *core.AlertGroup) {
				group.SetEscalated(true)
			})
		case op == bulk.OpDeEscalate:
			c.store.Update(row, func(group *core.AlertGroup) {
				group.SetEscalated(false)
			})
		case op == bulk.OpArchive:
			c.store.Update(row, func(group *core.AlertGroup) {
				group.SetArchived()
			})
		}
	}

	if request.View.Removes(op) {
		c.settleAfter(jobs, request)
	}

	return jobs, nil
}

// watch reports the failure of a job as a notification.
func (c *Console) watch(job *bulk.Job, signature string) {
	c.watchers.Add(1)
	go func() {
		defer c.watchers.Done()
		<-job.Done()
		if err := job.Err(); err != nil {
			c.notify(LevelError, job.ID, "Failed to %s %q: %v", job.Op,
				signature, err)
		}
	}()
}

// settleAfter fills the window shortened by removed rows once all the jobs
// are done. If no rows are left the request is refreshed instead.
func (c *Console) settleAfter(jobs []*bulk.Job, request Request) {
	c.watchers.Add(1)
	go func() {
		defer c.watchers.Done()
		for _, job := range jobs {
			<-job.Done()
		}
		if c.store.Len() > 0 {
			c.store.Refill()
			return
		}
		if err := c.Refresh(context.Background(), request); err != nil {
			log.Error("Console %s: refresh failed: %v", c.ID, err)
			c.notify(LevelError, "", "Refresh failed: %v", err)
		}
	}()
}

// Wait blocks until the background work of submitted jobs has finished.
func (c *Console) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.watchers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveState saves the store so it can be restored on returning to route.
func (c *Console) SaveState(ctx context.Context, route string) error {
	c.mu.Lock()
	request := c.request
	options := c.options
	c.mu.Unlock()
	return c.snapshots.Put(ctx, snapshot.Key(c.ID, route), snapshot.Snapshot{
		Route:       route,
		QueryString: request.QueryString,
		View:        string(request.View),
		TimeRange:   options.TimeRange,
		State:       c.store.State(),
	})
}

// RestoreState restores the store saved for route if it was saved for the
// same view, query string and time range. Otherwise the saved state is
// dropped and the request is refreshed. True is returned if the state was
// restored.
func (c *Console) RestoreState(ctx context.Context, route string, request Request) (bool, error) {
	if request.View == "" {
		request.View = ViewInbox
	}

	saved, ok, err := c.snapshots.Pop(ctx, snapshot.Key(c.ID, route))
	if err != nil {
		log.Warning("Console %s: failed to get snapshot: %v", c.ID, err)
		ok = false
	}

	options := c.AlertQueryOptions(request)
	if ok && saved.Matches(route, request.QueryString) &&
		saved.View == string(request.View) && saved.TimeRange == options.TimeRange {
		c.mu.Lock()
		c.request = request
		c.options = options
		c.mu.Unlock()
		c.store.Restore(saved.State)
		return true, nil
	}

	return false, c.Refresh(ctx, request)
}
