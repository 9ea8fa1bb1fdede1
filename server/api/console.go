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

	"github.com/gorilla/mux"
	"github.com/jasonish/evebox-triage/alertstore"
	"github.com/jasonish/evebox-triage/bulk"
	"github.com/jasonish/evebox-triage/triage"
	"github.com/pkg/errors"
)

type ConsoleResponse struct {
	Session        string             `json:"session"`
	Request        triage.Request     `json:"request"`
	Rows           []*alertstore.Row  `json:"rows"`
	Offset         int                `json:"offset"`
	Total          int                `json:"total"`
	WindowSize     int                `json:"windowSize"`
	ActiveRowIndex int                `json:"activeRowIndex"`
	ScrollOffset   int                `json:"scrollOffset"`
	SortBy         alertstore.SortKey `json:"sortBy"`
	SortOrder      string             `json:"sortOrder"`
}

func newConsoleResponse(console *triage.Console) ConsoleResponse {
	store := console.Store()
	sortBy, sortOrder := store.Sort()
	return ConsoleResponse{
		Session:        console.ID,
		Request:        console.Request(),
		Rows:           store.Rows(),
		Offset:         store.Offset(),
		Total:          len(store.AllRows()),
		WindowSize:     store.WindowSize(),
		ActiveRowIndex: store.ActiveRowIndex(),
		ScrollOffset:   store.ScrollOffset(),
		SortBy:         sortBy,
		SortOrder:      sortOrder,
	}
}

func consoleFromRequest(r *http.Request) *triage.Console {
	return sessionFromRequest(r).Console
}

func badRequest(err error) error {
	return newHttpErrorResponse(http.StatusBadRequest, err)
}

// ConsoleHandler returns the current window of the console.
func (c *ApiContext) ConsoleHandler(w *ResponseWriter, r *http.Request) error {
	return w.OkJSON(newConsoleResponse(consoleFromRequest(r)))
}

func (c *ApiContext) ConsoleRefreshHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	var request triage.Request
	if err := DecodeRequestBody(r, &request); err != nil {
		return err
	}
	view, err := triage.ParseView(string(request.View))
	if err != nil {
		return badRequest(err)
	}
	request.View = view
	if err := validateQueryString(request.QueryString); err != nil {
		return err
	}

	if err := console.Refresh(r.Context(), request); err != nil {
		return err
	}
	return w.OkJSON(newConsoleResponse(console))
}

func (c *ApiContext) ConsoleNavigateHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	store := console.Store()
	switch mux.Vars(r)["direction"] {
	case "older":
		store.Older()
	case "newer":
		store.Newer()
	case "oldest":
		store.Oldest()
	case "newest":
		store.Newest()
	}
	return w.OkJSON(newConsoleResponse(console))
}

type cursorRequest struct {
	Index *int `json:"index"`
	Delta *int `json:"delta"`
}

func (c *ApiContext) ConsoleCursorHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	var request cursorRequest
	if err := DecodeRequestBody(r, &request); err != nil {
		return err
	}
	switch {
	case request.Index != nil:
		console.Store().SetActiveRow(*request.Index)
	case request.Delta != nil:
		console.Store().MoveActive(*request.Delta)
	default:
		return badRequest(errors.New("index or delta required"))
	}
	return w.OkJSON(newConsoleResponse(console))
}

type selectRequest struct {
	Index *int `json:"index"`
	All   bool `json:"all"`
	None  bool `json:"none"`
}

func (c *ApiContext) ConsoleSelectHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	var request selectRequest
	if err := DecodeRequestBody(r, &request); err != nil {
		return err
	}
	store := console.Store()
	switch {
	case request.All:
		store.SelectAll()
	case request.None:
		store.DeselectAll()
	case request.Index != nil:
		row := store.Row(*request.Index)
		if row == nil {
			return httpNotFoundResponse("row not found")
		}
		store.ToggleSelected(row)
	default:
		return badRequest(errors.New("index, all or none required"))
	}
	return w.OkJSON(newConsoleResponse(console))
}

type sortRequest struct {
	Key string `json:"key"`
}

func (c *ApiContext) ConsoleSortHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	var request sortRequest
	if err := DecodeRequestBody(r, &request); err != nil {
		return err
	}
	key, err := alertstore.ParseSortKey(request.Key)
	if err != nil {
		return badRequest(err)
	}
	console.Store().SortBy(key)
	return w.OkJSON(newConsoleResponse(console))
}

type applyRequest struct {
	// Rows is "selected" (the default) or "active".
	Rows string `json:"rows"`
}

// ConsoleApplyHandler submits a bulk operation for the selected or active
// rows. It returns as soon as the jobs are queued.
func (c *ApiContext) ConsoleApplyHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	op, err := bulk.ParseOp(mux.Vars(r)["op"])
	if err != nil {
		return badRequest(err)
	}

	request := applyRequest{}
	if r.ContentLength != 0 {
		if err := DecodeRequestBody(r, &request); err != nil {
			return err
		}
	}

	var jobs []*bulk.Job
	switch request.Rows {
	case "", "selected":
		jobs, err = console.ApplySelected(r.Context(), op)
	case "active":
		jobs, err = console.ApplyActive(r.Context(), op)
	default:
		return badRequest(errors.Errorf("bad rows: %s", request.Rows))
	}
	if err != nil {
		return err
	}

	statuses := make([]bulk.JobStatus, 0, len(jobs))
	for _, job := range jobs {
		statuses = append(statuses, job.Status())
	}

	return w.OkJSON(map[string]interface{}{
		"jobs":    statuses,
		"console": newConsoleResponse(console),
	})
}

type saveRequest struct {
	Route string `json:"route"`
}

func (c *ApiContext) ConsoleSaveHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	var request saveRequest
	if err := DecodeRequestBody(r, &request); err != nil {
		return err
	}
	if request.Route == "" {
		return badRequest(errors.New("route required"))
	}
	if err := console.SaveState(r.Context(), request.Route); err != nil {
		return err
	}
	return w.Ok()
}

type restoreRequest struct {
	Route string `json:"route"`
	triage.Request
}

// ConsoleRestoreHandler restores the state saved for a route, or refreshes
// the request if there is no usable saved state.
func (c *ApiContext) ConsoleRestoreHandler(w *ResponseWriter, r *http.Request) error {
	console := consoleFromRequest(r)
	var request restoreRequest
	if err := DecodeRequestBody(r, &request); err != nil {
		return err
	}
	if request.Route == "" {
		return badRequest(errors.New("route required"))
	}
	view, err := triage.ParseView(string(request.View))
	if err != nil {
		return badRequest(err)
	}
	request.View = view
	if err := validateQueryString(request.QueryString); err != nil {
		return err
	}

	restored, err := console.RestoreState(r.Context(), request.Route, request.Request)
	if err != nil {
		return err
	}
	return w.OkJSON(map[string]interface{}{
		"restored": restored,
		"console":  newConsoleResponse(console),
	})
}

func (c *ApiContext) ConsoleNotificationsHandler(w *ResponseWriter, r *http.Request) error {
	return w.OkJSON(map[string]interface{}{
		"notifications": consoleFromRequest(r).Notifications(),
	})
}
