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
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jasonish/evebox-triage/appcontext"
	"github.com/jasonish/evebox-triage/bulk"
	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/metrics"
	"github.com/jasonish/evebox-triage/server/router"
	"github.com/jasonish/evebox-triage/server/sessions"
	"github.com/jasonish/evebox-triage/triage"
	"github.com/pkg/errors"
)

type ApiError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e ApiError) Error() string {
	return e.Message
}

type httpErrorResponse struct {
	error
	status int
}

func (r *httpErrorResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"status": r.status,
		"error": map[string]interface{}{
			"message": r.Error(),
		},
	})
}

func httpNotFoundResponse(message string) *httpErrorResponse {
	return &httpErrorResponse{
		error:  errors.New(message),
		status: http.StatusNotFound,
	}
}

func newHttpErrorResponse(statusCode int, err error) *httpErrorResponse {
	return &httpErrorResponse{
		error:  err,
		status: statusCode,
	}
}

// errorStatus maps errors from the triage layers to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidForView), errors.Is(err, triage.ErrNoRows):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, bulk.ErrQueueClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type apiHandlerFunc func(w *ResponseWriter, r *http.Request) error

func apiFuncWrapper(route string, handler apiHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := NewResponseWriter(w)
		defer func() {
			metrics.HTTPRequestsTotal.WithLabelValues(route,
				strconv.Itoa(rw.Status())).Inc()
		}()

		err := handler(rw, r)
		if err == nil {
			return
		}

		rw.Header().Set("content-type", "application/json")
		encoder := json.NewEncoder(rw)

		switch err := err.(type) {
		case ApiError:
			rw.WriteHeader(err.Status)
			encoder.Encode(err)
		case *httpErrorResponse:
			rw.WriteHeader(err.status)
			encoder.Encode(err)
		default:
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				log.Error("%s: %v", route, err)
			}
			rw.WriteHeader(status)
			encoder.Encode(&httpErrorResponse{
				error:  err,
				status: status,
			})
		}
	})
}

// apiRouter wraps the provided router with some helper functions for
// registering API handlers of type apiHandlerFunc.
type apiRouter struct {
	router *router.Router
}

func (r *apiRouter) GET(path string, handler apiHandlerFunc) {
	r.router.GET(path, apiFuncWrapper(path, handler))
}

func (r *apiRouter) POST(path string, handler apiHandlerFunc) {
	r.router.POST(path, apiFuncWrapper(path, handler))
}

type ApiContext struct {
	appContext   *appcontext.AppContext
	sessionStore *sessions.SessionStore
}

func NewApiContext(appContext *appcontext.AppContext,
	sessionStore *sessions.SessionStore) *ApiContext {
	return &ApiContext{
		appContext:   appContext,
		sessionStore: sessionStore,
	}
}

func (c *ApiContext) InitRoutes(router *router.Router) {
	r := apiRouter{router}

	r.GET("/alerts", c.AlertsHandler)
	r.POST("/alert-group/archive", c.AlertGroupHandler(bulk.OpArchive))
	r.POST("/alert-group/star", c.AlertGroupHandler(bulk.OpEscalate))
	r.POST("/alert-group/unstar", c.AlertGroupHandler(bulk.OpDeEscalate))
	r.POST("/alert-group/delete", c.AlertGroupHandler(bulk.OpDelete))

	r.GET("/jobs", c.JobsHandler)
	r.GET("/jobs/{id}", c.JobHandler)

	r.GET("/version", c.VersionHandler)
	r.GET("/config", c.ConfigHandler)

	r.GET("/console", c.withConsole(c.ConsoleHandler))
	r.POST("/console/refresh", c.withConsole(c.ConsoleRefreshHandler))
	r.POST("/console/{direction:older|newer|oldest|newest}",
		c.withConsole(c.ConsoleNavigateHandler))
	r.POST("/console/cursor", c.withConsole(c.ConsoleCursorHandler))
	r.POST("/console/select", c.withConsole(c.ConsoleSelectHandler))
	r.POST("/console/sort", c.withConsole(c.ConsoleSortHandler))
	r.POST("/console/{op:archive|escalate|deescalate|delete}",
		c.withConsole(c.ConsoleApplyHandler))
	r.POST("/console/save", c.withConsole(c.ConsoleSaveHandler))
	r.POST("/console/restore", c.withConsole(c.ConsoleRestoreHandler))
	r.GET("/console/notifications", c.withConsole(c.ConsoleNotificationsHandler))
}

type contextKey int

const sessionKey contextKey = iota

// withConsole attaches the session of the request to its context, creating
// a session with a new console if the client does not have one. The
// session ID is returned in a header and a cookie.
func (c *ApiContext) withConsole(handler apiHandlerFunc) apiHandlerFunc {
	return func(w *ResponseWriter, r *http.Request) error {
		session := c.sessionStore.FindSession(r)
		if session == nil {
			session = c.sessionStore.NewSession()
			session.RemoteAddr = r.RemoteAddr
			session.Console = c.appContext.NewConsole(session.Id)
			c.sessionStore.Put(session)
			log.InfoWithFields(log.Fields{
				"session": session.Id,
				"addr":    session.RemoteAddr,
			}, "Created console session")
		}
		w.Header().Set(c.sessionStore.Header, session.Id)
		http.SetCookie(w, &http.Cookie{
			Name:     c.sessionStore.Header,
			Value:    session.Id,
			Path:     "/",
			HttpOnly: true,
		})
		ctx := context.WithValue(r.Context(), sessionKey, session)
		return handler(w, r.WithContext(ctx))
	}
}

func sessionFromRequest(r *http.Request) *sessions.Session {
	session, _ := r.Context().Value(sessionKey).(*sessions.Session)
	return session
}
