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

package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/jasonish/evebox-triage/appcontext"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/server/api"
	"github.com/jasonish/evebox-triage/server/router"
	"github.com/jasonish/evebox-triage/server/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// How often expired sessions and finished jobs are reaped.
const reapInterval = time.Minute

type Config struct {
	SessionTimeout time.Duration
	JobMaxAge      time.Duration
}

type Server struct {
	appContext   *appcontext.AppContext
	config       Config
	router       *router.Router
	sessionStore *sessions.SessionStore
	httpServer   *http.Server
	handler      http.Handler
}

func NewServer(appContext *appcontext.AppContext, config Config) *Server {
	if config.JobMaxAge <= 0 {
		config.JobMaxAge = time.Hour
	}
	server := &Server{
		appContext:   appContext,
		config:       config,
		router:       router.NewRouter(),
		sessionStore: sessions.NewSessionStore(config.SessionTimeout),
	}
	server.registerHandlers()
	return server
}

func (s *Server) registerHandlers() {
	apiContext := api.NewApiContext(s.appContext, s.sessionStore)
	apiContext.InitRoutes(s.router.Subrouter("/api/1"))

	s.router.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = s.router
	if s.appContext.Config.Http.RequestLogging {
		handler = handlers.CombinedLoggingHandler(os.Stdout, handler)
	}
	handler = handlers.CompressHandler(handler)
	handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(handler)
	s.handler = handler
}

// Handler returns the root HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Sessions() *sessions.SessionStore {
	return s.sessionStore
}

// Start serves HTTP on addr until the server is shutdown. Expired sessions
// and finished jobs are reaped in the background until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.reaper(ctx)

	log.Info("Listening on %s", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) reaper(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

func (s *Server) reap() {
	sessions := s.sessionStore.Reap()
	jobs := s.appContext.Queue.Reap(s.config.JobMaxAge)
	if sessions > 0 || jobs > 0 {
		log.Debug("Reaped %d sessions and %d jobs", sessions, jobs)
	}
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error("Recovered from panic: %v", v)
}
