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

package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/metrics"
	"golang.org/x/sync/syncmap"
)

const DefaultHeader = "X-EveBox-Session-ID"

// Default session timeout, 1 hour.
const DefaultTimeout = time.Hour

type SessionStore struct {
	Header   string
	Timeout  time.Duration
	sessions syncmap.Map
}

func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SessionStore{
		Header:  DefaultHeader,
		Timeout: timeout,
	}
}

// Reap will remove expired sessions and returns the number removed.
func (s *SessionStore) Reap() int {
	now := time.Now()
	count := 0

	s.sessions.Range(func(key interface{}, value interface{}) bool {
		session, ok := value.(*Session)
		if !ok {
			log.Warning("Deleting session that didn't assert as session type")
			s.sessions.Delete(key)
			return true
		}
		if now.After(session.GetExpires()) {
			log.InfoWithFields(log.Fields{
				"session": session.Id,
				"addr":    session.RemoteAddr,
			}, "Expiring session")
			s.Delete(session)
			count++
		}
		return true
	})

	return count
}

// Get returns the session for id extending its expiry, or nil.
func (s *SessionStore) Get(id string) *Session {
	val, ok := s.sessions.Load(id)
	if !ok {
		return nil
	}
	session := val.(*Session)
	s.setSessionTimeout(session)
	return session
}

func (s *SessionStore) Put(session *Session) {
	if _, loaded := s.sessions.LoadOrStore(session.Id, session); !loaded {
		metrics.ConsoleSessions.Inc()
		return
	}
	s.sessions.Store(session.Id, session)
}

func (s *SessionStore) Delete(session *Session) {
	if _, ok := s.sessions.Load(session.Id); ok {
		s.sessions.Delete(session.Id)
		metrics.ConsoleSessions.Dec()
	}
}

func (s *SessionStore) Len() int {
	count := 0
	s.sessions.Range(func(key interface{}, value interface{}) bool {
		count++
		return true
	})
	return count
}

func (s *SessionStore) GenerateID() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatalf("Failed to generate session ID: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

func (s *SessionStore) setSessionTimeout(session *Session) {
	session.UpdateExpires(time.Now().Add(s.Timeout))
}

// NewSession creates a new session with a session ID. It DOES NOT add the
// session to the session store.
func (s *SessionStore) NewSession() *Session {
	session := NewSession(s.GenerateID())
	s.setSessionTimeout(session)
	return session
}

// FindSession looks up the session of a request by the session header,
// falling back to a cookie of the same name.
func (s *SessionStore) FindSession(r *http.Request) *Session {
	sessionId := r.Header.Get(s.Header)

	if sessionId == "" {
		cookie, err := r.Cookie(s.Header)
		if err == nil && cookie.Value != "" {
			sessionId = cookie.Value
		}
	}

	if sessionId != "" {
		return s.Get(sessionId)
	}
	return nil
}
