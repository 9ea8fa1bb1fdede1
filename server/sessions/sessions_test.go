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
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionExpire(t *testing.T) {
	r := require.New(t)

	store := NewSessionStore(time.Hour)
	session := store.NewSession()
	store.Put(session)

	r.NotNil(store.Get(session.Id), "session should not be nil")

	// Reap, this is too soon for a timeout...
	r.Equal(0, store.Reap())
	r.NotNil(store.Get(session.Id), "session should not be nil")

	// Force expiration.
	session.UpdateExpires(time.Now().Add(-time.Second))
	r.Equal(1, store.Reap())
	r.Nil(store.Get(session.Id), "session should be nil")
	r.Equal(0, store.Len())
}

func TestSessionExpireUpdate(t *testing.T) {
	r := require.New(t)
	store := NewSessionStore(time.Hour)

	// Create a session, the expiration will be sometime in the future.
	now := time.Now()
	session := store.NewSession()
	expiration := session.GetExpires()
	r.True(expiration.After(now))

	// Store the session. The expiration should not be updated.
	store.Put(session)
	r.Equal(expiration, session.GetExpires())

	// Get the session, this should update the expiration time.
	time.Sleep(time.Millisecond)
	session = store.Get(session.Id)
	r.NotNil(session)
	r.NotEqual(expiration, session.GetExpires())
}

func TestFindSession(t *testing.T) {
	r := require.New(t)
	store := NewSessionStore(0)
	session := store.NewSession()
	store.Put(session)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Nil(store.FindSession(request))

	request.Header.Set(DefaultHeader, session.Id)
	r.Equal(session, store.FindSession(request))

	request = httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(&http.Cookie{Name: DefaultHeader, Value: session.Id})
	r.Equal(session, store.FindSession(request))

	request.Header.Set(DefaultHeader, "unknown")
	r.Nil(store.FindSession(request))
}

func TestGenerateID(t *testing.T) {
	store := NewSessionStore(0)
	ids := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := store.GenerateID()
		require.False(t, ids[id])
		require.NotContains(t, id, "=")
		ids[id] = true
	}
}
