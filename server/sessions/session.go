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
	"fmt"
	"sync"
	"time"

	"github.com/jasonish/evebox-triage/triage"
)

// Session ties a client to its triage console.
type Session struct {
	Id         string
	RemoteAddr string
	Console    *triage.Console

	lock    sync.Mutex
	expires time.Time
}

func NewSession(id string) *Session {
	return &Session{
		Id: id,
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("{Id: %s; RemoteAddr: %s}", s.Id, s.RemoteAddr)
}

func (s *Session) UpdateExpires(newExpire time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.expires = newExpire
}

func (s *Session) GetExpires() time.Time {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.expires
}
