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

package appcontext

import (
	"github.com/jasonish/evebox-triage/bulk"
	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/snapshot"
	"github.com/jasonish/evebox-triage/triage"
)

type Config struct {
	Http struct {
		RequestLogging bool
	}

	Console triage.Config
}

// AppContext holds the process wide services shared by all sessions.
type AppContext struct {
	Config Config

	// The interface to the underlying datastore.
	DataStore core.Datastore

	// Queue runs the bulk jobs of all sessions.
	Queue *bulk.Queue

	Snapshots snapshot.Cache
}

// NewConsole creates a triage console for a session.
func (c *AppContext) NewConsole(id string) *triage.Console {
	return triage.NewConsole(id, c.DataStore, c.Queue, c.Snapshots, c.Config.Console)
}
