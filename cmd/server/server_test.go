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
	"os"
	"path/filepath"
	"testing"

	"github.com/jasonish/evebox-triage/config"
	"github.com/jasonish/evebox-triage/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewMemoryDatastoreLogsLoadOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	t.Cleanup(log.SetLogger(zap.New(core)))

	filename := filepath.Join(t.TempDir(), "eve.json")
	require.NoError(t, os.WriteFile(filename, []byte(
		`{"timestamp":"2026-01-01T00:00:00.000000+0000","event_type":"alert","src_ip":"10.0.0.1","dest_ip":"10.0.0.2","alert":{"signature_id":1,"signature":"SIG 1"}}`+"\n"),
		0644))

	datastore, err := newDatastore(context.Background(), &config.Config{
		Datastore: config.DatastoreMemory,
		Memory:    config.MemoryConfig{EveFile: filename},
	})
	require.NoError(t, err)
	assert.Equal(t, "memory", datastore.Name())
	assert.Equal(t, 1, logs.FilterMessageSnippet("Loaded 1 events").Len())
}

func TestNewMemorySnapshotCache(t *testing.T) {
	cache, err := newSnapshotCache(context.Background(), &config.Config{
		Snapshot: config.SnapshotConfig{Backend: config.SnapshotMemory},
	})
	require.NoError(t, err)
	defer cache.Close()
	_, ok, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
