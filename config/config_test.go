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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	r := require.New(t)
	config, err := Load(viper.New(), "")
	r.NoError(err)

	r.Equal(5636, config.Http.Port)
	r.Equal(DatastoreElasticSearch, config.Datastore)
	r.Equal("http://localhost:9200", config.ElasticSearch.URL)
	r.Equal("logstash-*", config.ElasticSearch.Index)
	r.Equal("keyword", config.ElasticSearch.Keyword)
	r.Equal(60*time.Second, config.ElasticSearch.Timeout)
	r.Equal(1000, config.Bulk.BatchSize)
	r.Equal(4, config.Bulk.Concurrency)
	r.Equal(100, config.Console.WindowSize)
	r.Equal("24h", config.Console.DefaultTimeRange)
	r.Equal(SnapshotMemory, config.Snapshot.Backend)
	r.Equal(time.Hour, config.Snapshot.TTL)
}

func TestConfigFile(t *testing.T) {
	r := require.New(t)
	filename := filepath.Join(t.TempDir(), "evebox.yaml")
	r.NoError(os.WriteFile(filename, []byte(`
datastore: memory
memory:
  eve-file: /var/log/suricata/eve.json
bulk:
  batch-size: 500
console:
  default-time-range: 7d
snapshot:
  backend: redis
  ttl: 5m
  redis:
    addr: redis:6379
    db: 2
`), 0644))

	config, err := Load(viper.New(), filename)
	r.NoError(err)
	r.Equal(DatastoreMemory, config.Datastore)
	r.Equal("/var/log/suricata/eve.json", config.Memory.EveFile)
	r.Equal(500, config.Bulk.BatchSize)
	r.Equal(4, config.Bulk.Concurrency)
	r.Equal("7d", config.Console.DefaultTimeRange)
	r.Equal(SnapshotRedis, config.Snapshot.Backend)
	r.Equal(5*time.Minute, config.Snapshot.TTL)
	r.Equal("redis:6379", config.Snapshot.Redis.Addr)
	r.Equal(2, config.Snapshot.Redis.DB)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("EVEBOX_ELASTICSEARCH_URL", "http://es:9200")
	t.Setenv("EVEBOX_BULK_CONCURRENCY", "8")
	t.Setenv("EVEBOX_CONSOLE_WINDOW_SIZE", "50")

	config, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://es:9200", config.ElasticSearch.URL)
	assert.Equal(t, 8, config.Bulk.Concurrency)
	assert.Equal(t, 50, config.Console.WindowSize)
}

func TestFlags(t *testing.T) {
	t.Setenv("EVEBOX_HTTP_PORT", "8000")

	v := viper.New()
	flagset := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(v, flagset)
	require.NoError(t, flagset.Parse([]string{
		"--port", "9000", "--datastore", "memory", "-k",
	}))

	config, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 9000, config.Http.Port)
	assert.Equal(t, DatastoreMemory, config.Datastore)
	assert.True(t, config.ElasticSearch.NoCheckCertificate)

	// Unset flags do not hide the defaults.
	assert.Equal(t, "logstash-*", config.ElasticSearch.Index)
}

func TestValidate(t *testing.T) {
	t.Setenv("EVEBOX_DATASTORE", "sqlite")
	_, err := Load(viper.New(), "")
	assert.Error(t, err)
}
