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
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "EVEBOX"

const (
	DatastoreElasticSearch = "elasticsearch"
	DatastoreMemory        = "memory"

	SnapshotMemory = "memory"
	SnapshotRedis  = "redis"
)

type HttpConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	RequestLogging bool   `mapstructure:"request-logging"`
}

type ElasticSearchConfig struct {
	URL                string        `mapstructure:"url"`
	Index              string        `mapstructure:"index"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	NoCheckCertificate bool          `mapstructure:"no-check-certificate"`
	Keyword            string        `mapstructure:"keyword"`
	Timeout            time.Duration `mapstructure:"timeout"`
	AggSize            int           `mapstructure:"agg-size"`
}

type MemoryConfig struct {
	EveFile string `mapstructure:"eve-file"`
}

type BulkConfig struct {
	BatchSize   int `mapstructure:"batch-size"`
	Concurrency int `mapstructure:"concurrency"`
}

type ConsoleConfig struct {
	WindowSize       int           `mapstructure:"window-size"`
	DefaultTimeRange string        `mapstructure:"default-time-range"`
	SessionTimeout   time.Duration `mapstructure:"session-timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SnapshotConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type JobsConfig struct {
	MaxAge time.Duration `mapstructure:"max-age"`
}

type Config struct {
	Http          HttpConfig          `mapstructure:"http"`
	Datastore     string              `mapstructure:"datastore"`
	ElasticSearch ElasticSearchConfig `mapstructure:"elasticsearch"`
	Memory        MemoryConfig        `mapstructure:"memory"`
	Bulk          BulkConfig          `mapstructure:"bulk"`
	Jobs          JobsConfig          `mapstructure:"jobs"`
	Console       ConsoleConfig       `mapstructure:"console"`
	Snapshot      SnapshotConfig      `mapstructure:"snapshot"`
	Log           LogConfig           `mapstructure:"log"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5636)
	v.SetDefault("http.request-logging", false)

	v.SetDefault("datastore", DatastoreElasticSearch)

	v.SetDefault("elasticsearch.url", "http://localhost:9200")
	v.SetDefault("elasticsearch.index", "logstash-*")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.no-check-certificate", false)
	v.SetDefault("elasticsearch.keyword", "keyword")
	v.SetDefault("elasticsearch.timeout", 60*time.Second)
	v.SetDefault("elasticsearch.agg-size", 10000)

	v.SetDefault("memory.eve-file", "")

	v.SetDefault("bulk.batch-size", 1000)
	v.SetDefault("bulk.concurrency", 4)

	v.SetDefault("jobs.max-age", time.Hour)

	v.SetDefault("console.window-size", 100)
	v.SetDefault("console.default-time-range", "24h")
	v.SetDefault("console.session-timeout", time.Hour)

	v.SetDefault("snapshot.backend", SnapshotMemory)
	v.SetDefault("snapshot.ttl", time.Hour)
	v.SetDefault("snapshot.redis.addr", "localhost:6379")
	v.SetDefault("snapshot.redis.password", "")
	v.SetDefault("snapshot.redis.db", 0)

	v.SetDefault("log.level", "info")
}

// BindFlags registers the server command line options on flagset and binds
// them to their configuration keys.
func BindFlags(v *viper.Viper, flagset *pflag.FlagSet) {
	flagset.String("host", "0.0.0.0", "Host to bind to")
	v.BindPFlag("http.host", flagset.Lookup("host"))

	flagset.IntP("port", "p", 5636, "Port to bind to")
	v.BindPFlag("http.port", flagset.Lookup("port"))

	flagset.Bool("request-logging", false, "Log HTTP requests")
	v.BindPFlag("http.request-logging", flagset.Lookup("request-logging"))

	flagset.String("datastore", DatastoreElasticSearch, "Datastore (elasticsearch, memory)")
	v.BindPFlag("datastore", flagset.Lookup("datastore"))

	flagset.StringP("elasticsearch", "e", "", "Elastic Search URL")
	v.BindPFlag("elasticsearch.url", flagset.Lookup("elasticsearch"))

	flagset.StringP("index", "i", "", "Elastic Search index")
	v.BindPFlag("elasticsearch.index", flagset.Lookup("index"))

	flagset.StringP("username", "u", "", "Elastic Search username")
	v.BindPFlag("elasticsearch.username", flagset.Lookup("username"))

	flagset.String("password", "", "Elastic Search password")
	v.BindPFlag("elasticsearch.password", flagset.Lookup("password"))

	flagset.BoolP("no-check-certificate", "k", false, "Disable certificate check")
	v.BindPFlag("elasticsearch.no-check-certificate", flagset.Lookup("no-check-certificate"))

	flagset.String("eve-file", "", "Eve file to load into the memory datastore")
	v.BindPFlag("memory.eve-file", flagset.Lookup("eve-file"))

	flagset.String("snapshot-backend", SnapshotMemory, "Snapshot cache (memory, redis)")
	v.BindPFlag("snapshot.backend", flagset.Lookup("snapshot-backend"))

	flagset.String("redis", "", "Redis address for the snapshot cache")
	v.BindPFlag("snapshot.redis.addr", flagset.Lookup("redis"))

	flagset.String("log-level", "info", "Log level")
	v.BindPFlag("log.level", flagset.Lookup("log-level"))
}

// Load reads the configuration. Values come from, in order of precedence,
// flags, EVEBOX_ prefixed environment variables (a .env file in the current
// directory is loaded first), the optional configuration file and the
// defaults.
func Load(v *viper.Viper, filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", filename)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	switch c.Datastore {
	case DatastoreElasticSearch, DatastoreMemory:
	default:
		return errors.Errorf("unknown datastore: %s", c.Datastore)
	}
	switch c.Snapshot.Backend {
	case SnapshotMemory, SnapshotRedis:
	default:
		return errors.Errorf("unknown snapshot backend: %s", c.Snapshot.Backend)
	}
	if c.Bulk.BatchSize <= 0 {
		return errors.Errorf("bad bulk batch size: %d", c.Bulk.BatchSize)
	}
	if c.Bulk.Concurrency <= 0 {
		return errors.Errorf("bad bulk concurrency: %d", c.Bulk.Concurrency)
	}
	if c.Console.WindowSize <= 0 {
		return errors.Errorf("bad console window size: %d", c.Console.WindowSize)
	}
	return nil
}
