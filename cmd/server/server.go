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
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jasonish/evebox-triage/appcontext"
	"github.com/jasonish/evebox-triage/bulk"
	"github.com/jasonish/evebox-triage/config"
	"github.com/jasonish/evebox-triage/core"
	"github.com/jasonish/evebox-triage/elasticsearch"
	"github.com/jasonish/evebox-triage/log"
	"github.com/jasonish/evebox-triage/memory"
	"github.com/jasonish/evebox-triage/server"
	"github.com/jasonish/evebox-triage/snapshot"
	"github.com/jasonish/evebox-triage/triage"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var flagset *pflag.FlagSet

func usage() {
	usage := `Usage: evebox server [options]

Options:
`
	fmt.Fprint(os.Stderr, usage)
	flagset.PrintDefaults()
}

func configure(args []string) (*config.Config, error) {
	v := viper.New()

	flagset = pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagset.Usage = usage

	configFilename := flagset.StringP("config", "c", "", "Configuration file")
	verbose := flagset.BoolP("verbose", "v", false, "Verbose output")
	config.BindFlags(v, flagset)

	if err := flagset.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	// If no configuration was provided, see if evebox.yaml exists
	// in the current directory.
	if *configFilename == "" {
		if _, err := os.Stat("./evebox.yaml"); err == nil {
			*configFilename = "./evebox.yaml"
		}
	}
	if *configFilename != "" {
		log.Info("Using configuration file %s", *configFilename)
	}

	conf, err := config.Load(v, *configFilename)
	if err != nil {
		return nil, err
	}

	log.SetLevel(log.ParseLevel(conf.Log.Level))
	if *verbose {
		log.Info("Setting log level to debug")
		log.SetLevel(log.DEBUG)
	}

	return conf, nil
}

func newDatastore(ctx context.Context, conf *config.Config) (core.Datastore, error) {
	switch conf.Datastore {
	case config.DatastoreMemory:
		datastore := memory.NewDataStore()
		if conf.Memory.EveFile != "" {
			if _, err := datastore.LoadFile(conf.Memory.EveFile); err != nil {
				return nil, err
			}
		}
		return datastore, nil
	}

	es, err := elasticsearch.New(elasticsearch.Config{
		URL:                conf.ElasticSearch.URL,
		Index:              conf.ElasticSearch.Index,
		Username:           conf.ElasticSearch.Username,
		Password:           conf.ElasticSearch.Password,
		NoCheckCertificate: conf.ElasticSearch.NoCheckCertificate,
		Keyword:            conf.ElasticSearch.Keyword,
		Timeout:            conf.ElasticSearch.Timeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info("Elastic Search URL: %s; index: %s", conf.ElasticSearch.URL,
		es.Index())

	pingResponse, err := es.Ping(ctx)
	if err != nil {
		log.Error("Failed to ping Elastic Search: %v", err)
	} else {
		log.Info("Connected to Elastic Search (version: %s)",
			pingResponse.Version.Number)
	}

	return elasticsearch.NewDataStore(es, conf.ElasticSearch.AggSize), nil
}

func newSnapshotCache(ctx context.Context, conf *config.Config) (snapshot.Cache, error) {
	if conf.Snapshot.Backend == config.SnapshotRedis {
		cache, err := snapshot.NewRedisCache(ctx, snapshot.RedisConfig{
			Addr:     conf.Snapshot.Redis.Addr,
			Password: conf.Snapshot.Redis.Password,
			DB:       conf.Snapshot.Redis.DB,
			TTL:      conf.Snapshot.TTL,
		})
		if err != nil {
			return nil, err
		}
		return cache, nil
	}
	return snapshot.NewMemoryCache(conf.Snapshot.TTL), nil
}

func run(ctx context.Context, conf *config.Config) error {
	datastore, err := newDatastore(ctx, conf)
	if err != nil {
		return errors.Wrap(err, "failed to initialize datastore")
	}
	log.Info("Using %s datastore", datastore.Name())

	snapshots, err := newSnapshotCache(ctx, conf)
	if err != nil {
		return errors.Wrap(err, "failed to initialize snapshot cache")
	}
	defer snapshots.Close()

	queue := bulk.NewQueue(bulk.NewEngine(datastore, conf.Bulk.BatchSize),
		conf.Bulk.Concurrency)
	defer queue.Close()

	appContext := &appcontext.AppContext{
		DataStore: datastore,
		Queue:     queue,
		Snapshots: snapshots,
	}
	appContext.Config.Http.RequestLogging = conf.Http.RequestLogging
	appContext.Config.Console = triage.Config{
		WindowSize:       conf.Console.WindowSize,
		DefaultTimeRange: conf.Console.DefaultTimeRange,
	}

	httpServer := server.NewServer(appContext, server.Config{
		SessionTimeout: conf.Console.SessionTimeout,
		JobMaxAge:      conf.Jobs.MaxAge,
	})

	errc := make(chan error, 1)
	go func() {
		addr := net.JoinHostPort(conf.Http.Host, strconv.Itoa(conf.Http.Port))
		errc <- httpServer.Start(ctx, addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func Main(args []string) {
	conf, err := configure(args)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf); err != nil {
		log.Fatal(err)
	}
	log.Sync()
}
