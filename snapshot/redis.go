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

package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/jasonish/evebox-triage/log"
	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "evebox:snapshot:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache keeps snapshots in Redis so they are shared between server
// instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, config RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, pkgerrors.Wrap(err, "failed to connect to redis")
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	log.Info("Using Redis snapshot cache at %s", config.Addr)

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, snapshot Snapshot) error {
	if snapshot.Created.IsZero() {
		snapshot.Created = time.Now()
	}
	data, err := encode(snapshot)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return pkgerrors.Wrap(err, "failed to store snapshot")
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	return c.fetch(c.client.Get(ctx, redisKeyPrefix+key))
}

func (c *RedisCache) Pop(ctx context.Context, key string) (Snapshot, bool, error) {
	return c.fetch(c.client.GetDel(ctx, redisKeyPrefix+key))
}

func (c *RedisCache) fetch(cmd *redis.StringCmd) (Snapshot, bool, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, pkgerrors.Wrap(err, "failed to get snapshot")
	}
	snapshot, err := decode(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	return snapshot, true, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
