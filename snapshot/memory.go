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
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps snapshots in process, expiring them after a TTL.
type MemoryCache struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		cache: gocache.New(ttl, ttl*2),
	}
}

func (c *MemoryCache) Put(ctx context.Context, key string, snapshot Snapshot) error {
	if snapshot.Created.IsZero() {
		snapshot.Created = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Set(key, snapshot, gocache.DefaultExpiration)
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

func (c *MemoryCache) Pop(ctx context.Context, key string) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot, ok, err := c.get(key)
	if ok {
		c.cache.Delete(key)
	}
	return snapshot, ok, err
}

func (c *MemoryCache) get(key string) (Snapshot, bool, error) {
	value, ok := c.cache.Get(key)
	if !ok {
		return Snapshot{}, false, nil
	}
	snapshot, ok := value.(Snapshot)
	return snapshot, ok, nil
}

func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

func (c *MemoryCache) Close() error {
	c.cache.Flush()
	return nil
}
