// Copyright 2024 The ckb-go Authors
// This file is part of the ckb-go library.
//
// The ckb-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ckb-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ckb-go library. If not, see <http://www.gnu.org/licenses/>.

package txverify

import (
	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/common/lru"
)

// CacheEntryKind discriminates the two states a cached verification
// result can be in.
type CacheEntryKind int

const (
	// KindCompleted means verification finished; Cycles and Fee are
	// final and only a time-relative re-check is needed on reuse.
	KindCompleted CacheEntryKind = iota
	// KindSuspended means verification exceeded its per-tx cycle
	// budget mid-flight; Snapshot carries enough state to resume.
	KindSuspended
)

// Snapshot is the opaque mid-verification state captured when a
// transaction's script verification is suspended for exceeding its
// per-tx cycle budget. Its internal layout belongs to the script VM,
// which this pipeline treats as a verified external collaborator; the
// cache only needs to carry it unchanged from suspension to resume.
type Snapshot struct {
	ConsumedCycles uint64
	VMState        []byte
}

// CacheEntry is one cached verification outcome.
type CacheEntry struct {
	Kind     CacheEntryKind
	Cycles   uint64
	Fee      uint64
	Snapshot *Snapshot
}

// Completed builds a completed cache entry.
func Completed(cycles, fee uint64) CacheEntry {
	return CacheEntry{Kind: KindCompleted, Cycles: cycles, Fee: fee}
}

// Suspended builds a suspended cache entry.
func Suspended(snap *Snapshot) CacheEntry {
	return CacheEntry{Kind: KindSuspended, Snapshot: snap}
}

// Cache is the capped LRU from transaction hash to verification
// outcome. A single mutex guards it: the contextual verifier only
// touches it from the consumer worker, and the tx-pool admission path
// takes short point reads, so an async reader/writer lock would buy
// nothing over plain mutual exclusion here.
type Cache struct {
	lru *lru.Cache[common.Hash, CacheEntry]
}

// NewCache constructs a cache capped at capacity entries.
func NewCache(capacity int) *Cache {
	return &Cache{lru: lru.NewCache[common.Hash, CacheEntry](capacity)}
}

// Peek returns the cached entry for hash without updating recency;
// the batch verifier fetches a full round's worth of lookups before
// deciding which entries to refresh.
func (c *Cache) Peek(hash common.Hash) (CacheEntry, bool) {
	return c.lru.Peek(hash)
}

// Put inserts or overwrites the cached entry for hash, marking it
// most-recently-used.
func (c *Cache) Put(hash common.Hash, entry CacheEntry) {
	c.lru.Add(hash, entry)
}

// Touch refreshes hash's recency without changing its value; used
// when a Completed entry passes its time-relative re-check and should
// not be evicted ahead of colder entries.
func (c *Cache) Touch(hash common.Hash) {
	c.lru.Get(hash)
}

// Remove evicts hash from the cache, used when a suspended
// verification is abandoned (e.g. its block was rejected).
func (c *Cache) Remove(hash common.Hash) {
	c.lru.Remove(hash)
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
