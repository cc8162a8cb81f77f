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

// Package orphan implements the bounded pool of blocks whose parent is
// not yet known to the chain, keyed by hash with a secondary
// parent_hash -> children index for chain reassembly once the parent
// arrives.
package orphan

import (
	"sync"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/types"
)

var errTransientEvicted = chainerror.New(chainerror.KindContextMissing, chainerror.ErrOrphanPoolEvicted)

// node wraps a buffered LonelyBlock with its insertion sequence, so
// eviction and breadth-first traversal can both use a simple ordering
// key instead of a separate linked structure.
type node struct {
	block *types.LonelyBlock
	seq   uint64
}

// Pool is the orphan block pool described by the header index's
// sibling component: a hash-keyed store of LonelyBlocks buffered
// because their parent has not yet resolved, with eviction by
// insertion order once capacity is exceeded.
type Pool struct {
	mu       sync.RWMutex
	capacity int
	nextSeq  uint64

	byHash   map[common.Hash]*node
	byParent map[common.Hash]map[common.Hash]struct{}
}

// New constructs a Pool with the given capacity (2x the block
// download window, per the caller's consensus parameters).
func New(capacity int) *Pool {
	return &Pool{
		capacity: capacity,
		byHash:   make(map[common.Hash]*node),
		byParent: make(map[common.Hash]map[common.Hash]struct{}),
	}
}

// Len returns the number of blocks currently buffered.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// GetBlock returns the buffered block for hash, if any.
func (p *Pool) GetBlock(hash common.Hash) (*types.Block, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.byHash[hash]
	if !ok {
		return nil, false
	}
	return n.block.Block, true
}

// Insert buffers lb, indexed under its parent hash. If the pool is now
// over capacity, the oldest entries (by insertion order) are evicted
// and their callbacks fired with a transient-failure result; evicted
// entries are returned to the caller purely for peer-report bookkeeping.
func (p *Pool) Insert(lb *types.LonelyBlock) []*types.LonelyBlock {
	p.mu.Lock()
	hash := lb.Block.Hash()
	parent := lb.Block.ParentHash()

	if existing, ok := p.byHash[hash]; ok {
		// Already buffered: fire the newcomer's callback as a
		// duplicate-accept and keep the original entry so it keeps
		// its place in insertion order.
		p.mu.Unlock()
		_ = existing
		lb.FireCallback(types.VerifyResult{AlreadyKnown: true})
		return nil
	}

	seq := p.nextSeq
	p.nextSeq++
	n := &node{block: lb, seq: seq}
	p.byHash[hash] = n
	if p.byParent[parent] == nil {
		p.byParent[parent] = make(map[common.Hash]struct{})
	}
	p.byParent[parent][hash] = struct{}{}

	var evicted []*types.LonelyBlock
	for len(p.byHash) > p.capacity {
		oldestHash, ok := p.oldestLocked()
		if !ok {
			break
		}
		evicted = append(evicted, p.removeLocked(oldestHash))
	}
	p.mu.Unlock()

	for _, lb := range evicted {
		lb.FireCallback(types.VerifyResult{Err: errTransientEvicted})
	}
	return evicted
}

func (p *Pool) oldestLocked() (common.Hash, bool) {
	var oldestHash common.Hash
	var oldestSeq uint64
	found := false
	for h, n := range p.byHash {
		if !found || n.seq < oldestSeq {
			oldestHash, oldestSeq, found = h, n.seq, true
		}
	}
	return oldestHash, found
}

// removeLocked removes hash from both indexes and returns its block.
// Caller must hold p.mu.
func (p *Pool) removeLocked(hash common.Hash) *types.LonelyBlock {
	n, ok := p.byHash[hash]
	if !ok {
		return nil
	}
	delete(p.byHash, hash)
	parent := n.block.Block.ParentHash()
	if children := p.byParent[parent]; children != nil {
		delete(children, hash)
		if len(children) == 0 {
			delete(p.byParent, parent)
		}
	}
	return n.block
}

// Drain removes and returns every buffered block in insertion order,
// used at shutdown so the controller can fire the remaining callbacks
// with a shutdown error.
func (p *Pool) Drain() []*types.LonelyBlock {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.LonelyBlock, 0, len(p.byHash))
	for len(p.byHash) > 0 {
		h, ok := p.oldestLocked()
		if !ok {
			break
		}
		out = append(out, p.removeLocked(h))
	}
	return out
}

// RemoveBlocksByParent removes and returns the transitive closure of
// blocks buffered under parentHash, in breadth-first order: parents
// before children, and siblings in insertion order.
func (p *Pool) RemoveBlocksByParent(parentHash common.Hash) []*types.LonelyBlock {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*types.LonelyBlock
	frontier := []common.Hash{parentHash}
	for len(frontier) > 0 {
		var next []common.Hash
		for _, ph := range frontier {
			children := p.byParent[ph]
			if len(children) == 0 {
				continue
			}
			ordered := p.orderedChildrenLocked(children)
			for _, childHash := range ordered {
				lb := p.removeLocked(childHash)
				if lb == nil {
					continue
				}
				out = append(out, lb)
				next = append(next, childHash)
			}
		}
		frontier = next
	}
	return out
}

func (p *Pool) orderedChildrenLocked(children map[common.Hash]struct{}) []common.Hash {
	hashes := make([]common.Hash, 0, len(children))
	for h := range children {
		hashes = append(hashes, h)
	}
	for i := 1; i < len(hashes); i++ {
		for j := i; j > 0 && p.byHash[hashes[j-1]].seq > p.byHash[hashes[j]].seq; j-- {
			hashes[j-1], hashes[j] = hashes[j], hashes[j-1]
		}
	}
	return hashes
}
