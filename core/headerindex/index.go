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

package headerindex

import (
	"fmt"
	"sync"
	"time"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/types"
	"github.com/nervosnetwork/ckb-go/log"
)

// recordSize is the in-memory size, in bytes, the memory budget is
// denominated in: one HeaderIndexView plus its map/list bookkeeping.
const recordSize = 152

// minBudgetBytes is the smallest memory budget the index accepts;
// below this a single record would not fit, which is a configuration
// error the caller must fix.
const minBudgetBytes = recordSize

// warnBudgetBytes is the threshold under which the index logs a
// warning: a budget this small makes the cold tier do essentially all
// the work.
const warnBudgetBytes = 15_200_000

// moveInterval is how often the background mover checks whether the
// hot tier needs to shed entries to the cold tier.
const moveInterval = 500 * time.Millisecond

// Index is the two-tier hash -> HeaderIndexView map described by the
// header index component. Reads consult the hot tier, then the cold
// tier; writes always go to hot, with a background task demoting the
// oldest entries once the hot tier exceeds its derived capacity.
type Index struct {
	capacity int
	hot      *memoryMap
	cold     *coldStore

	logger log.Logger

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// Open constructs an Index with byte budget m, backed by a temp
// directory under workDir (or the OS default temp location when
// workDir is empty). It panics if m is too small to hold even a
// single record; that is a configuration error, not a runtime
// condition.
func Open(m uint64, workDir string) (*Index, error) {
	if m < minBudgetBytes {
		panic(fmt.Sprintf("headerindex: memory budget %d is smaller than one record (%d bytes)", m, recordSize))
	}
	logger := log.New("component", "header-index")
	if m < warnBudgetBytes {
		logger.Warn("header index memory budget is small; expect heavy cold-tier traffic", "bytes", m)
	}

	cold, err := openColdStore(workDir)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		capacity: int(m / recordSize),
		hot:      newMemoryMap(),
		cold:     cold,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go idx.moveLoop()
	return idx, nil
}

// Contains reports whether hash is present in either tier.
func (idx *Index) Contains(hash common.Hash) bool {
	if idx.hot.containsKey(hash) {
		return true
	}
	return idx.cold.containsKey(hash)
}

// Get returns the view for hash, consulting the hot tier first (which
// refreshes recency) and falling back to cold storage.
func (idx *Index) Get(hash common.Hash) (*types.HeaderIndexView, bool) {
	if v, ok := idx.hot.getRefresh(hash); ok {
		return v, true
	}
	return idx.cold.get(hash)
}

// Insert adds or overwrites v in the hot tier.
func (idx *Index) Insert(v *types.HeaderIndexView) {
	idx.hot.insert(v)
}

// Remove deletes hash from both tiers, returning the removed view if
// it was present in either.
func (idx *Index) Remove(hash common.Hash) (*types.HeaderIndexView, bool) {
	hv, hok := idx.hot.remove(hash)
	cv, cok := idx.cold.remove(hash)
	if hok {
		return hv, true
	}
	if cok {
		return cv, true
	}
	return nil, false
}

// moveLoop periodically demotes the oldest hot-tier entries to cold
// storage once the hot tier exceeds capacity.
func (idx *Index) moveLoop() {
	defer close(idx.done)
	ticker := time.NewTicker(moveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-idx.quit:
			return
		case <-ticker.C:
			idx.moveOnce()
		}
	}
}

func (idx *Index) moveOnce() {
	overflow := idx.hot.frontN(idx.capacity)
	if len(overflow) == 0 {
		return
	}
	if err := idx.cold.insertBatch(overflow); err != nil {
		idx.logger.Error("failed to demote header index entries to cold storage", "err", err, "count", len(overflow))
		return
	}
	keys := make([]common.Hash, len(overflow))
	for i, v := range overflow {
		keys[i] = v.Hash
	}
	idx.hot.removeBatch(keys)
}

// Close stops the background mover and releases the cold store,
// removing its temp directory.
func (idx *Index) Close() error {
	var err error
	idx.closeOnce.Do(func() {
		close(idx.quit)
		<-idx.done
		err = idx.cold.close()
	})
	return err
}
