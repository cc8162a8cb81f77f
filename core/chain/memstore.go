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

package chain

import (
	"fmt"
	"sync"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// MemStore is an in-memory chain store implementing store.ChainStore
// and store.MMRStore, good enough to drive the pipeline end to end in
// tests and development nodes. Writes are staged in transactions and
// become visible atomically on Commit.
type MemStore struct {
	mu sync.RWMutex

	blocks    map[common.Hash]*types.Block
	numbers   map[common.Hash]uint64
	mainChain map[uint64]common.Hash
	uncleSet  map[common.Hash]struct{}

	cellsRoot common.Hash
	mmrStatus map[types.OutPoint]uint64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		blocks:    make(map[common.Hash]*types.Block),
		numbers:   make(map[common.Hash]uint64),
		mainChain: make(map[uint64]common.Hash),
		uncleSet:  make(map[common.Hash]struct{}),
		mmrStatus: make(map[types.OutPoint]uint64),
	}
}

func (s *MemStore) GetBlockHeader(hash common.Hash) (*types.Header, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[hash]
	if !ok {
		return nil, false
	}
	return b.Header, true
}

func (s *MemStore) GetBlock(hash common.Hash) (*types.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[hash]
	return b, ok
}

func (s *MemStore) GetBlockHash(number uint64) (common.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.mainChain[number]
	return h, ok
}

func (s *MemStore) GetBlockNumber(hash common.Hash) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.numbers[hash]
	return n, ok
}

func (s *MemStore) GetBlockProposalTxsIds(hash common.Hash) ([]types.ProposalShortId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[hash]
	if !ok {
		return nil, false
	}
	return b.Proposals, true
}

func (s *MemStore) GetBlockUncles(hash common.Hash) ([]types.UncleBlock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[hash]
	if !ok {
		return nil, false
	}
	return b.Uncles, true
}

func (s *MemStore) IsMainChain(hash common.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.numbers[hash]
	return ok && s.mainChain[n] == hash
}

func (s *MemStore) IsUncle(hash common.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.uncleSet[hash]
	return ok
}

func (s *MemStore) CellsRootMMR() (common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cellsRoot, nil
}

// SetCellsRoot installs the root CellsRootMMR answers with, letting
// tests and the mmr maintainer feed the extension verifier.
func (s *MemStore) SetCellsRoot(root common.Hash) {
	s.mu.Lock()
	s.cellsRoot = root
	s.mu.Unlock()
}

func (s *MemStore) GetCellsRootMMRStatus(op types.OutPoint) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.mmrStatus[op]
	return pos, ok
}

func (s *MemStore) InsertCellsRootMMRStatus(op types.OutPoint, pos uint64) error {
	s.mu.Lock()
	s.mmrStatus[op] = pos
	s.mu.Unlock()
	return nil
}

// BeginTx opens a write transaction. Only the consumer worker writes,
// so transactions do not need inter-tx conflict detection; they only
// provide atomicity of a single block's changes.
func (s *MemStore) BeginTx() (store.Tx, error) {
	return &memTx{store: s}, nil
}

// memTx stages mutations until Commit.
type memTx struct {
	store *MemStore
	ops   []func() error
	done  bool
}

func (t *memTx) InsertBlock(block *types.Block) error {
	s := t.store
	t.ops = append(t.ops, func() error {
		hash := block.Hash()
		s.blocks[hash] = block
		s.numbers[hash] = block.Number()
		return nil
	})
	return nil
}

func (t *memTx) AttachBlock(hash common.Hash) error {
	s := t.store
	t.ops = append(t.ops, func() error {
		n, ok := s.numbers[hash]
		if !ok {
			return fmt.Errorf("memstore: attaching unknown block %s", hash)
		}
		s.mainChain[n] = hash
		for i := range s.blocks[hash].Uncles {
			s.uncleSet[s.blocks[hash].Uncles[i].Hash()] = struct{}{}
		}
		return nil
	})
	return nil
}

func (t *memTx) DetachBlock(hash common.Hash) error {
	s := t.store
	t.ops = append(t.ops, func() error {
		n, ok := s.numbers[hash]
		if !ok || s.mainChain[n] != hash {
			return fmt.Errorf("memstore: detaching non-main-chain block %s", hash)
		}
		delete(s.mainChain, n)
		for i := range s.blocks[hash].Uncles {
			delete(s.uncleSet, s.blocks[hash].Uncles[i].Hash())
		}
		return nil
	})
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("memstore: transaction already finished")
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		if err := op(); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	t.ops = nil
	return nil
}
