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

// Package store declares the external collaborator interfaces the
// pipeline is parameterized by: the persistent chain store and the
// cells-root MMR store. Concrete, durable implementations are out of
// scope for this module; core/chain ships an in-memory implementation
// good enough to drive and test the pipeline end to end.
package store

import (
	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// ChainStore is the read/write interface the contextual verifier and
// the unverified consumer stage use to resolve ancestry, membership
// and persistence. Implementations are expected to provide
// transactional isolation: a Tx's writes are invisible to readers
// until Commit.
type ChainStore interface {
	// GetBlockHeader returns the header committed under hash.
	GetBlockHeader(hash common.Hash) (*types.Header, bool)
	// GetBlock returns the full block committed under hash, whether it
	// sits on the main chain or a side branch. The consumer stage needs
	// bodies during reorg to re-attach side-branch blocks and return
	// detached transactions to the pool.
	GetBlock(hash common.Hash) (*types.Block, bool)
	// GetBlockHash returns the main-chain hash at number.
	GetBlockHash(number uint64) (common.Hash, bool)
	// GetBlockNumber returns the height at which hash is committed,
	// on the main chain or as a side-branch block.
	GetBlockNumber(hash common.Hash) (uint64, bool)
	// GetBlockProposalTxsIds returns the proposal short ids committed
	// in the block identified by hash.
	GetBlockProposalTxsIds(hash common.Hash) ([]types.ProposalShortId, bool)
	// GetBlockUncles returns the uncles committed in the block
	// identified by hash.
	GetBlockUncles(hash common.Hash) ([]types.UncleBlock, bool)
	// IsMainChain reports whether hash is on the currently active
	// best chain.
	IsMainChain(hash common.Hash) bool
	// IsUncle reports whether hash has been included as an uncle by
	// any committed block.
	IsUncle(hash common.Hash) bool

	// BeginTx opens a write transaction used by the consumer stage to
	// commit a single block's state changes atomically.
	BeginTx() (Tx, error)
}

// Tx is a single write transaction against the chain store.
type Tx interface {
	// InsertBlock persists block's header, body and derived indexes.
	InsertBlock(block *types.Block) error
	// AttachBlock marks hash as part of the active main chain.
	AttachBlock(hash common.Hash) error
	// DetachBlock removes hash from the active main chain without
	// deleting its stored data, used during reorg disconnects.
	DetachBlock(hash common.Hash) error
	// Commit finalizes the transaction. After Commit returns nil, all
	// writes are visible to subsequent ChainStore reads.
	Commit() error
	// Rollback discards the transaction's writes.
	Rollback() error
}

// MMRStore is the cells-root merkle-mountain-range backing store
// consulted by the block extension verifier.
type MMRStore interface {
	// CellsRootMMR returns the current root over cell-status leaves.
	CellsRootMMR() (common.Hash, error)
	// GetCellsRootMMRStatus returns the mmr position recorded for a
	// given out point, if any.
	GetCellsRootMMRStatus(op types.OutPoint) (uint64, bool)
	// InsertCellsRootMMRStatus records the mmr position for op.
	InsertCellsRootMMRStatus(op types.OutPoint, pos uint64) error
}
