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

// Package consensus holds the pure-data consensus parameter object the
// pipeline is parameterized by. It owns no mutable state and performs
// no verification itself; it is consulted by core/verifier and
// core/chain the way go-ethereum's params.ChainConfig is consulted by
// consensus engines.
package consensus

import "github.com/nervosnetwork/ckb-go/core/types"

// ProposalWindow is the closed interval, measured in blocks behind the
// committing block, within which a transaction must have been
// proposed before it may be committed.
type ProposalWindow struct {
	Closest  uint64
	Farthest uint64
}

// Params is the full set of protocol constants the verifier and the
// pipeline controller need. A real node loads this from the chain
// spec file; tests construct it directly.
type Params struct {
	// BlockDownloadWindow sizes every bounded queue and the orphan
	// pool's capacity.
	BlockDownloadWindow uint64

	// MaxUncles caps the uncle list length of any single block.
	MaxUncles uint64

	// MaxBlockCycles bounds the summed VM cycle cost of a block's
	// transactions (excluding the cellbase).
	MaxBlockCycles uint64

	// MaxBlockBytes bounds a block's serialized size, checked by the
	// non-contextual block-structure verifier.
	MaxBlockBytes uint64

	// MaxBlockProposalsLimit bounds the proposal short id list length.
	MaxBlockProposalsLimit uint64

	// TxProposalWindow is the two-phase commit window.
	TxProposalWindow ProposalWindow

	// FinalizationDelayLength is the number of blocks after which a
	// block's reward target becomes known.
	FinalizationDelayLength uint64

	// GenesisEpochLength is the block count of every epoch that
	// ExpectedEpoch computes; EpochDurationTarget is carried as a
	// parameter and is not read by the epoch verifier.
	EpochDurationTarget     uint64
	GenesisEpochLength      uint64

	// LightClientActivated / CellsCommitmentsActivated gate the block
	// extension verifier's expected layout.
	LightClientActivated        bool
	CellsCommitmentsActivated   bool

	// MaxTxVerifyCycles bounds a single transaction's cycle budget. The
	// batch verifier does not read it; its limit is MaxBlockCycles.
	MaxTxVerifyCycles uint64

	// GenesisHash identifies the chain's root block; IsGenesis compares
	// against it.
	GenesisHash [32]byte
}

// Default returns parameters sized for a development/test chain: a
// small download window so property tests can exercise capacity
// limits without constructing thousands of blocks.
func Default() *Params {
	return &Params{
		BlockDownloadWindow:       128,
		MaxUncles:                2,
		MaxBlockCycles:           duration20s(),
		MaxBlockBytes:            597_000,
		MaxBlockProposalsLimit:   1500,
		TxProposalWindow:         ProposalWindow{Closest: 2, Farthest: 10},
		FinalizationDelayLength:  100,
		EpochDurationTarget:      14400,
		GenesisEpochLength:       1000,
		MaxTxVerifyCycles:        duration20s() / 2,
	}
}

func duration20s() uint64 { return 20_000_000 }

// OrphanPoolCapacity is twice the download window.
func (p *Params) OrphanPoolCapacity() int { return int(2 * p.BlockDownloadWindow) }

// IntakeChannelSize is the intake-to-resolver buffer size.
func (p *Params) IntakeChannelSize() int { return int(p.BlockDownloadWindow) }

// ConsumerChannelSize is the resolver-to-consumer buffer size.
func (p *Params) ConsumerChannelSize() int { return int(3 * p.BlockDownloadWindow) }

// ExpectedEpoch computes the epoch a block at the given number and
// parent epoch should carry. A production implementation derives
// index/length from accumulated timestamps across the epoch; this
// keeps the continuity rule (advance the fraction, roll the number at
// the end of an epoch) while staying deterministic for unit tests.
func (p *Params) ExpectedEpoch(number uint64, parent types.EpochWithFraction) types.EpochWithFraction {
	if parent.Index+1 < parent.Length {
		return types.EpochWithFraction{Number: parent.Number, Index: parent.Index + 1, Length: parent.Length}
	}
	return types.EpochWithFraction{Number: parent.Number + 1, Index: 0, Length: p.GenesisEpochLength}
}

// IsGenesis reports whether hash is the configured genesis block hash.
func (p *Params) IsGenesis(hash [32]byte) bool { return hash == p.GenesisHash }
