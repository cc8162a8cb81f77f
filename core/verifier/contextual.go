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

package verifier

import (
	"fmt"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/txverify"
	"github.com/nervosnetwork/ckb-go/core/types"
	"github.com/nervosnetwork/ckb-go/log"
)

// DAOCalculator recomputes the header's dao field from the parent
// state and the block's transactions. The calculation itself (issuance
// accumulation, occupied capacity tracking) is a verified external
// building block.
type DAOCalculator interface {
	DAOField(parent *types.HeaderIndexView, txs []*types.Transaction) ([32]byte, error)
}

// RewardCalculator resolves the finalized block reward and its target
// lock for the block whose parent is given. ok is false while no
// finalization target exists yet (the chain is younger than the
// finalization delay) or the computed reward is too small to form a
// valid output; in that case the cellbase must have zero outputs.
type RewardCalculator interface {
	BlockReward(parent *types.HeaderIndexView) (reward uint64, lock types.Script, ok bool, err error)
}

// TxOutcome is a single transaction's verification result. A non-nil
// Snapshot means the run was suspended at the cycle limit and can be
// resumed later; Cycles and Fee are only final when Snapshot is nil.
type TxOutcome struct {
	Cycles   uint64
	Fee      uint64
	Snapshot *txverify.Snapshot
}

// TxVerifier is the script-VM-backed contextual transaction verifier.
// The VM semantics are out of scope; the pipeline drives it through
// three entry points matching the cache's entry states.
type TxVerifier interface {
	// VerifyTx runs full contextual verification under the cycle
	// limit. skipScript elides the cycle-consuming script execution
	// while keeping the cheap contextual checks.
	VerifyTx(tx *types.Transaction, limit uint64, skipScript bool) (TxOutcome, error)
	// ResumeTx continues a previously suspended verification.
	ResumeTx(tx *types.Transaction, snap *txverify.Snapshot, limit uint64) (TxOutcome, error)
	// CheckTimeRelative re-runs only the since/timestamp-relative
	// checks for a transaction whose full verification is cached.
	CheckTimeRelative(tx *types.Transaction) error
}

// ChainRootMMR produces the merkle-mountain-range root over ancestor
// header digests up to a given tip number, consumed by the light
// client extension check.
type ChainRootMMR interface {
	ChainRoot(tipNumber uint64) (common.Hash, error)
}

// CompletedTx is one entry of the per-block completion list handed
// back to the consumer stage on success, mirroring the cache's
// Completed state.
type CompletedTx struct {
	Hash   common.Hash
	Cycles uint64
	Fee    uint64
}

// Contextual is the contextual block verifier: given a resolved
// parent, a block and the consensus object, it runs the epoch, uncle,
// commit-window, dao, reward, extension and transaction-batch checks
// in order and either returns the block's total cycles plus its
// per-transaction completion list or a typed error.
type Contextual struct {
	consensus *consensus.Params
	store     store.ChainStore
	mmr       store.MMRStore
	dao       DAOCalculator
	reward    RewardCalculator
	txs       TxVerifier
	chainRoot ChainRootMMR
	cache     *txverify.Cache

	logger log.Logger
}

// NewContextual wires the contextual verifier to its collaborators.
func NewContextual(c *consensus.Params, st store.ChainStore, mmr store.MMRStore,
	dao DAOCalculator, reward RewardCalculator, txs TxVerifier,
	chainRoot ChainRootMMR, cache *txverify.Cache) *Contextual {
	return &Contextual{
		consensus: c,
		store:     st,
		mmr:       mmr,
		dao:       dao,
		reward:    reward,
		txs:       txs,
		chainRoot: chainRoot,
		cache:     cache,
		logger:    log.New("component", "contextual-verifier"),
	}
}

// VerifyBlock runs every sub-check not disabled by sw, in order, and
// returns the summed transaction cycles and the completion list. All
// returned errors carry a chainerror.Kind.
func (v *Contextual) VerifyBlock(parent *types.HeaderIndexView, b *types.Block, sw types.Switch) (uint64, []CompletedTx, error) {
	if !sw.DisableEpoch() {
		if err := v.verifyEpoch(parent, b); err != nil {
			return 0, nil, err
		}
	}
	if !sw.DisableUncles() {
		if err := v.verifyUncles(b); err != nil {
			return 0, nil, err
		}
	}
	if !sw.DisableTwoPhaseCommit() {
		if err := v.verifyTwoPhaseCommit(parent, b); err != nil {
			return 0, nil, err
		}
	}
	if !sw.DisableDAOHeader() {
		if err := v.verifyDAO(parent, b); err != nil {
			return 0, nil, err
		}
	}
	if !sw.DisableReward() {
		if err := v.verifyReward(parent, b); err != nil {
			return 0, nil, err
		}
	}
	if !sw.DisableExtension() {
		if err := v.verifyExtension(parent, b); err != nil {
			return 0, nil, err
		}
	}
	return v.verifyTxBatch(b, sw)
}

// verifyEpoch checks that the header's epoch-with-fraction is the one
// the parent's epoch implies, and that the compact target matches the
// epoch's target (observed as the parent's target whenever the parent
// header is still available and the epoch did not roll over).
func (v *Contextual) verifyEpoch(parent *types.HeaderIndexView, b *types.Block) error {
	expected := v.consensus.ExpectedEpoch(b.Number(), parent.Epoch)
	if b.Header.Epoch != expected {
		return invalidContextual(fmt.Errorf("%w: got %s, want %s",
			chainerror.ErrEpochNumberMismatch, b.Header.Epoch, expected))
	}
	if b.Header.Epoch.Number == parent.Epoch.Number {
		// Same epoch, same target. Across an epoch boundary the new
		// target comes from the difficulty adjustment, which is the
		// consensus calculator's concern, not re-derived here.
		if ph, ok := v.store.GetBlockHeader(parent.Hash); ok && ph.CompactTarget != b.Header.CompactTarget {
			return invalidContextual(fmt.Errorf("%w: got %#x, want %#x",
				chainerror.ErrEpochTargetMismatch, b.Header.CompactTarget, ph.CompactTarget))
		}
	}
	return nil
}

func invalidContextual(err error) error {
	return chainerror.New(chainerror.KindInvalidContextual, err)
}
