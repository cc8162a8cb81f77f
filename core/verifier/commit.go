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

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// verifyTwoPhaseCommit enforces the proposal window: every non-cellbase
// transaction committed in this block must have been proposed — in a
// block's own proposal list or one of its uncles' — within the window
// [number-farthest, number-closest]. The window is walked by parent
// hash starting from the ancestor at number-closest, so a reorg in
// progress sees the branch actually being extended, not the main-chain
// index.
func (v *Contextual) verifyTwoPhaseCommit(parent *types.HeaderIndexView, b *types.Block) error {
	if len(b.Transactions) <= 1 {
		return nil
	}
	window := v.consensus.TxProposalWindow
	number := b.Number()
	if number <= window.Closest {
		// Too close to genesis for any proposal to have matured.
		return invalidContextual(fmt.Errorf("%w: block %d commits transactions before the window opens",
			chainerror.ErrCommitWindowViolated, number))
	}

	start := number - window.Closest
	end := uint64(1)
	if number > window.Farthest {
		end = number - window.Farthest
	}

	proposed := mapset.NewThreadUnsafeSet[types.ProposalShortId]()
	// Descend from parent to the ancestor at height start, then keep
	// walking down to end, accumulating each block's own proposals and
	// its uncles' proposals.
	hash := parent.Hash
	h, ok := v.store.GetBlockHeader(hash)
	if !ok {
		return chainerror.New(chainerror.KindContextMissing,
			fmt.Errorf("%w: parent %s", chainerror.ErrCommitWindowAncestor, hash))
	}
	for h.Number > start {
		hash = h.ParentHash
		if h, ok = v.store.GetBlockHeader(hash); !ok {
			return chainerror.New(chainerror.KindContextMissing,
				fmt.Errorf("%w: ancestor %s", chainerror.ErrCommitWindowAncestor, hash))
		}
	}
	for h.Number >= end {
		ids, _ := v.store.GetBlockProposalTxsIds(hash)
		for _, id := range ids {
			proposed.Add(id)
		}
		uncles, _ := v.store.GetBlockUncles(hash)
		for i := range uncles {
			for _, id := range uncles[i].Proposals {
				proposed.Add(id)
			}
		}
		if h.Number == 0 {
			break
		}
		hash = h.ParentHash
		if h, ok = v.store.GetBlockHeader(hash); !ok {
			return chainerror.New(chainerror.KindContextMissing,
				fmt.Errorf("%w: ancestor %s", chainerror.ErrCommitWindowAncestor, hash))
		}
	}

	for i := 1; i < len(b.Transactions); i++ {
		id := b.Transactions[i].ProposalShortId()
		if !proposed.Contains(id) {
			return invalidContextual(fmt.Errorf("%w: tx %d (%x)",
				chainerror.ErrCommitWindowViolated, i, id))
		}
	}
	return nil
}
