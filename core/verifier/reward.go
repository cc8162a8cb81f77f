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
	"bytes"
	"fmt"

	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// verifyDAO recomputes the dao field from the parent state and the
// block's transactions and requires bit-exact equality with the
// header.
func (v *Contextual) verifyDAO(parent *types.HeaderIndexView, b *types.Block) error {
	want, err := v.dao.DAOField(parent, b.Transactions)
	if err != nil {
		return chainerror.New(chainerror.KindSystem, err)
	}
	if !bytes.Equal(want[:], b.Header.DAO[:]) {
		return invalidContextual(chainerror.ErrInvalidDAO)
	}
	return nil
}

// verifyReward checks the cellbase against the finalized block reward:
// while no finalization target exists (or the reward is too small to
// form an output) the cellbase must be outputless; otherwise its first
// output must carry exactly the computed reward under the finalization
// target's lock.
func (v *Contextual) verifyReward(parent *types.HeaderIndexView, b *types.Block) error {
	cellbase := b.Cellbase()
	reward, lock, ok, err := v.reward.BlockReward(parent)
	if err != nil {
		return chainerror.New(chainerror.KindSystem, err)
	}
	if !ok {
		if len(cellbase.Outputs) != 0 {
			return invalidContextual(fmt.Errorf("%w: cellbase has %d outputs before finalization target exists",
				chainerror.ErrInvalidRewardAmount, len(cellbase.Outputs)))
		}
		return nil
	}
	if len(cellbase.Outputs) == 0 {
		return invalidContextual(fmt.Errorf("%w: cellbase has no outputs", chainerror.ErrInvalidRewardAmount))
	}
	out := &cellbase.Outputs[0]
	if out.Capacity != reward {
		return invalidContextual(fmt.Errorf("%w: got %d, want %d",
			chainerror.ErrInvalidRewardAmount, out.Capacity, reward))
	}
	if !out.Lock.Equal(&lock) {
		return invalidContextual(chainerror.ErrInvalidRewardTarget)
	}
	return nil
}
