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

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// verifyUncles checks the block's uncle list: bounded count, distinct
// hashes, no uncle previously included on the main chain or as another
// block's uncle, and each uncle's parent known at exactly one height
// below the uncle.
func (v *Contextual) verifyUncles(b *types.Block) error {
	if uint64(len(b.Uncles)) > v.consensus.MaxUncles {
		return invalidContextual(fmt.Errorf("%w: %d > %d",
			chainerror.ErrUncleTooMany, len(b.Uncles), v.consensus.MaxUncles))
	}
	seen := mapset.NewThreadUnsafeSet[common.Hash]()
	for i := range b.Uncles {
		uncle := &b.Uncles[i]
		hash := uncle.Hash()
		if !seen.Add(hash) {
			return invalidContextual(fmt.Errorf("%w: %s", chainerror.ErrUncleNotDistinct, hash))
		}
		if v.store.IsMainChain(hash) || v.store.IsUncle(hash) {
			return invalidContextual(fmt.Errorf("%w: %s", chainerror.ErrUncleDoubleInclusion, hash))
		}
		parentNumber, ok := v.store.GetBlockNumber(uncle.Header.ParentHash)
		if !ok {
			return invalidContextual(fmt.Errorf("%w: uncle %s parent %s unknown",
				chainerror.ErrUncleInvalidParent, hash, uncle.Header.ParentHash))
		}
		if parentNumber+1 != uncle.Header.Number {
			return invalidContextual(fmt.Errorf("%w: uncle %s at %d on parent at %d",
				chainerror.ErrUncleInvalidParent, hash, uncle.Header.Number, parentNumber))
		}
	}
	return nil
}
