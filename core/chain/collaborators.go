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
	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/txverify"
	"github.com/nervosnetwork/ckb-go/core/types"
	"github.com/nervosnetwork/ckb-go/core/verifier"
)

// Permissive stand-ins for the external calculator and VM building
// blocks, used when the embedding node does not wire real ones (tests,
// trusted import). Each preserves the verifier's control flow while
// accepting the corresponding zero-valued header fields.

// zeroDAO recomputes the dao field as all zeroes, so only blocks whose
// header carries an untouched dao field pass the bit-exact check.
type zeroDAO struct{}

func (zeroDAO) DAOField(*types.HeaderIndexView, []*types.Transaction) ([32]byte, error) {
	return [32]byte{}, nil
}

// pendingReward reports that no finalization target exists yet, which
// makes the reward verifier require an outputless cellbase.
type pendingReward struct{}

func (pendingReward) BlockReward(*types.HeaderIndexView) (uint64, types.Script, bool, error) {
	return 0, types.Script{}, false, nil
}

// freeTxVerifier accepts every transaction at zero cycles.
type freeTxVerifier struct{}

func (freeTxVerifier) VerifyTx(*types.Transaction, uint64, bool) (verifier.TxOutcome, error) {
	return verifier.TxOutcome{}, nil
}

func (freeTxVerifier) ResumeTx(*types.Transaction, *txverify.Snapshot, uint64) (verifier.TxOutcome, error) {
	return verifier.TxOutcome{}, nil
}

func (freeTxVerifier) CheckTimeRelative(*types.Transaction) error { return nil }

// zeroChainRoot answers every chain-root query with the zero hash.
type zeroChainRoot struct{}

func (zeroChainRoot) ChainRoot(uint64) (common.Hash, error) { return common.Hash{}, nil }
