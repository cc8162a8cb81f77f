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
	"errors"
	"testing"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/types"
)

func newCellbase() *types.Transaction {
	return &types.Transaction{
		Inputs: []types.OutPoint{{TxHash: common.Hash{}, Index: 0xFFFFFFFF}},
	}
}

func newTestBlock(number uint64, txs ...*types.Transaction) *types.Block {
	all := append([]*types.Transaction{newCellbase()}, txs...)
	header := &types.Header{
		Number:           number,
		CompactTarget:    0x2100ffff,
		TransactionsRoot: types.CalcTransactionsRoot(all),
	}
	return &types.Block{Header: header, Transactions: all}
}

func TestCompactToTargetRoundTrip(t *testing.T) {
	target, ok := CompactToTarget(0x1d00ffff)
	if !ok {
		t.Fatal("mainnet-style compact target must decode")
	}
	if target.IsZero() {
		t.Fatal("decoded target must be nonzero")
	}
	// The sign bit marks a malformed encoding.
	if _, ok := CompactToTarget(0x1d800000); ok {
		t.Error("sign-bit compact target must be rejected")
	}
	// Harder target means more accumulated work.
	easy, _ := CompactToTarget(0x2100ffff)
	hard, _ := CompactToTarget(0x1d00ffff)
	if TargetToDifficulty(hard).Cmp(TargetToDifficulty(easy)) <= 0 {
		t.Error("harder target must yield strictly greater difficulty")
	}
}

func TestNonContextualAcceptsWellFormedBlock(t *testing.T) {
	v := NewNonContextual(consensus.Default(), AcceptAllPow)
	if err := v.VerifyBlock(newTestBlock(1)); err != nil {
		t.Fatalf("well-formed block rejected: %v", err)
	}
}

func TestNonContextualRejectsMissingCellbase(t *testing.T) {
	v := NewNonContextual(consensus.Default(), AcceptAllPow)
	b := newTestBlock(1)
	b.Transactions = []*types.Transaction{{
		Inputs:  []types.OutPoint{{TxHash: common.BytesToHash([]byte{1}), Index: 0}},
		Outputs: []types.CellOutput{}, OutputsData: [][]byte{},
	}}
	b.Header.TransactionsRoot = types.CalcTransactionsRoot(b.Transactions)
	err := v.VerifyBlock(b)
	if err == nil || !errors.Is(err, chainerror.ErrMalformedTransaction) {
		t.Fatalf("want malformed-transaction error, got %v", err)
	}
}

func TestNonContextualRejectsMerkleMismatch(t *testing.T) {
	v := NewNonContextual(consensus.Default(), AcceptAllPow)
	b := newTestBlock(1)
	b.Header.TransactionsRoot = common.BytesToHash([]byte("wrong"))
	err := v.VerifyBlock(b)
	if !errors.Is(err, chainerror.ErrInvalidMerkleRoot) {
		t.Fatalf("want merkle root error, got %v", err)
	}
}

func TestNonContextualRejectsDuplicateInputs(t *testing.T) {
	v := NewNonContextual(consensus.Default(), AcceptAllPow)
	in := types.OutPoint{TxHash: common.BytesToHash([]byte{7}), Index: 3}
	tx := &types.Transaction{
		Inputs:      []types.OutPoint{in, in},
		Outputs:     []types.CellOutput{{Capacity: 100}},
		OutputsData: [][]byte{nil},
	}
	err := v.VerifyBlock(newTestBlock(1, tx))
	if !errors.Is(err, chainerror.ErrDuplicateInput) {
		t.Fatalf("want duplicate-input error, got %v", err)
	}
}

func TestNonContextualRejectsEmptyInputs(t *testing.T) {
	v := NewNonContextual(consensus.Default(), AcceptAllPow)
	tx := &types.Transaction{Outputs: []types.CellOutput{{Capacity: 1}}, OutputsData: [][]byte{nil}}
	err := v.VerifyBlock(newTestBlock(1, tx))
	if !errors.Is(err, chainerror.ErrEmptyTransactionInputs) {
		t.Fatalf("want empty-inputs error, got %v", err)
	}
}

func TestNonContextualRejectsOversizedBlock(t *testing.T) {
	cons := consensus.Default()
	cons.MaxBlockBytes = 300
	v := NewNonContextual(cons, AcceptAllPow)
	tx := &types.Transaction{
		Inputs:      []types.OutPoint{{TxHash: common.BytesToHash([]byte{1}), Index: 0}},
		Outputs:     []types.CellOutput{{Capacity: 1}},
		OutputsData: [][]byte{make([]byte, 1024)},
	}
	err := v.VerifyBlock(newTestBlock(1, tx))
	if !errors.Is(err, chainerror.ErrBlockTooLarge) {
		t.Fatalf("want oversized-block error, got %v", err)
	}
}

func TestNonContextualRejectsBadCompactTarget(t *testing.T) {
	v := NewNonContextual(consensus.Default(), AcceptAllPow)
	b := newTestBlock(1)
	b.Header.CompactTarget = 0x1d800000
	err := v.VerifyBlock(b)
	if !errors.Is(err, chainerror.ErrInvalidProofOfWork) {
		t.Fatalf("want proof-of-work error, got %v", err)
	}
}

func TestNonContextualErrorsPunishPeer(t *testing.T) {
	v := NewNonContextual(consensus.Default(), AcceptAllPow)
	b := newTestBlock(1)
	b.Header.TransactionsRoot = common.BytesToHash([]byte("wrong"))
	err := v.VerifyBlock(b)
	var be *chainerror.BlockError
	if !errors.As(err, &be) {
		t.Fatalf("non-contextual failures must carry a kind, got %T", err)
	}
	if !be.Kind.PunishesPeer() {
		t.Errorf("malformed errors must punish the peer, kind = %s", be.Kind)
	}
}
