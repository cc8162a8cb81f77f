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

// Package verifier implements the block verifiers the pipeline runs: a
// stateless non-contextual pass at intake and the contextual pass
// (epoch, uncles, commit window, dao, reward, extension, transaction
// batch) at the consumer stage. Both are parameterized by the pure
// consensus object; the contextual verifier additionally by the store
// interfaces and the external calculator/VM building blocks.
package verifier

import (
	"fmt"
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// NonContextual performs the stateless checks the process-block intake
// stage runs before a block may enter the orphan resolver: header
// well-formedness, block size cap, merkle-root consistency, pow target
// decoding, and per-transaction structure.
type NonContextual struct {
	consensus *consensus.Params
	pow       PowEngine
}

// NewNonContextual builds the stateless verifier. A nil pow falls back
// to DefaultPow.
func NewNonContextual(c *consensus.Params, pow PowEngine) *NonContextual {
	if pow == nil {
		pow = DefaultPow
	}
	return &NonContextual{consensus: c, pow: pow}
}

// VerifyBlock runs the block-structure verifier and then the
// non-contextual transactions verifier. Every returned error is in the
// Malformed bucket: the originating peer is punished.
func (v *NonContextual) VerifyBlock(b *types.Block) error {
	if err := v.verifyStructure(b); err != nil {
		return err
	}
	return v.verifyTransactions(b)
}

func (v *NonContextual) verifyStructure(b *types.Block) error {
	h := b.Header
	if len(b.Transactions) == 0 || !b.Transactions[0].IsCellbase() {
		return malformed(fmt.Errorf("%w: first transaction is not a cellbase", chainerror.ErrMalformedTransaction))
	}
	for i := 1; i < len(b.Transactions); i++ {
		if b.Transactions[i].IsCellbase() {
			return malformed(fmt.Errorf("%w: cellbase at index %d", chainerror.ErrMalformedTransaction, i))
		}
	}
	if uint64(len(b.Proposals)) > v.consensus.MaxBlockProposalsLimit {
		return malformed(fmt.Errorf("%w: %d proposals", chainerror.ErrInvalidHeaderShape, len(b.Proposals)))
	}
	if size := serializedSize(b); size > v.consensus.MaxBlockBytes {
		return malformed(fmt.Errorf("%w: %d > %d bytes", chainerror.ErrBlockTooLarge, size, v.consensus.MaxBlockBytes))
	}
	if root := types.CalcTransactionsRoot(b.Transactions); root != h.TransactionsRoot {
		return malformed(chainerror.ErrInvalidMerkleRoot)
	}
	target, ok := CompactToTarget(h.CompactTarget)
	if !ok || target.IsZero() {
		return malformed(fmt.Errorf("%w: compact target %#x", chainerror.ErrInvalidProofOfWork, h.CompactTarget))
	}
	if !v.pow.VerifyHeader(h, target) {
		return malformed(chainerror.ErrInvalidProofOfWork)
	}
	return nil
}

func (v *NonContextual) verifyTransactions(b *types.Block) error {
	for i, tx := range b.Transactions {
		if err := verifyTxShape(tx, i == 0); err != nil {
			return malformed(fmt.Errorf("transaction %d: %w", i, err))
		}
	}
	return nil
}

// verifyTxShape checks a single transaction's stateless invariants:
// inputs present (cellbase aside), outputs-data aligned with outputs,
// no duplicate inputs, and output capacities that sum without
// overflow.
func verifyTxShape(tx *types.Transaction, cellbase bool) error {
	if !cellbase && len(tx.Inputs) == 0 {
		return chainerror.ErrEmptyTransactionInputs
	}
	if len(tx.OutputsData) != len(tx.Outputs) {
		return fmt.Errorf("%w: outputs_data length %d != outputs length %d",
			chainerror.ErrMalformedTransaction, len(tx.OutputsData), len(tx.Outputs))
	}
	seen := mapset.NewThreadUnsafeSet[types.OutPoint]()
	for _, in := range tx.Inputs {
		if !seen.Add(in) {
			return fmt.Errorf("%w: %s:%d", chainerror.ErrDuplicateInput, in.TxHash, in.Index)
		}
	}
	var sum uint64
	for _, out := range tx.Outputs {
		if out.Capacity > math.MaxUint64-sum {
			return chainerror.ErrOutputCapacityOverflow
		}
		sum += out.Capacity
	}
	return nil
}

// serializedSize approximates the block's wire size the way the size
// cap intends: fixed header weight plus per-field byte counts. The
// exact molecule framing overhead is a wire-format concern out of
// scope; the approximation errs on the small side of the real
// encoding, never the large.
func serializedSize(b *types.Block) uint64 {
	const headerSize = 208
	size := uint64(headerSize)
	size += uint64(len(b.Proposals)) * 10
	size += uint64(len(b.Uncles)) * headerSize
	for i := range b.Uncles {
		size += uint64(len(b.Uncles[i].Proposals)) * 10
	}
	size += uint64(len(b.Extension))
	for _, tx := range b.Transactions {
		size += txSize(tx)
	}
	return size
}

func txSize(tx *types.Transaction) uint64 {
	size := uint64(4)
	size += uint64(len(tx.CellDeps)) * 36
	size += uint64(len(tx.HeaderDeps)) * 32
	size += uint64(len(tx.Inputs)) * 44
	for i := range tx.Outputs {
		size += 8 + 65
		if tx.Outputs[i].Type != nil {
			size += 65
		}
		size += uint64(len(tx.Outputs[i].Lock.Args))
	}
	for _, d := range tx.OutputsData {
		size += uint64(len(d))
	}
	for _, w := range tx.Witnesses {
		size += uint64(len(w))
	}
	return size
}

func malformed(err error) error {
	return chainerror.New(chainerror.KindMalformed, err)
}
