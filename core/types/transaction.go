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

package types

import (
	"encoding/binary"

	"github.com/nervosnetwork/ckb-go/common"
)

// OutPoint identifies a cell by the hash of the transaction that
// created it and its position among that transaction's outputs.
type OutPoint struct {
	TxHash common.Hash
	Index  uint32
}

// Script is a lock or type script attached to a cell: a code hash, a
// hash type discriminator and opaque arguments. The script VM itself
// is out of scope; the pipeline only needs scripts as comparable,
// hashable values for reward-lock and dedup checks.
type Script struct {
	CodeHash common.Hash
	HashType byte
	Args     []byte
}

// Equal reports whether two scripts (or two *Script, with nil meaning
// absent) describe the same lock/type condition.
func (s *Script) Equal(o *Script) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.CodeHash != o.CodeHash || s.HashType != o.HashType {
		return false
	}
	if len(s.Args) != len(o.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// CellOutput is the capacity and guarding scripts of a single
// transaction output.
type CellOutput struct {
	Capacity uint64
	Lock     Script
	Type     *Script
}

// ProposalShortId is the truncated transaction hash broadcast in a
// block's proposal list, used to commit to a transaction two phases
// before it may appear in a block body.
type ProposalShortId [10]byte

// ProposalShortIdFromHash truncates a full transaction hash into its
// short id form.
func ProposalShortIdFromHash(h common.Hash) ProposalShortId {
	var id ProposalShortId
	copy(id[:], h.Bytes()[:len(id)])
	return id
}

// Transaction is a CKB cell-model transaction: it consumes Inputs
// (existing cells, named by OutPoint) and produces Outputs (new
// cells), optionally depending on the live state of further cells
// (Deps, without consuming them) and on specific historical block
// headers (HeaderDeps).
type Transaction struct {
	Version     uint32
	CellDeps    []OutPoint
	HeaderDeps  []common.Hash
	Inputs      []OutPoint
	Outputs     []CellOutput
	OutputsData [][]byte
	Witnesses   [][]byte

	hash    common.Hash
	hashSet bool
}

// Hash returns the transaction's identifying hash, excluding
// Witnesses, so witness malleation cannot change a transaction's
// identity.
func (tx *Transaction) Hash() common.Hash {
	if tx.hashSet {
		return tx.hash
	}
	tx.hash = computeTxHash(tx)
	tx.hashSet = true
	return tx.hash
}

// ProposalShortId returns the proposal short id derived from the
// transaction's hash.
func (tx *Transaction) ProposalShortId() ProposalShortId {
	return ProposalShortIdFromHash(tx.Hash())
}

// IsCellbase reports whether the transaction is the block's first
// transaction, which mints the block reward and carries no inputs.
func (tx *Transaction) IsCellbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].TxHash.IsZero() && tx.Inputs[0].Index == 0xFFFFFFFF
}

func computeTxHash(tx *Transaction) common.Hash {
	var buf []byte
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[:4], tx.Version)
	buf = append(buf, tmp[:4]...)
	for _, dep := range tx.CellDeps {
		buf = append(buf, dep.TxHash.Bytes()...)
		binary.LittleEndian.PutUint32(tmp[:4], dep.Index)
		buf = append(buf, tmp[:4]...)
	}
	for _, h := range tx.HeaderDeps {
		buf = append(buf, h.Bytes()...)
	}
	for _, in := range tx.Inputs {
		buf = append(buf, in.TxHash.Bytes()...)
		binary.LittleEndian.PutUint32(tmp[:4], in.Index)
		buf = append(buf, tmp[:4]...)
	}
	for _, out := range tx.Outputs {
		binary.LittleEndian.PutUint64(tmp[:8], out.Capacity)
		buf = append(buf, tmp[:8]...)
		buf = append(buf, out.Lock.CodeHash.Bytes()...)
		buf = append(buf, out.Lock.HashType)
		buf = append(buf, out.Lock.Args...)
		if out.Type != nil {
			buf = append(buf, out.Type.CodeHash.Bytes()...)
			buf = append(buf, out.Type.HashType)
			buf = append(buf, out.Type.Args...)
		}
	}
	for _, d := range tx.OutputsData {
		buf = append(buf, d...)
	}
	return common.BytesToHash(fnv1aSum(buf))
}
