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

// Package types holds the core data model the pipeline operates on:
// headers, blocks, transactions and the bookkeeping types (LonelyBlock,
// UnverifiedBlock, HeaderIndexView) that travel between pipeline stages.
package types

import (
	"fmt"

	"github.com/nervosnetwork/ckb-go/common"
)

// EpochWithFraction packs an epoch number together with the block's
// position within that epoch; the wire form is a single uint64, kept
// here as three addressable components.
type EpochWithFraction struct {
	Number uint64
	Index  uint64
	Length uint64
}

// Full returns the epoch number and fraction encoded as a single
// uint64, using the same bit layout as the block header's raw epoch
// field: number in the low 24 bits, index in the next 16 bits, length
// in the next 16 bits.
func (e EpochWithFraction) Full() uint64 {
	return e.Number&0xFFFFFF | (e.Index&0xFFFF)<<24 | (e.Length&0xFFFF)<<40
}

// EpochFromFull decodes a packed epoch value produced by Full.
func EpochFromFull(v uint64) EpochWithFraction {
	return EpochWithFraction{
		Number: v & 0xFFFFFF,
		Index:  (v >> 24) & 0xFFFF,
		Length: (v >> 40) & 0xFFFF,
	}
}

func (e EpochWithFraction) String() string {
	return fmt.Sprintf("%d(%d/%d)", e.Number, e.Index, e.Length)
}

// Header is the fixed-size portion of a block: everything needed to
// validate proof-of-work and epoch continuity without touching the
// block body.
type Header struct {
	Number        uint64
	ParentHash    common.Hash
	Epoch         EpochWithFraction
	Timestamp     uint64
	CompactTarget uint32
	// TransactionsRoot commits to the block body's transaction list;
	// the non-contextual verifier recomputes it from the body.
	TransactionsRoot common.Hash
	DAO              [32]byte
	// ExtraHash commits to the uncle list and the block extension, so
	// that neither needs its own header field.
	ExtraHash common.Hash
	// Nonce and the proof-of-work specific fields are opaque to the
	// pipeline beyond what a verifier.PowEngine needs; they are kept as
	// raw bytes because their shape is consensus-parameter dependent.
	Nonce [16]byte

	hash    common.Hash
	hashSet bool
}

// Hash returns the header's identifying hash. The pipeline treats
// Header as logically immutable after construction, so the hash is
// computed once and cached; callers must not mutate a Header's fields
// after its Hash has been read.
func (h *Header) Hash() common.Hash {
	if h.hashSet {
		return h.hash
	}
	h.hash = computeHeaderHash(h)
	h.hashSet = true
	return h.hash
}

// SetHash installs a precomputed hash, used by tests and by decoders
// that already know the hash from a wire envelope and want to avoid
// recomputing it.
func (h *Header) SetHash(hash common.Hash) {
	h.hash = hash
	h.hashSet = true
}

func computeHeaderHash(h *Header) common.Hash {
	// A real node hashes the molecule-serialized header with blake2b;
	// serialization is out of scope here, so the pipeline depends only
	// on Hash returning a stable, content-derived identifier.
	var buf [8 + common.HashLength + 8 + 8 + 4 + common.HashLength + 32 + common.HashLength]byte
	off := 0
	putUint64(buf[off:], h.Number)
	off += 8
	copy(buf[off:], h.ParentHash.Bytes())
	off += common.HashLength
	putUint64(buf[off:], h.Epoch.Full())
	off += 8
	putUint64(buf[off:], h.Timestamp)
	off += 8
	putUint32(buf[off:], h.CompactTarget)
	off += 4
	copy(buf[off:], h.TransactionsRoot.Bytes())
	off += common.HashLength
	copy(buf[off:], h.DAO[:])
	off += 32
	copy(buf[off:], h.ExtraHash.Bytes())
	return common.BytesToHash(fnv1aSum(buf[:]))
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// fnv1aSum is a placeholder content digest. The pipeline never relies
// on this being a cryptographic hash, only on it being deterministic
// and collision-free for distinct test fixtures.
func fnv1aSum(data []byte) []byte {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, b := range data {
		h ^= uint64(b)
		h *= prime64
	}
	out := make([]byte, common.HashLength)
	for i := 0; i < 4; i++ {
		v := h
		for j := 0; j < 8; j++ {
			out[i*8+j] = byte(v)
			v >>= 8
		}
		h *= prime64
	}
	return out
}
