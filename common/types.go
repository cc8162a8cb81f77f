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

// Package common holds small value types shared by every layer of the
// pipeline: block and transaction hashes. Wire encoding of these types
// is outside the scope of this module.
package common

import "encoding/hex"

// HashLength is the expected length of a block or transaction hash.
const HashLength = 32

// Hash is a 32 byte blake2b-style digest, used to identify blocks and
// transactions throughout the pipeline.
type Hash [HashLength]byte

// BytesToHash sets the hash to the value of b, left-padded with zero
// bytes if b is shorter than HashLength and truncated from the left if
// longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns the raw bytes of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is the zero value, used to mark the
// "no parent" / genesis sentinel.
func (h Hash) IsZero() bool { return h == Hash{} }
