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

import "github.com/nervosnetwork/ckb-go/common"

// CalcTransactionsRoot computes the binary merkle root over the
// block's transaction hashes: leaves are the tx hashes in body order,
// odd nodes are promoted unpaired, an empty body hashes to zero. Block
// builders use it to fill Header.TransactionsRoot and the
// non-contextual verifier recomputes it for comparison.
func CalcTransactionsRoot(txs []*Transaction) common.Hash {
	if len(txs) == 0 {
		return common.Hash{}
	}
	level := make([]common.Hash, len(txs))
	for i, tx := range txs {
		level[i] = tx.Hash()
	}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// CalcUnclesHash digests the uncle list by hashing the concatenation
// of the uncle header hashes; an empty list digests to zero.
func CalcUnclesHash(uncles []UncleBlock) common.Hash {
	if len(uncles) == 0 {
		return common.Hash{}
	}
	buf := make([]byte, 0, len(uncles)*common.HashLength)
	for i := range uncles {
		buf = append(buf, uncles[i].Hash().Bytes()...)
	}
	return common.BytesToHash(fnv1aSum(buf))
}

// CalcExtraHash commits to the uncle list and, when present, the block
// extension: with no extension the extra hash is the uncles hash
// itself; otherwise it is the digest of the uncles hash concatenated
// with the extension digest.
func CalcExtraHash(uncles []UncleBlock, extension []byte) common.Hash {
	unclesHash := CalcUnclesHash(uncles)
	if len(extension) == 0 {
		return unclesHash
	}
	extHash := common.BytesToHash(fnv1aSum(extension))
	return hashPair(unclesHash, extHash)
}

func hashPair(a, b common.Hash) common.Hash {
	var buf [2 * common.HashLength]byte
	copy(buf[:], a.Bytes())
	copy(buf[common.HashLength:], b.Bytes())
	return common.BytesToHash(fnv1aSum(buf[:]))
}
