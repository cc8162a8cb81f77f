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

// UncleBlock is a stale sibling block referenced by a later block to
// share in that block's reward. Only the header and proposal list are
// kept; an uncle's transactions are never executed.
type UncleBlock struct {
	Header    *Header
	Proposals []ProposalShortId
}

// Hash returns the uncle's header hash.
func (u *UncleBlock) Hash() common.Hash { return u.Header.Hash() }

// Block is a full block: a header, its proposal short id list, its
// transactions (whose first entry is always the cellbase) and its
// uncles. Like Header, a Block is treated as logically immutable once
// constructed and handed to the pipeline; callers must not mutate a
// Block's fields after sharing it across goroutines.
type Block struct {
	Header       *Header
	Proposals    []ProposalShortId
	Transactions []*Transaction
	Uncles       []UncleBlock
	// Extension carries the block's auxiliary commitments (chain root,
	// cells root) whose exact layout is consensus-parameter dependent;
	// the pipeline treats it as opaque bytes outside the extension
	// verifier.
	Extension []byte
}

// Hash returns the block's header hash, which is what the pipeline
// uses to identify a block throughout the index, orphan pool and
// verify queue.
func (b *Block) Hash() common.Hash { return b.Header.Hash() }

// Number returns the block's height.
func (b *Block) Number() uint64 { return b.Header.Number }

// ParentHash returns the hash of the block this block extends.
func (b *Block) ParentHash() common.Hash { return b.Header.ParentHash }

// Cellbase returns the block's reward-minting transaction, which is
// always present and always first.
func (b *Block) Cellbase() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[0]
}
