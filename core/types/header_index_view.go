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
	"github.com/holiman/uint256"

	"github.com/nervosnetwork/ckb-go/common"
)

// HeaderIndexView is the compact projection of a Header the header
// index stores and the orphan resolver and contextual verifier read:
// just enough to walk ancestry and compare chain work without holding
// every full header in memory.
type HeaderIndexView struct {
	Hash           common.Hash
	Number         uint64
	Epoch          EpochWithFraction
	Timestamp      uint64
	ParentHash      common.Hash
	TotalDifficulty *uint256.Int
	// SkipHash points further back than ParentHash along a
	// skip-list, allowing ancestor-at-height walks in O(log n) instead
	// of O(n). It is nil for blocks too close to genesis to have one.
	SkipHash *common.Hash
}

// NewHeaderIndexView projects a full header plus its accumulated
// total difficulty into a view, optionally attaching a skip pointer.
func NewHeaderIndexView(h *Header, totalDifficulty *uint256.Int, skip *common.Hash) *HeaderIndexView {
	return &HeaderIndexView{
		Hash:            h.Hash(),
		Number:          h.Number,
		Epoch:           h.Epoch,
		Timestamp:       h.Timestamp,
		ParentHash:      h.ParentHash,
		TotalDifficulty: totalDifficulty,
		SkipHash:        skip,
	}
}
