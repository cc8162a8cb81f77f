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
	"github.com/holiman/uint256"

	"github.com/nervosnetwork/ckb-go/core/types"
	"github.com/nervosnetwork/ckb-go/core/verifier"
)

// blockDifficulty converts a header's compact target into the work it
// contributes to total difficulty.
func blockDifficulty(h *types.Header) *uint256.Int {
	target, ok := verifier.CompactToTarget(h.CompactTarget)
	if !ok {
		// Undecodable targets are rejected before any view is built;
		// defensively contribute no work if one slips through.
		return uint256.NewInt(0)
	}
	return verifier.TargetToDifficulty(target)
}

// invertLowestOne clears the lowest set bit.
func invertLowestOne(n int64) int64 { return n & (n - 1) }

// skipHeight computes the height the skip pointer of a block at height
// points to, following Bitcoin Core's GetSkipHeight: a deterministic
// walk that makes repeated ancestor queries O(log n).
func skipHeight(height uint64) uint64 {
	if height < 2 {
		return 0
	}
	h := int64(height)
	if h&1 == 1 {
		return uint64(invertLowestOne(invertLowestOne(h-1)) + 1)
	}
	return uint64(invertLowestOne(h))
}

// ancestor walks from view down to the ancestor at the target number,
// taking skip pointers whenever they do not overshoot and parent links
// otherwise. Every hop resolves through the header index, so the walk
// works the same for committed and in-flight headers.
func (c *Chain) ancestor(view *types.HeaderIndexView, number uint64) (*types.HeaderIndexView, bool) {
	if view == nil || number > view.Number {
		return nil, false
	}
	walk := view
	for walk.Number > number {
		if walk.SkipHash != nil && skipHeight(walk.Number) >= number {
			if next, ok := c.lookupView(*walk.SkipHash); ok {
				walk = next
				continue
			}
		}
		parent, ok := c.lookupView(walk.ParentHash)
		if !ok {
			return nil, false
		}
		walk = parent
	}
	return walk, true
}

// findForkPoint locates the lowest common ancestor of two views by
// levelling them to the same height with skip-walks and then stepping
// both down in lockstep until the hashes meet.
func (c *Chain) findForkPoint(a, b *types.HeaderIndexView) (*types.HeaderIndexView, bool) {
	var ok bool
	if a.Number > b.Number {
		if a, ok = c.ancestor(a, b.Number); !ok {
			return nil, false
		}
	} else if b.Number > a.Number {
		if b, ok = c.ancestor(b, a.Number); !ok {
			return nil, false
		}
	}
	for a.Hash != b.Hash {
		if a.Number == 0 {
			return nil, false
		}
		if a, ok = c.lookupView(a.ParentHash); !ok {
			return nil, false
		}
		if b, ok = c.lookupView(b.ParentHash); !ok {
			return nil, false
		}
	}
	return a, true
}
