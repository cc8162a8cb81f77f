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

import "sync"

// VerifyCallback is invoked exactly once with the outcome of
// processing a block, however far through the pipeline it got.
type VerifyCallback func(VerifyResult)

// PeerOrigin identifies the peer a block arrived from, so the
// pipeline can report misbehavior back to the network layer. A nil
// *PeerOrigin means the block originated locally (e.g. the block
// assembler) and is never punished.
type PeerOrigin struct {
	PeerID      string
	MessageSize uint64
}

// LonelyBlock is a block that has entered the pipeline but has not yet
// been confirmed to chain relative to any known parent: it may turn
// out to be an orphan, a duplicate, or ready for immediate contextual
// verification. It owns the single callback that must eventually fire
// for this block, regardless of which stage resolves it.
type LonelyBlock struct {
	Block    *Block
	Origin   *PeerOrigin
	Switch   Switch
	callback VerifyCallback
	once     sync.Once
}

// NewLonelyBlock wraps a freshly received block with its callback.
func NewLonelyBlock(block *Block, origin *PeerOrigin, sw Switch, callback VerifyCallback) *LonelyBlock {
	return &LonelyBlock{Block: block, Origin: origin, Switch: sw, callback: callback}
}

// FireCallback invokes the block's callback with result. It is safe to
// call from any stage and from concurrent goroutines; only the first
// call has any effect, which is what guarantees the pipeline's
// at-most-once callback invariant even when a block is simultaneously
// resolved by two code paths (e.g. orphan resolution racing a direct
// hit).
func (lb *LonelyBlock) FireCallback(result VerifyResult) {
	lb.once.Do(func() {
		if lb.callback != nil {
			lb.callback(result)
		}
	})
}

// PunishPeer reports whether this block has a network origin that can
// be punished for sending an invalid block.
func (lb *LonelyBlock) PunishPeer() bool { return lb.Origin != nil }

// UnverifiedBlock is a LonelyBlock that the orphan resolver stage has
// confirmed sits directly on top of a known parent: ParentHeader
// supplies everything the contextual verifier needs about that
// parent without a further store lookup.
type UnverifiedBlock struct {
	*LonelyBlock
	ParentHeader *HeaderIndexView
}
