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
	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// resolverLoop is the orphan resolver stage: it buffers blocks whose
// parent is unknown, and when a parent arrives it reassembles the
// buffered chain in parent-before-child order and feeds it to the
// consumer. Its inbox is closed by the intake stage on shutdown; it
// drains what remains and closes the consumer channel in turn.
func (c *Chain) resolverLoop() {
	defer c.wg.Done()
	defer close(c.consumeCh)
	for lb := range c.resolverCh {
		c.resolveBlock(lb)
	}
}

func (c *Chain) resolveBlock(lb *types.LonelyBlock) {
	hash := lb.Block.Hash()

	if _, ok := c.store.GetBlockNumber(hash); ok {
		c.logger.Debug("block already known", "hash", hash)
		lb.FireCallback(types.VerifyResult{AlreadyKnown: true})
		return
	}

	parentView, ok := c.lookupView(lb.Block.ParentHash())
	if !ok {
		evicted := c.orphans.Insert(lb)
		if len(evicted) > 0 {
			c.logger.Info("orphan pool over capacity, evicted oldest blocks", "count", len(evicted))
		}
		c.logger.Debug("buffered orphan block",
			"hash", hash, "number", lb.Block.Number(), "parent", lb.Block.ParentHash(), "pool", c.orphans.Len())
		return
	}

	c.promote(lb, parentView)
}

// promote forwards lb and every orphan-pool descendant it unblocks to
// the consumer, in parent-before-child order with siblings in
// insertion order. Each forwarded block gets its index view built off
// the advancing unverified tip, and the tip moves to the last block
// whose send completed; the blocking send is the pipeline's main
// backpressure point.
func (c *Chain) promote(lb *types.LonelyBlock, parentView *types.HeaderIndexView) {
	batch := append([]*types.LonelyBlock{lb}, c.orphans.RemoveBlocksByParent(lb.Block.Hash())...)
	views := map[common.Hash]*types.HeaderIndexView{parentView.Hash: parentView}

	for _, item := range batch {
		pv, ok := views[item.Block.ParentHash()]
		if !ok {
			// A sibling earlier in the batch failed to resolve its
			// parent view; put this subtree back rather than feeding
			// the consumer a block it cannot verify.
			c.orphans.Insert(item)
			continue
		}
		view := c.buildView(item.Block.Header, pv)
		c.index.Insert(view)
		views[view.Hash] = view

		c.consumeCh <- &types.UnverifiedBlock{LonelyBlock: item, ParentHeader: pv}
		c.setUnverifiedTip(view)
	}
}
