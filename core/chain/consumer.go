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
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/types"
)

type truncateRequest struct {
	target common.Hash
	resp   chan error
}

// consumerLoop is the unverified consumer stage: it drives the
// contextual verifier over the ordered stream from the resolver,
// commits accepted blocks, and services test-only truncate requests.
// It terminates once the resolver closes its channel and the remaining
// blocks are drained.
func (c *Chain) consumerLoop() {
	defer c.wg.Done()
	for {
		select {
		case req := <-c.truncateCh:
			req.resp <- c.handleTruncate(req.target)
		case ub, ok := <-c.consumeCh:
			if !ok {
				return
			}
			c.consumeBlock(ub)
		}
	}
}

func (c *Chain) consumeBlock(ub *types.UnverifiedBlock) {
	hash := ub.Block.Hash()

	if cause, ok := c.rejected[ub.Block.ParentHash()]; ok {
		err := chainerror.New(chainerror.KindInvalidContextual,
			fmt.Errorf("%w: parent %s: %v", chainerror.ErrInvalidDescendant, ub.Block.ParentHash(), cause))
		c.rejectBlock(ub, err)
		return
	}
	if _, ok := c.store.GetBlockNumber(hash); ok {
		ub.FireCallback(types.VerifyResult{AlreadyKnown: true})
		return
	}

	cycles, _, err := c.contextual.VerifyBlock(ub.ParentHeader, ub.Block, ub.Switch)
	if err != nil {
		c.rejectBlock(ub, err)
		return
	}

	if err := c.commitBlock(ub, cycles); err != nil {
		c.logger.Error("failed to commit verified block", "hash", hash, "err", err)
		ub.FireCallback(types.VerifyResult{Err: chainerror.New(chainerror.KindSystem, err)})
		return
	}
	ub.FireCallback(types.VerifyResult{Cycles: cycles})
}

// rejectBlock fires ub's callback with err, reports the peer, and for
// contextual failures invalidates every orphan-pool descendant with an
// InvalidDescendant error of the same class.
func (c *Chain) rejectBlock(ub *types.UnverifiedBlock, err error) {
	hash := ub.Block.Hash()
	kind := errorKind(err)
	c.logger.Warn("rejecting block", "hash", hash, "number", ub.Block.Number(), "kind", kind, "err", err)

	c.reportPeer(ub.LonelyBlock, err)
	ub.FireCallback(types.VerifyResult{Err: err})

	if kind != chainerror.KindInvalidContextual && kind != chainerror.KindMalformed {
		// System failures condemn this block only.
		return
	}

	c.rejected[hash] = err
	c.index.Remove(hash)
	for _, d := range c.orphans.RemoveBlocksByParent(hash) {
		derr := chainerror.New(chainerror.KindInvalidContextual,
			fmt.Errorf("%w: ancestor %s: %v", chainerror.ErrInvalidDescendant, hash, err))
		c.rejected[d.Block.Hash()] = derr
		c.reportPeer(d, derr)
		d.FireCallback(types.VerifyResult{Err: derr})
	}
	c.setUnverifiedTip(c.BestTip())
}

// commitBlock persists ub inside a single store transaction and,
// depending on which side of the active chain it lies, extends the
// best tip, reorganizes onto its branch, or accepts it as a side
// branch. Post-commit notifications fire only on a tip change.
func (c *Chain) commitBlock(ub *types.UnverifiedBlock, cycles uint64) error {
	block := ub.Block
	hash := block.Hash()

	view, ok := c.lookupView(hash)
	if !ok {
		return fmt.Errorf("%w: no index view for block %s", chainerror.ErrInternalInvariant, hash)
	}

	tx, err := c.store.BeginTx()
	if err != nil {
		return fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
	}
	if err := tx.InsertBlock(block); err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
	}

	best := c.BestTip()
	newBest := best
	var committed, returned []*types.Transaction

	switch {
	case block.ParentHash() == best.Hash:
		if err := tx.AttachBlock(hash); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
		}
		committed = block.Transactions[1:]
		newBest = view

	case view.TotalDifficulty.Cmp(best.TotalDifficulty) > 0:
		committed, returned, err = c.reorg(tx, best, view, block)
		if err != nil {
			tx.Rollback()
			return err
		}
		newBest = view

	default:
		// Side-branch accept: the block is persisted, the tip stays.
		c.logger.Debug("accepted side-branch block", "hash", hash, "number", block.Number())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
	}

	if newBest != best {
		c.setBestTip(newBest)
		ids := make([]types.ProposalShortId, 0, len(committed))
		for _, t := range committed {
			ids = append(ids, t.ProposalShortId())
		}
		c.queue.RemoveBatch(ids)
		if c.txpool != nil {
			c.txpool.OnChainCommitted(newBest, committed, returned)
			c.txpool.OnProposalWindowMoved(newBest.Number)
		}
		c.headFeed.Send(ChainHeadEvent{Tip: newBest, Block: block})
		c.logger.Info("best tip advanced", "hash", newBest.Hash, "number", newBest.Number,
			"td", newBest.TotalDifficulty, "cycles", cycles)
	}
	return nil
}

// reorg replaces the active chain's suffix with the heavier branch
// ending at newTip. Old-branch blocks are disconnected highest-first
// and their transactions collected for return to the pool in reverse
// commit order; new-branch blocks are connected in forward order.
// Transactions present on both branches are not returned.
func (c *Chain) reorg(tx store.Tx, best, newTip *types.HeaderIndexView, newBlock *types.Block) (committed, returned []*types.Transaction, err error) {
	fork, ok := c.findForkPoint(best, newTip)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no common ancestor between %s and %s",
			chainerror.ErrInternalInvariant, best.Hash, newTip.Hash)
	}
	c.logger.Info("chain reorg", "from", best.Hash, "to", newTip.Hash, "fork", fork.Hash, "forkNumber", fork.Number)

	walk := best
	for walk.Hash != fork.Hash {
		b, ok := c.store.GetBlock(walk.Hash)
		if !ok {
			return nil, nil, fmt.Errorf("%w: detaching unknown block %s", chainerror.ErrInternalInvariant, walk.Hash)
		}
		if err := tx.DetachBlock(walk.Hash); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
		}
		for i := len(b.Transactions) - 1; i >= 1; i-- {
			returned = append(returned, b.Transactions[i])
		}
		if walk, ok = c.lookupView(walk.ParentHash); !ok {
			return nil, nil, fmt.Errorf("%w: lost view while detaching", chainerror.ErrInternalInvariant)
		}
	}

	var attach []*types.Block
	cur := newTip
	for cur.Hash != fork.Hash {
		b := newBlock
		if cur.Hash != newBlock.Hash() {
			var found bool
			if b, found = c.store.GetBlock(cur.Hash); !found {
				return nil, nil, fmt.Errorf("%w: attaching unknown block %s", chainerror.ErrInternalInvariant, cur.Hash)
			}
		}
		attach = append(attach, b)
		if cur, ok = c.lookupView(cur.ParentHash); !ok {
			return nil, nil, fmt.Errorf("%w: lost view while attaching", chainerror.ErrInternalInvariant)
		}
	}
	for i := len(attach) - 1; i >= 0; i-- {
		b := attach[i]
		if err := tx.AttachBlock(b.Hash()); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
		}
		committed = append(committed, b.Transactions[1:]...)
	}

	// Only transactions unique to the old branch go back to the pool.
	onNewBranch := mapset.NewThreadUnsafeSet[common.Hash]()
	for _, t := range committed {
		onNewBranch.Add(t.Hash())
	}
	unique := returned[:0]
	for _, t := range returned {
		if !onNewBranch.Contains(t.Hash()) {
			unique = append(unique, t)
		}
	}
	return committed, unique, nil
}

// Truncate rewinds the active chain to the block identified by target
// by repeated single-block disconnects. Test-only; the target must be
// on the active chain.
func (c *Chain) Truncate(target common.Hash) error {
	req := truncateRequest{target: target, resp: make(chan error, 1)}
	select {
	case c.truncateCh <- req:
	case <-c.quit:
		return chainerror.New(chainerror.KindSystem, chainerror.ErrShuttingDown)
	}
	select {
	case err := <-req.resp:
		return err
	case <-c.quit:
		return chainerror.New(chainerror.KindSystem, chainerror.ErrShuttingDown)
	}
}

func (c *Chain) handleTruncate(target common.Hash) error {
	targetView, ok := c.lookupView(target)
	if !ok {
		return fmt.Errorf("truncate: target %s not in header index", target)
	}
	if !c.store.IsMainChain(target) {
		return fmt.Errorf("truncate: target %s is not on the active chain", target)
	}

	best := c.BestTip()
	for best.Hash != target {
		tx, err := c.store.BeginTx()
		if err != nil {
			return fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
		}
		if err := tx.DetachBlock(best.Hash); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: %v", chainerror.ErrStoreTransaction, err)
		}
		parent, ok := c.lookupView(best.ParentHash)
		if !ok {
			return fmt.Errorf("%w: lost view while truncating", chainerror.ErrInternalInvariant)
		}
		best = parent
	}

	c.tipMu.Lock()
	c.bestTip = targetView
	c.unverifiedTip = targetView
	c.tipMu.Unlock()
	c.logger.Info("chain truncated", "tip", targetView.Hash, "number", targetView.Number)
	return nil
}
