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
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// intakeLoop is the process-block intake stage: a single worker that
// runs the stateless checks on each submitted block and forwards the
// survivors to the orphan resolver. It observes shutdown via the exit
// channel and, on exit, closes the downstream channel so the resolver
// can drain and terminate in turn.
func (c *Chain) intakeLoop() {
	defer c.wg.Done()
	defer close(c.resolverCh)
	for {
		select {
		case <-c.quit:
			return
		case lb := <-c.submitCh:
			c.processIntake(lb)
		}
	}
}

func (c *Chain) processIntake(lb *types.LonelyBlock) {
	block := lb.Block
	if block.Number() < 1 {
		c.logger.Warn("genesis submitted to the block pipeline", "hash", block.Hash())
		lb.FireCallback(types.VerifyResult{Err: chainerror.New(chainerror.KindSystem, chainerror.ErrInternalInvariant)})
		return
	}

	if !lb.Switch.DisableNonContextual() {
		if err := c.nonContextual.VerifyBlock(block); err != nil {
			c.logger.Debug("block failed non-contextual verification",
				"hash", block.Hash(), "number", block.Number(), "err", err)
			c.reportPeer(lb, err)
			lb.FireCallback(types.VerifyResult{Err: err})
			return
		}
	}

	select {
	case c.resolverCh <- lb:
	case <-c.quit:
		lb.FireCallback(types.VerifyResult{Err: chainerror.New(chainerror.KindSystem, chainerror.ErrShuttingDown)})
	}
}
