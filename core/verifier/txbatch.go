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

package verifier

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/txverify"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// verifyTxBatch runs contextual verification of the block's
// transactions, cellbase excluded, in data-parallel. Cache probes are
// taken up front in one pass; each worker then completes, resumes or
// re-checks its transaction as the cached state dictates. Completed
// entries are written back to the cache only after the block-level
// cycle budget check passes, so a rejected block leaves no trace in
// the cache.
func (v *Contextual) verifyTxBatch(b *types.Block, sw types.Switch) (uint64, []CompletedTx, error) {
	txs := b.Transactions[1:]
	if len(txs) == 0 {
		return 0, nil, nil
	}

	// Peek the whole round without touching recency; LRU refreshes
	// happen only for entries the block actually reuses.
	cached := make([]*txverify.CacheEntry, len(txs))
	for i, tx := range txs {
		if e, ok := v.cache.Peek(tx.Hash()); ok {
			entry := e
			cached[i] = &entry
		}
	}

	completed := make([]CompletedTx, len(txs))
	reused := make([]bool, len(txs))
	limit := v.consensus.MaxBlockCycles

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range txs {
		i := i
		tx := txs[i]
		g.Go(func() error {
			entry := cached[i]
			switch {
			case entry != nil && entry.Kind == txverify.KindCompleted:
				if err := v.txs.CheckTimeRelative(tx); err != nil {
					return batchTxError(i, err)
				}
				completed[i] = CompletedTx{Hash: tx.Hash(), Cycles: entry.Cycles, Fee: entry.Fee}
				reused[i] = true
			case entry != nil && entry.Kind == txverify.KindSuspended:
				out, err := v.txs.ResumeTx(tx, entry.Snapshot, limit)
				if err != nil {
					return batchTxError(i, err)
				}
				if out.Snapshot != nil {
					return batchTxError(i, fmt.Errorf("%w: resumed verification suspended again",
						chainerror.ErrExceededMaxCycles))
				}
				completed[i] = CompletedTx{Hash: tx.Hash(), Cycles: out.Cycles, Fee: out.Fee}
			default:
				out, err := v.txs.VerifyTx(tx, limit, sw.DisableScript())
				if err != nil {
					return batchTxError(i, err)
				}
				if out.Snapshot != nil {
					return batchTxError(i, fmt.Errorf("%w: verification did not complete within the block budget",
						chainerror.ErrExceededMaxCycles))
				}
				completed[i] = CompletedTx{Hash: tx.Hash(), Cycles: out.Cycles, Fee: out.Fee}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	var sum uint64
	for i := range completed {
		sum += completed[i].Cycles
	}
	if sum > v.consensus.MaxBlockCycles {
		v.logger.Debug("block exceeds cycle budget, cache left untouched",
			"block", b.Hash(), "cycles", sum, "max", v.consensus.MaxBlockCycles)
		return 0, nil, invalidContextual(fmt.Errorf("%w: %d > %d",
			chainerror.ErrExceededMaxCycles, sum, v.consensus.MaxBlockCycles))
	}

	// Budget passed: commit outcomes to the cache. Fresh completions
	// are inserted at most once per hash; reused entries only get a
	// recency refresh.
	for i := range completed {
		if reused[i] {
			v.cache.Touch(completed[i].Hash)
			continue
		}
		v.cache.Put(completed[i].Hash, txverify.Completed(completed[i].Cycles, completed[i].Fee))
	}
	return sum, completed, nil
}

// batchTxError annotates a per-transaction failure with its index in
// the block body (cellbase counted, matching the block's own indexing)
// and classifies it as invalid-contextual unless already typed.
func batchTxError(i int, err error) error {
	wrapped := fmt.Errorf("tx %d: %w", i+1, err)
	var be *chainerror.BlockError
	if errors.As(err, &be) {
		return chainerror.New(be.Kind, wrapped)
	}
	return invalidContextual(wrapped)
}
