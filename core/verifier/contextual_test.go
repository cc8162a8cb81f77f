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
	"testing"

	"github.com/holiman/uint256"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/txverify"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// fakeStore is a map-backed ChainStore sufficient for the contextual
// verifier's read paths.
type fakeStore struct {
	blocks    map[common.Hash]*types.Block
	mainChain map[uint64]common.Hash
	uncles    map[common.Hash]struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		blocks:    make(map[common.Hash]*types.Block),
		mainChain: make(map[uint64]common.Hash),
		uncles:    make(map[common.Hash]struct{}),
	}
}

func (s *fakeStore) add(b *types.Block, main bool) {
	s.blocks[b.Hash()] = b
	if main {
		s.mainChain[b.Number()] = b.Hash()
	}
}

func (s *fakeStore) GetBlockHeader(h common.Hash) (*types.Header, bool) {
	b, ok := s.blocks[h]
	if !ok {
		return nil, false
	}
	return b.Header, true
}

func (s *fakeStore) GetBlock(h common.Hash) (*types.Block, bool) {
	b, ok := s.blocks[h]
	return b, ok
}

func (s *fakeStore) GetBlockHash(n uint64) (common.Hash, bool) {
	h, ok := s.mainChain[n]
	return h, ok
}

func (s *fakeStore) GetBlockNumber(h common.Hash) (uint64, bool) {
	b, ok := s.blocks[h]
	if !ok {
		return 0, false
	}
	return b.Number(), true
}

func (s *fakeStore) GetBlockProposalTxsIds(h common.Hash) ([]types.ProposalShortId, bool) {
	b, ok := s.blocks[h]
	if !ok {
		return nil, false
	}
	return b.Proposals, true
}

func (s *fakeStore) GetBlockUncles(h common.Hash) ([]types.UncleBlock, bool) {
	b, ok := s.blocks[h]
	if !ok {
		return nil, false
	}
	return b.Uncles, true
}

func (s *fakeStore) IsMainChain(h common.Hash) bool {
	b, ok := s.blocks[h]
	return ok && s.mainChain[b.Number()] == h
}

func (s *fakeStore) IsUncle(h common.Hash) bool {
	_, ok := s.uncles[h]
	return ok
}

func (s *fakeStore) BeginTx() (store.Tx, error) {
	return nil, fmt.Errorf("fakeStore is read-only")
}

type fakeMMR struct{ cellsRoot common.Hash }

func (m fakeMMR) CellsRootMMR() (common.Hash, error)                  { return m.cellsRoot, nil }
func (fakeMMR) GetCellsRootMMRStatus(types.OutPoint) (uint64, bool)   { return 0, false }
func (fakeMMR) InsertCellsRootMMRStatus(types.OutPoint, uint64) error { return nil }

type fixedDAO struct{ field [32]byte }

func (d fixedDAO) DAOField(*types.HeaderIndexView, []*types.Transaction) ([32]byte, error) {
	return d.field, nil
}

type fixedReward struct {
	reward uint64
	lock   types.Script
	ok     bool
}

func (r fixedReward) BlockReward(*types.HeaderIndexView) (uint64, types.Script, bool, error) {
	return r.reward, r.lock, r.ok, nil
}

// cycleTxVerifier reports per-tx cycles from a map, failing unknown
// hashes, and counts fresh (non-cache) verification runs.
type cycleTxVerifier struct {
	cycles map[common.Hash]uint64
	runs   int
}

func (v *cycleTxVerifier) VerifyTx(tx *types.Transaction, limit uint64, skipScript bool) (TxOutcome, error) {
	v.runs++
	c, ok := v.cycles[tx.Hash()]
	if !ok {
		return TxOutcome{}, fmt.Errorf("unknown transaction %s", tx.Hash())
	}
	return TxOutcome{Cycles: c}, nil
}

func (v *cycleTxVerifier) ResumeTx(tx *types.Transaction, snap *txverify.Snapshot, limit uint64) (TxOutcome, error) {
	return TxOutcome{Cycles: snap.ConsumedCycles + v.cycles[tx.Hash()]}, nil
}

func (v *cycleTxVerifier) CheckTimeRelative(*types.Transaction) error { return nil }

type fixedChainRoot struct{ root common.Hash }

func (r fixedChainRoot) ChainRoot(uint64) (common.Hash, error) { return r.root, nil }

// contextualFixture wires a verifier over a two-block main chain
// (genesis plus block 1) and returns the parent view for block 2.
type contextualFixture struct {
	cons   *consensus.Params
	store  *fakeStore
	cache  *txverify.Cache
	txs    *cycleTxVerifier
	dao    fixedDAO
	reward fixedReward
	mmr    fakeMMR
	root   fixedChainRoot
	parent *types.HeaderIndexView
}

func newContextualFixture(t *testing.T) *contextualFixture {
	t.Helper()
	f := &contextualFixture{
		cons:   consensus.Default(),
		store:  newFakeStore(),
		cache:  txverify.NewCache(64),
		txs:    &cycleTxVerifier{cycles: make(map[common.Hash]uint64)},
		reward: fixedReward{},
	}
	genesis := newTestBlock(0)
	genesis.Header.Epoch = types.EpochWithFraction{Number: 0, Index: 0, Length: f.cons.GenesisEpochLength}
	f.store.add(genesis, true)

	b1 := newTestBlock(1)
	b1.Header.ParentHash = genesis.Hash()
	b1.Header.Epoch = f.cons.ExpectedEpoch(1, genesis.Header.Epoch)
	f.store.add(b1, true)

	f.parent = types.NewHeaderIndexView(b1.Header, uint256.NewInt(10), nil)
	return f
}

func (f *contextualFixture) verifier() *Contextual {
	return NewContextual(f.cons, f.store, f.mmr, f.dao, f.reward, f.txs, f.root, f.cache)
}

// childBlock builds block 2 on the fixture's parent.
func (f *contextualFixture) childBlock(txs ...*types.Transaction) *types.Block {
	b := newTestBlock(2, txs...)
	b.Header.ParentHash = f.parent.Hash
	b.Header.Epoch = f.cons.ExpectedEpoch(2, f.parent.Epoch)
	b.Header.ExtraHash = types.CalcExtraHash(b.Uncles, b.Extension)
	return b
}

func TestContextualAcceptsValidBlock(t *testing.T) {
	f := newContextualFixture(t)
	b := f.childBlock()
	cycles, completed, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if err != nil {
		t.Fatalf("valid block rejected: %v", err)
	}
	if cycles != 0 || len(completed) != 0 {
		t.Fatalf("cellbase-only block must verify at zero cycles, got %d/%d entries", cycles, len(completed))
	}
}

func TestContextualRejectsEpochMismatch(t *testing.T) {
	f := newContextualFixture(t)
	b := f.childBlock()
	b.Header.Epoch = types.EpochWithFraction{Number: 99, Index: 0, Length: 1}
	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrEpochNumberMismatch) {
		t.Fatalf("want epoch mismatch, got %v", err)
	}
	// Disabling the epoch check lets the same block through.
	if _, _, err := f.verifier().VerifyBlock(f.parent, b, types.SwitchDisableEpoch); err != nil {
		t.Fatalf("switch must skip the epoch check: %v", err)
	}
}

func TestContextualRejectsDoubleIncludedUncle(t *testing.T) {
	f := newContextualFixture(t)
	uncleParent := f.store.blocks[f.store.mainChain[0]]
	uncle := types.UncleBlock{Header: &types.Header{Number: 1, ParentHash: uncleParent.Hash()}}
	f.store.uncles[uncle.Hash()] = struct{}{}

	b := f.childBlock()
	b.Uncles = []types.UncleBlock{uncle}
	b.Header.ExtraHash = types.CalcExtraHash(b.Uncles, b.Extension)
	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrUncleDoubleInclusion) {
		t.Fatalf("want uncle double inclusion, got %v", err)
	}
}

func TestContextualRejectsUncleAtWrongHeight(t *testing.T) {
	f := newContextualFixture(t)
	uncleParent := f.store.blocks[f.store.mainChain[0]]
	uncle := types.UncleBlock{Header: &types.Header{Number: 5, ParentHash: uncleParent.Hash()}}

	b := f.childBlock()
	b.Uncles = []types.UncleBlock{uncle}
	b.Header.ExtraHash = types.CalcExtraHash(b.Uncles, b.Extension)
	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrUncleInvalidParent) {
		t.Fatalf("want uncle invalid parent, got %v", err)
	}
}

func TestContextualTwoPhaseCommitWindow(t *testing.T) {
	f := newContextualFixture(t)
	f.cons.TxProposalWindow = consensus.ProposalWindow{Closest: 1, Farthest: 10}

	tx := &types.Transaction{
		Inputs:      []types.OutPoint{{TxHash: common.BytesToHash([]byte{42}), Index: 0}},
		Outputs:     []types.CellOutput{{Capacity: 100}},
		OutputsData: [][]byte{nil},
	}
	f.txs.cycles[tx.Hash()] = 1

	// Unproposed: the committing block must be rejected.
	b := f.childBlock(tx)
	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrCommitWindowViolated) {
		t.Fatalf("want commit window violation, got %v", err)
	}

	// Proposed in the parent (number-1, inside [number-10, number-1]):
	// accepted.
	parentBlock := f.store.blocks[f.parent.Hash]
	parentBlock.Proposals = []types.ProposalShortId{tx.ProposalShortId()}
	if _, _, err := f.verifier().VerifyBlock(f.parent, b, 0); err != nil {
		t.Fatalf("proposed transaction rejected: %v", err)
	}
}

func TestContextualRejectsDAOMismatch(t *testing.T) {
	f := newContextualFixture(t)
	f.dao = fixedDAO{field: [32]byte{1, 2, 3}}
	b := f.childBlock()
	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrInvalidDAO) {
		t.Fatalf("want dao mismatch, got %v", err)
	}
	b.Header.DAO = [32]byte{1, 2, 3}
	if _, _, err := f.verifier().VerifyBlock(f.parent, b, 0); err != nil {
		t.Fatalf("matching dao rejected: %v", err)
	}
}

func TestContextualRewardChecks(t *testing.T) {
	f := newContextualFixture(t)

	// No finalization target yet: cellbase must be outputless.
	b := f.childBlock()
	b.Transactions[0].Outputs = []types.CellOutput{{Capacity: 5}}
	b.Transactions[0].OutputsData = [][]byte{nil}
	b.Header.TransactionsRoot = types.CalcTransactionsRoot(b.Transactions)
	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrInvalidRewardAmount) {
		t.Fatalf("want reward amount error, got %v", err)
	}

	// Finalized reward: first output must match amount and lock.
	lock := types.Script{CodeHash: common.BytesToHash([]byte{9}), HashType: 1}
	f.reward = fixedReward{reward: 5000, lock: lock, ok: true}
	b2 := f.childBlock()
	b2.Transactions[0].Outputs = []types.CellOutput{{Capacity: 5000, Lock: lock}}
	b2.Transactions[0].OutputsData = [][]byte{nil}
	b2.Header.TransactionsRoot = types.CalcTransactionsRoot(b2.Transactions)
	if _, _, err := f.verifier().VerifyBlock(f.parent, b2, 0); err != nil {
		t.Fatalf("exact reward rejected: %v", err)
	}

	b2.Transactions[0].Outputs[0].Capacity = 4999
	_, _, err = f.verifier().VerifyBlock(f.parent, b2, 0)
	if !errors.Is(err, chainerror.ErrInvalidRewardAmount) {
		t.Fatalf("want reward amount mismatch, got %v", err)
	}
}

func TestContextualExtensionChecks(t *testing.T) {
	f := newContextualFixture(t)
	f.cons.LightClientActivated = true
	chainRoot := common.BytesToHash([]byte("chain-root"))
	f.root = fixedChainRoot{root: chainRoot}

	// Too short for the activated commitment.
	b := f.childBlock()
	b.Extension = []byte{1, 2, 3}
	b.Header.ExtraHash = types.CalcExtraHash(b.Uncles, b.Extension)
	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrBlockExtensionShape) {
		t.Fatalf("want extension shape error, got %v", err)
	}

	// Wrong committed root.
	b.Extension = make([]byte, 32)
	b.Header.ExtraHash = types.CalcExtraHash(b.Uncles, b.Extension)
	_, _, err = f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrInvalidChainRoot) {
		t.Fatalf("want chain root error, got %v", err)
	}

	// Correct root but stale extra hash.
	b.Extension = append([]byte{}, chainRoot.Bytes()...)
	b.Header.ExtraHash = common.Hash{}
	_, _, err = f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrInvalidExtraHash) {
		t.Fatalf("want extra hash error, got %v", err)
	}

	// Fully consistent.
	b.Header.ExtraHash = types.CalcExtraHash(b.Uncles, b.Extension)
	if _, _, err := f.verifier().VerifyBlock(f.parent, b, 0); err != nil {
		t.Fatalf("valid extension rejected: %v", err)
	}
}

func TestContextualBatchSumsCyclesAndFillsCache(t *testing.T) {
	f := newContextualFixture(t)
	f.cons.TxProposalWindow = consensus.ProposalWindow{Closest: 1, Farthest: 10}

	var txs []*types.Transaction
	var want uint64
	for i := 0; i < 4; i++ {
		tx := &types.Transaction{
			Inputs:      []types.OutPoint{{TxHash: common.BytesToHash([]byte{byte(i + 1)}), Index: 0}},
			Outputs:     []types.CellOutput{{Capacity: 100}},
			OutputsData: [][]byte{nil},
		}
		f.txs.cycles[tx.Hash()] = uint64(1000 * (i + 1))
		want += uint64(1000 * (i + 1))
		txs = append(txs, tx)
	}
	b := f.childBlock(txs...)
	parentBlock := f.store.blocks[f.parent.Hash]
	for _, tx := range txs {
		parentBlock.Proposals = append(parentBlock.Proposals, tx.ProposalShortId())
	}

	cycles, completed, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if err != nil {
		t.Fatalf("batch rejected: %v", err)
	}
	if cycles != want {
		t.Fatalf("cycles = %d, want %d", cycles, want)
	}
	if len(completed) != len(txs) {
		t.Fatalf("completed = %d entries, want %d", len(completed), len(txs))
	}
	for _, tx := range txs {
		e, ok := f.cache.Peek(tx.Hash())
		if !ok || e.Kind != txverify.KindCompleted {
			t.Fatalf("tx %s missing from cache after accept", tx.Hash())
		}
		if e.Cycles != f.txs.cycles[tx.Hash()] {
			t.Fatalf("cached cycles %d != verified cycles %d", e.Cycles, f.txs.cycles[tx.Hash()])
		}
	}

	// A second verification reuses the cache: no fresh runs.
	runsBefore := f.txs.runs
	if _, _, err := f.verifier().VerifyBlock(f.parent, b, 0); err != nil {
		t.Fatalf("cached re-verification failed: %v", err)
	}
	if f.txs.runs != runsBefore {
		t.Fatalf("cache hit still ran full verification %d times", f.txs.runs-runsBefore)
	}
}

func TestContextualCycleOverrunLeavesCacheEmpty(t *testing.T) {
	f := newContextualFixture(t)
	f.cons.TxProposalWindow = consensus.ProposalWindow{Closest: 1, Farthest: 10}
	f.cons.MaxBlockCycles = 1000

	tx := &types.Transaction{
		Inputs:      []types.OutPoint{{TxHash: common.BytesToHash([]byte{1}), Index: 0}},
		Outputs:     []types.CellOutput{{Capacity: 100}},
		OutputsData: [][]byte{nil},
	}
	f.txs.cycles[tx.Hash()] = 1001
	b := f.childBlock(tx)
	f.store.blocks[f.parent.Hash].Proposals = []types.ProposalShortId{tx.ProposalShortId()}

	_, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if !errors.Is(err, chainerror.ErrExceededMaxCycles) {
		t.Fatalf("want cycle overrun, got %v", err)
	}
	if f.cache.Len() != 0 {
		t.Fatalf("rejected block leaked %d cache entries", f.cache.Len())
	}
}

func TestContextualResumesSuspendedVerification(t *testing.T) {
	f := newContextualFixture(t)
	f.cons.TxProposalWindow = consensus.ProposalWindow{Closest: 1, Farthest: 10}

	tx := &types.Transaction{
		Inputs:      []types.OutPoint{{TxHash: common.BytesToHash([]byte{1}), Index: 0}},
		Outputs:     []types.CellOutput{{Capacity: 100}},
		OutputsData: [][]byte{nil},
	}
	f.txs.cycles[tx.Hash()] = 300
	f.cache.Put(tx.Hash(), txverify.Suspended(&txverify.Snapshot{ConsumedCycles: 700}))

	b := f.childBlock(tx)
	f.store.blocks[f.parent.Hash].Proposals = []types.ProposalShortId{tx.ProposalShortId()}

	cycles, _, err := f.verifier().VerifyBlock(f.parent, b, 0)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if cycles != 1000 {
		t.Fatalf("resumed cycles = %d, want 1000 (700 consumed + 300 remaining)", cycles)
	}
	e, ok := f.cache.Peek(tx.Hash())
	if !ok || e.Kind != txverify.KindCompleted || e.Cycles != 1000 {
		t.Fatalf("suspended entry not promoted to completed: %+v ok=%v", e, ok)
	}
}
