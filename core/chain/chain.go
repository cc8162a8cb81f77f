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

// Package chain implements the block ingestion and verification
// pipeline: the process-block intake stage, the orphan resolver, the
// unverified consumer, and the controller that owns their channels and
// lifecycle. Blocks enter through the controller's ProcessBlock API and
// leave as committed chain state in the backing store, with every
// submitted block's callback fired exactly once along the way.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/consensus"
	"github.com/nervosnetwork/ckb-go/core/headerindex"
	"github.com/nervosnetwork/ckb-go/core/orphan"
	"github.com/nervosnetwork/ckb-go/core/store"
	"github.com/nervosnetwork/ckb-go/core/txverify"
	"github.com/nervosnetwork/ckb-go/core/types"
	"github.com/nervosnetwork/ckb-go/core/verifier"
	"github.com/nervosnetwork/ckb-go/event"
	"github.com/nervosnetwork/ckb-go/log"
)

// defaultHeaderIndexMemory is the header index byte budget used when
// the caller does not set one: roughly two million in-flight header
// views before the cold tier sees any traffic.
const defaultHeaderIndexMemory = 256 << 20

// defaultTxCacheSize caps the transaction verification cache.
const defaultTxCacheSize = 10_000

// ChainHeadEvent is posted on every best-tip advance: extensions and
// reorgs, but not side-branch accepts.
type ChainHeadEvent struct {
	Tip   *types.HeaderIndexView
	Block *types.Block
}

// PeerReport is one outbound misbehavior report, consumed by the
// synchronizer to ban or penalize the peer that sent a bad block.
type PeerReport struct {
	PeerID      string
	BlockHash   common.Hash
	MessageSize uint64
	Kind        chainerror.Kind
	Err         error
}

// TxPoolNotifier receives the consumer stage's post-commit
// notifications. Implementations must not block for long; they run on
// the consumer worker.
type TxPoolNotifier interface {
	// OnChainCommitted reports a best-tip change: the new tip, the
	// transactions newly committed under it, and the transactions
	// returned to the pool by a reorg's disconnects (reverse commit
	// order, most recent first).
	OnChainCommitted(tip *types.HeaderIndexView, committed, returned []*types.Transaction)
	// OnProposalWindowMoved reports the tip number after any commit so
	// the proposal window tracker can slide forward.
	OnProposalWindowMoved(tipNumber uint64)
}

// Config carries the pipeline's tunables and its external building
// blocks. Zero-value fields fall back to conservative defaults; nil
// collaborators fall back to permissive stand-ins suitable for tests
// and trusted import paths.
type Config struct {
	// HeaderIndexMemory is the header index byte budget.
	HeaderIndexMemory uint64
	// WorkDir hosts the header index cold-tier temp directory; empty
	// means the OS temp location.
	WorkDir string
	// TxCacheSize caps the transaction verification cache entries.
	TxCacheSize int

	Pow        verifier.PowEngine
	DAO        verifier.DAOCalculator
	Reward     verifier.RewardCalculator
	TxVerifier verifier.TxVerifier
	ChainRoot  verifier.ChainRootMMR
	TxPool     TxPoolNotifier
}

// Chain is the pipeline controller: it owns the three stage workers,
// the channels between them, the shared components (header index,
// orphan pool, verification cache and queue) and the two observable
// tips.
type Chain struct {
	consensus *consensus.Params
	store     store.ChainStore
	config    Config

	index   *headerindex.Index
	orphans *orphan.Pool
	cache   *txverify.Cache
	queue   *txverify.Queue

	nonContextual *verifier.NonContextual
	contextual    *verifier.Contextual
	txpool        TxPoolNotifier

	submitCh   chan *types.LonelyBlock
	resolverCh chan *types.LonelyBlock
	consumeCh  chan *types.UnverifiedBlock
	truncateCh chan truncateRequest

	quit      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	tipMu         sync.RWMutex
	bestTip       *types.HeaderIndexView
	unverifiedTip *types.HeaderIndexView

	// rejected records blocks the consumer refused, so descendants
	// already in flight are refused in turn. Only the consumer worker
	// touches it.
	rejected map[common.Hash]error

	headFeed   event.Feed[ChainHeadEvent]
	reportFeed event.Feed[PeerReport]
	scope      event.SubscriptionScope

	logger log.Logger
}

// New builds the pipeline around an existing store and consensus
// object. genesis bootstraps an empty store; when the store already
// holds the genesis block it is only used to seed the in-memory tip
// views. Call Start before submitting blocks.
func New(c *consensus.Params, st store.ChainStore, genesis *types.Block, cfg Config) (*Chain, error) {
	if cfg.HeaderIndexMemory == 0 {
		cfg.HeaderIndexMemory = defaultHeaderIndexMemory
	}
	if cfg.TxCacheSize == 0 {
		cfg.TxCacheSize = defaultTxCacheSize
	}
	if cfg.Pow == nil {
		cfg.Pow = verifier.DefaultPow
	}
	if cfg.DAO == nil {
		cfg.DAO = zeroDAO{}
	}
	if cfg.Reward == nil {
		cfg.Reward = pendingReward{}
	}
	if cfg.TxVerifier == nil {
		cfg.TxVerifier = freeTxVerifier{}
	}
	if cfg.ChainRoot == nil {
		cfg.ChainRoot = zeroChainRoot{}
	}

	index, err := headerindex.Open(cfg.HeaderIndexMemory, cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("chain: opening header index: %w", err)
	}

	cache := txverify.NewCache(cfg.TxCacheSize)
	ch := &Chain{
		consensus:     c,
		store:         st,
		config:        cfg,
		index:         index,
		orphans:       orphan.New(c.OrphanPoolCapacity()),
		cache:         cache,
		queue:         txverify.New(),
		nonContextual: verifier.NewNonContextual(c, cfg.Pow),
		txpool:        cfg.TxPool,
		submitCh:      make(chan *types.LonelyBlock, c.IntakeChannelSize()),
		resolverCh:    make(chan *types.LonelyBlock, c.IntakeChannelSize()),
		consumeCh:     make(chan *types.UnverifiedBlock, c.ConsumerChannelSize()),
		truncateCh:    make(chan truncateRequest, 1),
		quit:          make(chan struct{}),
		rejected:      make(map[common.Hash]error),
		logger:        log.New("component", "chain"),
	}
	ch.contextual = verifier.NewContextual(c, st, mmrStoreOf(st), cfg.DAO, cfg.Reward, cfg.TxVerifier, cfg.ChainRoot, cache)

	if err := ch.bootstrap(genesis); err != nil {
		index.Close()
		return nil, err
	}
	return ch, nil
}

// bootstrap commits genesis into an empty store and seeds the tip
// views either way.
func (c *Chain) bootstrap(genesis *types.Block) error {
	hash := genesis.Hash()
	if _, ok := c.store.GetBlockNumber(hash); !ok {
		tx, err := c.store.BeginTx()
		if err != nil {
			return fmt.Errorf("chain: bootstrap: %w", err)
		}
		if err := tx.InsertBlock(genesis); err != nil {
			tx.Rollback()
			return fmt.Errorf("chain: bootstrap: %w", err)
		}
		if err := tx.AttachBlock(hash); err != nil {
			tx.Rollback()
			return fmt.Errorf("chain: bootstrap: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("chain: bootstrap: %w", err)
		}
	}
	view := types.NewHeaderIndexView(genesis.Header, blockDifficulty(genesis.Header), nil)
	c.index.Insert(view)
	c.tipMu.Lock()
	c.bestTip = view
	c.unverifiedTip = view
	c.tipMu.Unlock()
	return nil
}

// Start launches the three stage workers. Safe to call once.
func (c *Chain) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(3)
		go c.intakeLoop()
		go c.resolverLoop()
		go c.consumerLoop()
	})
}

// Stop signals shutdown, waits for the stages to drain and exit, fires
// the callbacks of blocks still buffered at exit with a shutdown
// error, and releases the header index.
func (c *Chain) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
		c.wg.Wait()

		shutdown := types.VerifyResult{Err: chainerror.New(chainerror.KindSystem, chainerror.ErrShuttingDown)}
		for {
			select {
			case lb := <-c.submitCh:
				lb.FireCallback(shutdown)
				continue
			default:
			}
			break
		}
		for _, lb := range c.orphans.Drain() {
			lb.FireCallback(shutdown)
		}
		c.scope.Close()
		if err := c.index.Close(); err != nil {
			c.logger.Error("closing header index", "err", err)
		}
	})
}

// ProcessBlockAsync enqueues block for verification. The callback, if
// non-nil, fires exactly once with the final outcome. origin
// identifies the sending peer for misbehavior reporting; nil means a
// local (never punished) source. Returns an error only when the
// pipeline is shut down, in which case the callback still fires.
func (c *Chain) ProcessBlockAsync(block *types.Block, origin *types.PeerOrigin, sw types.Switch, cb types.VerifyCallback) error {
	lb := types.NewLonelyBlock(block, origin, sw, cb)
	select {
	case c.submitCh <- lb:
		select {
		case <-c.quit:
			// The send raced shutdown and may never be picked up by
			// the intake worker or the Stop drain; the once-guard on
			// the callback makes this safety net idempotent.
			err := chainerror.New(chainerror.KindSystem, chainerror.ErrShuttingDown)
			lb.FireCallback(types.VerifyResult{Err: err})
			return err
		default:
		}
		return nil
	case <-c.quit:
		err := chainerror.New(chainerror.KindSystem, chainerror.ErrShuttingDown)
		lb.FireCallback(types.VerifyResult{Err: err})
		return err
	}
}

// ProcessBlockBlocking submits block and waits for its outcome, built
// on the async path plus a single-shot result channel.
func (c *Chain) ProcessBlockBlocking(block *types.Block, sw types.Switch) types.VerifyResult {
	res := make(chan types.VerifyResult, 1)
	if err := c.ProcessBlockAsync(block, nil, sw, func(r types.VerifyResult) { res <- r }); err != nil {
		return types.VerifyResult{Err: err}
	}
	return <-res
}

// GetOrphanBlock returns the buffered orphan with the given hash, used
// by the relay protocol to answer short-round-trip block requests.
func (c *Chain) GetOrphanBlock(hash common.Hash) (*types.Block, bool) {
	return c.orphans.GetBlock(hash)
}

// OrphanBlocksLen reports the orphan pool's current size.
func (c *Chain) OrphanBlocksLen() int { return c.orphans.Len() }

// BestTip returns the last fully verified block at the active head.
func (c *Chain) BestTip() *types.HeaderIndexView {
	c.tipMu.RLock()
	defer c.tipMu.RUnlock()
	return c.bestTip
}

// UnverifiedTip returns the furthest block that has passed
// non-contextual checks and is in flight toward the consumer.
func (c *Chain) UnverifiedTip() *types.HeaderIndexView {
	c.tipMu.RLock()
	defer c.tipMu.RUnlock()
	return c.unverifiedTip
}

func (c *Chain) setBestTip(v *types.HeaderIndexView) {
	c.tipMu.Lock()
	c.bestTip = v
	if c.unverifiedTip == nil || c.unverifiedTip.Number < v.Number {
		c.unverifiedTip = v
	}
	c.tipMu.Unlock()
}

func (c *Chain) setUnverifiedTip(v *types.HeaderIndexView) {
	c.tipMu.Lock()
	c.unverifiedTip = v
	c.tipMu.Unlock()
}

// SubscribeChainHead delivers best-tip advances on ch until the
// subscription is cancelled.
func (c *Chain) SubscribeChainHead(ch chan<- ChainHeadEvent) event.Subscription {
	return c.scope.Track(c.headFeed.Subscribe(ch))
}

// SubscribeMisbehavior delivers peer misbehavior reports on ch. With
// no subscriber, reports are logged and dropped.
func (c *Chain) SubscribeMisbehavior(ch chan<- PeerReport) event.Subscription {
	return c.scope.Track(c.reportFeed.Subscribe(ch))
}

// VerifyQueue exposes the shared transaction verify queue the tx pool
// admission path feeds; the consumer stage clears committed entries
// out of it.
func (c *Chain) VerifyQueue() *txverify.Queue { return c.queue }

// TxVerificationCache exposes the shared verification result cache.
func (c *Chain) TxVerificationCache() *txverify.Cache { return c.cache }

// reportPeer emits a misbehavior report for lb if its error kind
// punishes and the block has a network origin.
func (c *Chain) reportPeer(lb *types.LonelyBlock, err error) {
	kind := errorKind(err)
	if !kind.PunishesPeer() || !lb.PunishPeer() {
		return
	}
	report := PeerReport{
		PeerID:      lb.Origin.PeerID,
		BlockHash:   lb.Block.Hash(),
		MessageSize: lb.Origin.MessageSize,
		Kind:        kind,
		Err:         err,
	}
	if n := c.reportFeed.Send(report); n == 0 {
		c.logger.Debug("dropping peer misbehavior report, no subscriber",
			"peer", report.PeerID, "block", report.BlockHash, "kind", kind)
	}
}

// errorKind extracts the chainerror bucket, defaulting unknown errors
// to the system bucket.
func errorKind(err error) chainerror.Kind {
	var be *chainerror.BlockError
	if errors.As(err, &be) {
		return be.Kind
	}
	return chainerror.KindSystem
}

// lookupView fetches the header index view for hash.
func (c *Chain) lookupView(hash common.Hash) (*types.HeaderIndexView, bool) {
	return c.index.Get(hash)
}

// buildView projects a header onto its index view: accumulated total
// difficulty from the parent plus the header's own work, and a skip
// pointer for the log-depth ancestor walk.
func (c *Chain) buildView(h *types.Header, parent *types.HeaderIndexView) *types.HeaderIndexView {
	td := new(uint256.Int).Add(parent.TotalDifficulty, blockDifficulty(h))
	var skip *common.Hash
	if target := skipHeight(h.Number); target < h.Number {
		if anc, ok := c.ancestor(parent, target); ok {
			hash := anc.Hash
			skip = &hash
		}
	}
	return types.NewHeaderIndexView(h, td, skip)
}

// mmrStoreOf returns st's MMR facet when it has one, or an inert
// implementation otherwise.
func mmrStoreOf(st store.ChainStore) store.MMRStore {
	if m, ok := st.(store.MMRStore); ok {
		return m
	}
	return inertMMR{}
}

type inertMMR struct{}

func (inertMMR) CellsRootMMR() (common.Hash, error)                  { return common.Hash{}, nil }
func (inertMMR) GetCellsRootMMRStatus(types.OutPoint) (uint64, bool) { return 0, false }
func (inertMMR) InsertCellsRootMMRStatus(types.OutPoint, uint64) error { return nil }
