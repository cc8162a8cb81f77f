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

// Package txverify holds the verify queue (component C) and the
// transaction verification cache (component D): the dedup staging
// area for transactions awaiting script verification, and the LRU of
// per-transaction verification outcomes the contextual block verifier
// consults during batch verification.
package txverify

import (
	"sync"

	"github.com/nervosnetwork/ckb-go/core/types"
)

// maxVerifyTransactions is the fullness threshold surfaced via IsFull;
// the queue itself never drops entries at this boundary, it merely
// reports the condition to the caller (the tx pool's admission path).
const maxVerifyTransactions = 100

// VerifyStatus is the lifecycle state of a queued entry.
type VerifyStatus int

const (
	StatusFresh VerifyStatus = iota
	StatusVerifying
	StatusCompleted
)

// Remote is the declared-cycles/peer pair attached to a transaction
// that arrived with an unverified cycle claim from the network.
type Remote struct {
	DeclaredCycles uint64
	PeerID         string
}

// Entry is a transaction awaiting verification, identified by its
// proposal short id. Equality of two Entry values (for queue
// de-duplication purposes) is by transaction hash only, mirroring the
// original's tx-only PartialEq.
type Entry struct {
	Tx     *types.Transaction
	Remote *Remote
	Status VerifyStatus
}

// Queue is the deduplicated, status-indexed set of transactions
// awaiting verification. It is indexed by proposal_short_id (unique)
// and, conceptually, by status (non-unique, surfaced by callers
// EntriesWithStatus). All operations hold a single mutex; at the
// structure's scale (capped around 100 entries) lock contention is
// immaterial.
type Queue struct {
	mu      sync.Mutex
	entries map[types.ProposalShortId]*Entry
}

// New constructs an empty verify queue.
func New() *Queue {
	return &Queue{entries: make(map[types.ProposalShortId]*Entry)}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsFull reports whether the queue has grown past the fullness
// threshold; callers use this to throttle further admission.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries) > maxVerifyTransactions
}

// Contains reports whether id is queued.
func (q *Queue) Contains(id types.ProposalShortId) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[id]
	return ok
}

// Add inserts tx with an optional remote claim. Returns false without
// modifying the queue if tx's proposal short id is already present.
func (q *Queue) Add(tx *types.Transaction, remote *Remote) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := tx.ProposalShortId()
	if _, ok := q.entries[id]; ok {
		return false
	}
	q.entries[id] = &Entry{Tx: tx, Remote: remote, Status: StatusFresh}
	return true
}

// Remove removes id, returning the removed entry and true, or
// (nil, false) if it was not present. Removing an absent id is not an
// error: the consumer clears batches that may overlap entries the
// pool already dropped.
func (q *Queue) Remove(id types.ProposalShortId) (*Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return nil, false
	}
	delete(q.entries, id)
	return e, true
}

// RemoveBatch removes every id present in ids, ignoring ids that are
// not queued.
func (q *Queue) RemoveBatch(ids []types.ProposalShortId) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		delete(q.entries, id)
	}
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[types.ProposalShortId]*Entry)
}

// Shrink releases excess capacity after a bulk removal. Go maps do
// not expose capacity control, so this is a no-op kept for interface
// stability with callers that expect a post-clear compaction hook.
func (q *Queue) Shrink() {}

// SetStatus transitions id's status, returning false if id is not
// queued.
func (q *Queue) SetStatus(id types.ProposalShortId, status VerifyStatus) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return false
	}
	e.Status = status
	return true
}

// EntriesWithStatus returns a snapshot of all entries in the given
// status, in no particular order.
func (q *Queue) EntriesWithStatus(status VerifyStatus) []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Entry
	for _, e := range q.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}
