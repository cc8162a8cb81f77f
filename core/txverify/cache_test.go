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

package txverify

import (
	"testing"

	"github.com/nervosnetwork/ckb-go/common"
)

func TestCachePutAndPeek(t *testing.T) {
	c := NewCache(4)
	h := common.BytesToHash([]byte{1})
	c.Put(h, Completed(100, 5000))

	e, ok := c.Peek(h)
	if !ok {
		t.Fatal("expected entry present")
	}
	if e.Kind != KindCompleted || e.Cycles != 100 || e.Fee != 5000 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestCacheSuspendedRoundTrip(t *testing.T) {
	c := NewCache(4)
	h := common.BytesToHash([]byte{2})
	snap := &Snapshot{ConsumedCycles: 42, VMState: []byte{1, 2, 3}}
	c.Put(h, Suspended(snap))

	e, ok := c.Peek(h)
	if !ok || e.Kind != KindSuspended {
		t.Fatal("expected suspended entry present")
	}
	if e.Snapshot.ConsumedCycles != 42 {
		t.Fatalf("snapshot not preserved: %+v", e.Snapshot)
	}
}

func TestCachePeekDoesNotAffectEviction(t *testing.T) {
	c := NewCache(2)
	h1, h2, h3 := common.BytesToHash([]byte{1}), common.BytesToHash([]byte{2}), common.BytesToHash([]byte{3})
	c.Put(h1, Completed(1, 1))
	c.Put(h2, Completed(2, 2))

	// Peeking h1 repeatedly must not save it from eviction, since
	// peeks never update recency per the component design.
	c.Peek(h1)
	c.Peek(h1)
	c.Put(h3, Completed(3, 3))

	if _, ok := c.Peek(h1); ok {
		t.Fatal("expected h1 evicted despite being peeked; peek must not affect recency")
	}
	if _, ok := c.Peek(h2); !ok {
		t.Fatal("expected h2 still present")
	}
}

func TestCacheRemove(t *testing.T) {
	c := NewCache(4)
	h := common.BytesToHash([]byte{9})
	c.Put(h, Completed(1, 1))
	c.Remove(h)
	if _, ok := c.Peek(h); ok {
		t.Fatal("expected entry gone after Remove")
	}
}
