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

package headerindex

import (
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/types"
)

func mustOpen(t *testing.T, budget uint64) *Index {
	t.Helper()
	idx, err := Open(budget, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func sampleView(n byte) *types.HeaderIndexView {
	return &types.HeaderIndexView{
		Hash:            common.BytesToHash([]byte{n}),
		Number:          uint64(n),
		Epoch:           types.EpochWithFraction{Number: 1, Index: 0, Length: 100},
		Timestamp:       1000 + uint64(n),
		ParentHash:      common.BytesToHash([]byte{n - 1}),
		TotalDifficulty: uint256.NewInt(uint64(n) * 10),
	}
}

func TestRoundTripWithoutSkipHash(t *testing.T) {
	idx := mustOpen(t, 1<<20)
	v := sampleView(1)
	idx.Insert(v)

	got, ok := idx.Get(v.Hash)
	if !ok {
		t.Fatal("expected view present after insert")
	}
	if got.Number != v.Number || got.Timestamp != v.Timestamp || got.ParentHash != v.ParentHash {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, v)
	}
	if got.TotalDifficulty.Cmp(v.TotalDifficulty) != 0 {
		t.Fatalf("total difficulty mismatch: got %v, want %v", got.TotalDifficulty, v.TotalDifficulty)
	}
}

func TestRoundTripWithSkipHash(t *testing.T) {
	idx := mustOpen(t, 1<<20)
	v := sampleView(2)
	skip := common.BytesToHash([]byte{0xAA})
	v.SkipHash = &skip
	idx.Insert(v)

	got, ok := idx.Get(v.Hash)
	if !ok {
		t.Fatal("expected view present after insert")
	}
	if got.SkipHash == nil || *got.SkipHash != skip {
		t.Fatalf("skip hash not preserved: got %+v", got.SkipHash)
	}
}

func TestRemoveReportsAbsentFromBothTiers(t *testing.T) {
	idx := mustOpen(t, 1<<20)
	v := sampleView(3)
	idx.Insert(v)

	if _, ok := idx.Remove(v.Hash); !ok {
		t.Fatal("expected removal to report the prior entry")
	}
	if idx.Contains(v.Hash) {
		t.Fatal("expected absent from both tiers after remove")
	}
	if _, ok := idx.Get(v.Hash); ok {
		t.Fatal("expected Get to miss after remove")
	}
}

func TestOpenPanicsBelowMinimumBudget(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for budget smaller than one record")
		}
	}()
	Open(recordSize-1, "")
}

func TestBackgroundMoverDemotesOverflowToCold(t *testing.T) {
	idx := mustOpen(t, 1<<20)
	idx.capacity = 2

	for i := byte(1); i <= 5; i++ {
		idx.Insert(sampleView(i))
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if idx.hot.len() <= idx.capacity {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if got := idx.hot.len(); got > idx.capacity {
		t.Fatalf("hot tier not demoted in time: len=%d capacity=%d", got, idx.capacity)
	}

	v1 := sampleView(1)
	got, ok := idx.Get(v1.Hash)
	if !ok {
		t.Fatal("expected demoted entry still reachable via cold tier")
	}
	if got.Number != v1.Number {
		t.Fatalf("cold tier value mismatch: got %+v", got)
	}
}
