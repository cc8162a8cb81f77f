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

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nervosnetwork/ckb-go/common"
)

func TestEpochWithFractionRoundTrip(t *testing.T) {
	e := EpochWithFraction{Number: 1234, Index: 7, Length: 1800}
	got := EpochFromFull(e.Full())
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestSwitchDisableBits(t *testing.T) {
	s := SwitchDisableEpoch | SwitchDisableReward
	if !s.DisableEpoch() || !s.DisableReward() {
		t.Fatal("expected epoch and reward disabled")
	}
	if s.DisableUncles() || s.DisableScript() {
		t.Fatal("expected other bits to remain enabled")
	}
	if All().DisableNonContextual() == false {
		t.Fatal("All() must disable every check")
	}
}

func TestLonelyBlockCallbackFiresOnce(t *testing.T) {
	var n int32
	lb := NewLonelyBlock(&Block{Header: &Header{Number: 1}}, nil, 0, func(r VerifyResult) {
		atomic.AddInt32(&n, 1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lb.FireCallback(VerifyResult{})
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&n); got != 1 {
		t.Fatalf("callback fired %d times, want exactly 1", got)
	}
}

func TestLonelyBlockPunishPeer(t *testing.T) {
	local := NewLonelyBlock(&Block{Header: &Header{}}, nil, 0, nil)
	if local.PunishPeer() {
		t.Error("locally originated block must never be punishable")
	}
	remote := NewLonelyBlock(&Block{Header: &Header{}}, &PeerOrigin{PeerID: "p1"}, 0, nil)
	if !remote.PunishPeer() {
		t.Error("remotely originated block must be punishable")
	}
}

func TestProposalShortIdFromHash(t *testing.T) {
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	h := common.BytesToHash(raw[:])
	id := ProposalShortIdFromHash(h)
	var want ProposalShortId
	copy(want[:], raw[:10])
	if id != want {
		t.Fatalf("short id = %x, want %x", id, want)
	}
}

func TestTransactionIsCellbase(t *testing.T) {
	cellbase := &Transaction{Inputs: []OutPoint{{TxHash: common.Hash{}, Index: 0xFFFFFFFF}}}
	if !cellbase.IsCellbase() {
		t.Error("expected cellbase transaction to be recognized")
	}
	normal := &Transaction{Inputs: []OutPoint{{TxHash: common.BytesToHash([]byte{9}), Index: 0}}}
	if normal.IsCellbase() {
		t.Error("normal transaction misclassified as cellbase")
	}
}

func TestHeaderHashStable(t *testing.T) {
	h := &Header{Number: 42, Timestamp: 100}
	a := h.Hash()
	b := h.Hash()
	if a != b {
		t.Fatal("header hash must be stable across calls")
	}
}
