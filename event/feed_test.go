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

package event

import (
	"sync"
	"testing"
)

func TestFeedSendDeliversToAllSubscribers(t *testing.T) {
	var feed Feed[int]
	ch1 := make(chan int, 1)
	ch2 := make(chan int, 1)
	feed.Subscribe(ch1)
	feed.Subscribe(ch2)

	if n := feed.Send(42); n != 2 {
		t.Fatalf("wrong subscriber count: got %d, want 2", n)
	}
	if v := <-ch1; v != 42 {
		t.Errorf("ch1 got %d, want 42", v)
	}
	if v := <-ch2; v != 42 {
		t.Errorf("ch2 got %d, want 42", v)
	}
}

func TestFeedUnsubscribeStopsDelivery(t *testing.T) {
	var feed Feed[string]
	ch := make(chan string, 1)
	sub := feed.Subscribe(ch)
	sub.Unsubscribe()

	if n := feed.Send("hello"); n != 0 {
		t.Fatalf("expected no subscribers after unsubscribe, got %d", n)
	}
}

func TestSubscriptionScopeClosesAll(t *testing.T) {
	var feed Feed[int]
	var scope SubscriptionScope
	var wg sync.WaitGroup

	const n = 3
	errs := make([]<-chan error, n)
	for i := 0; i < n; i++ {
		ch := make(chan int, 1)
		sub := scope.Track(feed.Subscribe(ch))
		errs[i] = sub.Err()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		scope.Close()
	}()
	wg.Wait()

	for i, errc := range errs {
		select {
		case _, ok := <-errc:
			if ok {
				t.Errorf("subscription %d: expected closed error channel", i)
			}
		default:
			t.Errorf("subscription %d: error channel not closed after scope.Close", i)
		}
	}
	if scope.Count() != 0 {
		t.Errorf("expected 0 tracked subscriptions after Close, got %d", scope.Count())
	}
}
