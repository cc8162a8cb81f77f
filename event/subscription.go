// Copyright 2016 The ckb-go Authors
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

// Package event implements a pub/sub notification facility used to
// publish chain-tip changes and peer reports to subscribers. A Send
// blocks until every subscriber has received the value.
package event

import "sync"

// Subscription represents a stream of events. The carrier of the
// events is typically a channel, but isn't part of the interface.
//
// Subscriptions can fail while established. Failures are reported
// through an error channel. It is closed when the subscription ends
// and errors are only ever sent on it once.
type Subscription interface {
	// Err returns the subscription's error channel, closed when the
	// subscription has ended.
	Err() <-chan error
	// Unsubscribe cancels the sending of events to the data channel
	// and closes the error channel.
	Unsubscribe()
}

// funcSub implements Subscription for a function that only needs to
// be unsubscribed once.
type funcSub struct {
	unsub func()
	err   chan error
	once  sync.Once
}

// NewSubscription runs a producer function as a subscription in a new
// goroutine. The function should run until the unsubscribe channel
// given to it is closed. If the function returns an error, it is sent
// on the subscription's error channel.
func NewSubscription(producer func(unsub <-chan struct{}) error) Subscription {
	s := &funcSub{err: make(chan error, 1)}
	quit := make(chan struct{})
	s.unsub = sync.OnceFunc(func() { close(quit) })
	go func() {
		err := producer(quit)
		s.err <- err
		close(s.err)
	}()
	return s
}

func (s *funcSub) Err() <-chan error { return s.err }
func (s *funcSub) Unsubscribe()      { s.unsub() }

// SubscriptionScope provides a facility to unsubscribe multiple
// subscriptions at once. Components that notify several downstream
// consumers register each Subscription with a scope and call Close
// once during shutdown.
type SubscriptionScope struct {
	mu     sync.Mutex
	subs   map[*scopeSub]struct{}
	closed bool
}

type scopeSub struct {
	sc *SubscriptionScope
	s  Subscription
}

// Track starts tracking a subscription. If the scope is closed, Track
// returns nil. The returned subscription is a wrapper that removes
// itself from the scope when unsubscribed.
func (sc *SubscriptionScope) Track(s Subscription) Subscription {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return nil
	}
	if sc.subs == nil {
		sc.subs = make(map[*scopeSub]struct{})
	}
	ss := &scopeSub{sc, s}
	sc.subs[ss] = struct{}{}
	return ss
}

func (ss *scopeSub) Unsubscribe() {
	ss.s.Unsubscribe()
	ss.sc.mu.Lock()
	defer ss.sc.mu.Unlock()
	delete(ss.sc.subs, ss)
}

func (ss *scopeSub) Err() <-chan error { return ss.s.Err() }

// Close calls Unsubscribe on all tracked subscriptions and prevents
// further additions to the tracked set.
func (sc *SubscriptionScope) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return
	}
	sc.closed = true
	for ss := range sc.subs {
		ss.s.Unsubscribe()
	}
	sc.subs = nil
}

// Count returns the number of tracked subscriptions. It is meant to
// be used for diagnostics.
func (sc *SubscriptionScope) Count() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.subs)
}
