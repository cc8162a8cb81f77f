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

package event

import "sync"

// Feed implements one-to-many subscription notification of values of
// type T. Values are sent to all subscribed channels simultaneously.
//
// The zero value is ready to use. Unlike go-ethereum's reflection
// based Feed, this variant is parameterized by the event type at
// compile time, which removes the runtime type-matching panics the
// original carries while keeping the same Subscribe/Send shape.
type Feed[T any] struct {
	mu   sync.Mutex
	subs map[*feedSub[T]]struct{}
}

type feedSub[T any] struct {
	feed    *Feed[T]
	channel chan<- T
	err     chan error
	once    sync.Once
}

// Subscribe adds a channel to the feed. Future sends will be
// delivered on the returned subscription's channel until the caller
// unsubscribes.
func (f *Feed[T]) Subscribe(channel chan<- T) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[*feedSub[T]]struct{})
	}
	sub := &feedSub[T]{feed: f, channel: channel, err: make(chan error, 1)}
	f.subs[sub] = struct{}{}
	return sub
}

// Send delivers v to all subscribed channels and returns the number
// of subscribers it was sent to. Send blocks until every subscriber
// has accepted the value; unsubscribing does not release a Send that
// is already waiting on that subscriber's channel. Callers on the hot
// path (the consumer stage) must therefore subscribe with a buffered
// channel if they cannot always receive immediately.
func (f *Feed[T]) Send(v T) (nsent int) {
	f.mu.Lock()
	subs := make([]*feedSub[T], 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.channel <- v
		nsent++
	}
	return nsent
}

func (s *feedSub[T]) Unsubscribe() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()
		close(s.err)
	})
}

func (s *feedSub[T]) Err() <-chan error { return s.err }
