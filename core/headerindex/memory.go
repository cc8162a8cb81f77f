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

// Package headerindex implements the two-tier hot/cold map from block
// hash to HeaderIndexView described by the header index component: an
// insertion-ordered in-memory hot tier guarded by a RWMutex, backed by
// an embedded key-value store for overflow.
package headerindex

import (
	"sync"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// memoryMap is the hot tier: an insertion-ordered mapping whose Get
// refreshes the accessed key to most-recently-used position, so the
// background mover always demotes the coldest entries.
type memoryMap struct {
	mu   sync.RWMutex
	list *list
	idx  map[common.Hash]*entry
}

type entry struct {
	key        common.Hash
	value      *types.HeaderIndexView
	prev, next *entry
}

// list is an intrusive doubly linked list with a sentinel root node,
// oldest entry at root.next, newest at root.prev.
type list struct {
	root entry
}

func newList() *list {
	l := &list{}
	l.root.next = &l.root
	l.root.prev = &l.root
	return l
}

func (l *list) pushBack(e *entry) {
	last := l.root.prev
	last.next = e
	e.prev = last
	e.next = &l.root
	l.root.prev = e
}

func (l *list) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (l *list) moveToBack(e *entry) {
	l.remove(e)
	l.pushBack(e)
}

func (l *list) front() *entry {
	if l.root.next == &l.root {
		return nil
	}
	return l.root.next
}

func newMemoryMap() *memoryMap {
	return &memoryMap{list: newList(), idx: make(map[common.Hash]*entry)}
}

func (m *memoryMap) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.idx)
}

func (m *memoryMap) containsKey(key common.Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.idx[key]
	return ok
}

// getRefresh returns the stored view and moves it to the
// most-recently-used position.
func (m *memoryMap) getRefresh(key common.Hash) (*types.HeaderIndexView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.idx[key]
	if !ok {
		return nil, false
	}
	m.list.moveToBack(e)
	return e.value, true
}

func (m *memoryMap) insert(v *types.HeaderIndexView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.idx[v.Hash]; ok {
		e.value = v
		m.list.moveToBack(e)
		return
	}
	e := &entry{key: v.Hash, value: v}
	m.list.pushBack(e)
	m.idx[v.Hash] = e
}

func (m *memoryMap) remove(key common.Hash) (*types.HeaderIndexView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.idx[key]
	if !ok {
		return nil, false
	}
	m.list.remove(e)
	delete(m.idx, key)
	return e.value, true
}

// frontN returns the oldest (size-limit) entries when the map holds
// more than size_limit entries, for the background mover to demote to
// cold storage. Returns nil when no entries need moving.
func (m *memoryMap) frontN(sizeLimit int) []*types.HeaderIndexView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	size := len(m.idx)
	if size <= sizeLimit {
		return nil
	}
	num := size - sizeLimit
	out := make([]*types.HeaderIndexView, 0, num)
	e := m.list.front()
	for i := 0; i < num && e != nil; i++ {
		out = append(out, e.value)
		e = e.next
	}
	return out
}

func (m *memoryMap) removeBatch(keys []common.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		if e, ok := m.idx[key]; ok {
			m.list.remove(e)
			delete(m.idx, key)
		}
	}
}
