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
	"errors"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// coldStore is the overflow tier: a single-file embedded key-value
// store opened in a process-private temp directory, tuned for write
// throughput since its contents never need to survive a restart.
// Durability is deliberately off: DisableWAL and NoSync writes let
// demotion batches coalesce in the memtable before ever touching
// disk.
type coldStore struct {
	db      *pebble.DB
	dir     string
	tempDir bool
}

func openColdStore(workDir string) (*coldStore, error) {
	dir := workDir
	tempDir := false
	if dir == "" {
		d, err := os.MkdirTemp("", "ckb-header-index-")
		if err != nil {
			return nil, err
		}
		dir = d
		tempDir = true
	}
	opts := &pebble.Options{
		DisableWAL: true,
		FS:         vfs.Default,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		if tempDir {
			os.RemoveAll(dir)
		}
		return nil, err
	}
	return &coldStore{db: db, dir: dir, tempDir: tempDir}, nil
}

func (c *coldStore) containsKey(key common.Hash) bool {
	v, closer, err := c.db.Get(key.Bytes())
	if err != nil {
		return false
	}
	closer.Close()
	_ = v
	return true
}

func (c *coldStore) get(key common.Hash) (*types.HeaderIndexView, bool) {
	v, closer, err := c.db.Get(key.Bytes())
	if err != nil {
		return nil, false
	}
	defer closer.Close()
	buf := make([]byte, len(v))
	copy(buf, v)
	view, err := decodeValue(key, buf)
	if err != nil {
		return nil, false
	}
	return view, true
}

func (c *coldStore) insert(v *types.HeaderIndexView) error {
	return c.db.Set(v.Hash.Bytes(), encodeValue(v), pebble.NoSync)
}

func (c *coldStore) insertBatch(vs []*types.HeaderIndexView) error {
	batch := c.db.NewBatch()
	for _, v := range vs {
		if err := batch.Set(v.Hash.Bytes(), encodeValue(v), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.NoSync)
}

func (c *coldStore) remove(key common.Hash) (*types.HeaderIndexView, bool) {
	view, ok := c.get(key)
	if !ok {
		return nil, false
	}
	if err := c.db.Delete(key.Bytes(), pebble.NoSync); err != nil {
		return nil, false
	}
	return view, true
}

// close shuts the store down and, when it owns a temp directory,
// removes it: the cold tier's contents never outlive the process.
func (c *coldStore) close() error {
	err := c.db.Close()
	if c.tempDir {
		if rmErr := os.RemoveAll(c.dir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

var errNotFound = errors.New("headerindex: key not found in cold store")
