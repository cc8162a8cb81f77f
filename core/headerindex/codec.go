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
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// Cold-tier encoding is a fixed little-endian layout: 88 bytes when
// skip_hash is absent, 120 bytes when present. The hash itself is the
// key and is not repeated in the value; skip_hash presence is
// discriminated by value length alone.
const (
	valueLenNoSkip   = 8 + 8 + 8 + 32 + 32 // number, epoch, timestamp, parent_hash, total_difficulty
	valueLenWithSkip = valueLenNoSkip + 32
)

// encodeValue serializes everything but the hash key.
func encodeValue(v *types.HeaderIndexView) []byte {
	size := valueLenNoSkip
	if v.SkipHash != nil {
		size = valueLenWithSkip
	}
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], v.Number)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], v.Epoch.Full())
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], v.Timestamp)
	off += 8
	copy(buf[off:], v.ParentHash.Bytes())
	off += 32
	td := v.TotalDifficulty
	if td == nil {
		td = uint256.NewInt(0)
	}
	tdBytes := td.Bytes32()
	copy(buf[off:], tdBytes[:])
	off += 32
	if v.SkipHash != nil {
		copy(buf[off:], v.SkipHash.Bytes())
	}
	return buf
}

// decodeValue is the inverse of encodeValue; hash is the key the
// value was stored under.
func decodeValue(hash common.Hash, buf []byte) (*types.HeaderIndexView, error) {
	if len(buf) != valueLenNoSkip && len(buf) != valueLenWithSkip {
		return nil, fmt.Errorf("headerindex: bad encoded value length %d", len(buf))
	}
	v := &types.HeaderIndexView{Hash: hash}
	off := 0
	v.Number = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	v.Epoch = types.EpochFromFull(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	v.Timestamp = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	v.ParentHash = common.BytesToHash(buf[off : off+32])
	off += 32
	var tdBytes [32]byte
	copy(tdBytes[:], buf[off:off+32])
	v.TotalDifficulty = new(uint256.Int).SetBytes32(tdBytes[:])
	off += 32
	if len(buf) == valueLenWithSkip {
		skip := common.BytesToHash(buf[off : off+32])
		v.SkipHash = &skip
	}
	return v, nil
}
