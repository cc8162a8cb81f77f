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

package verifier

import (
	"fmt"

	"github.com/nervosnetwork/ckb-go/common"
	"github.com/nervosnetwork/ckb-go/core/chainerror"
	"github.com/nervosnetwork/ckb-go/core/types"
)

// maxExtensionBytes caps the block extension field.
const maxExtensionBytes = 96

// verifyExtension validates the block extension field's length against
// the activated commitment schemes, checks the committed MMR roots,
// and recomputes the header's extra hash over uncles plus extension.
func (v *Contextual) verifyExtension(parent *types.HeaderIndexView, b *types.Block) error {
	ext := b.Extension
	if len(ext) > maxExtensionBytes {
		return invalidContextual(fmt.Errorf("%w: %d bytes", chainerror.ErrBlockExtensionShape, len(ext)))
	}

	minLen := 0
	if v.consensus.LightClientActivated {
		minLen = 32
	}
	if v.consensus.CellsCommitmentsActivated {
		minLen += 32
	}
	if len(ext) < minLen {
		return invalidContextual(fmt.Errorf("%w: %d bytes, want at least %d",
			chainerror.ErrBlockExtensionShape, len(ext), minLen))
	}

	off := 0
	if v.consensus.LightClientActivated {
		root, err := v.chainRoot.ChainRoot(parent.Number)
		if err != nil {
			return chainerror.New(chainerror.KindSystem, err)
		}
		if common.BytesToHash(ext[off:off+32]) != root {
			return invalidContextual(chainerror.ErrInvalidChainRoot)
		}
		off += 32
	}
	if v.consensus.CellsCommitmentsActivated {
		root, err := v.mmr.CellsRootMMR()
		if err != nil {
			return chainerror.New(chainerror.KindSystem, err)
		}
		if common.BytesToHash(ext[off:off+32]) != root {
			return invalidContextual(chainerror.ErrInvalidCellsRoot)
		}
	}

	if got := types.CalcExtraHash(b.Uncles, ext); got != b.Header.ExtraHash {
		return invalidContextual(chainerror.ErrInvalidExtraHash)
	}
	return nil
}
