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

// VerifyResult carries the outcome of contextual verification back to
// a block's callback. Cycles is only meaningful when Err is nil; it is
// the summed VM cycle cost of the block's transactions, and must equal
// whatever the tx verification cache now holds for each of them.
type VerifyResult struct {
	Err    error
	Cycles uint64
	// AlreadyKnown marks the idempotent-accept outcome: the block was
	// a duplicate of one already committed, so no new verification or
	// store commit happened. Err is nil in this case.
	AlreadyKnown bool
}

// Ok reports whether verification succeeded.
func (r VerifyResult) Ok() bool { return r.Err == nil }
