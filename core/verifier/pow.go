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
	"github.com/holiman/uint256"

	"github.com/nervosnetwork/ckb-go/core/types"
)

// PowEngine checks a header's proof of work against its decoded
// target. The hash function backing the proof (eaglesong on mainnet)
// is a verified external building block; tests plug in a permissive
// engine so fixtures need not grind nonces.
type PowEngine interface {
	VerifyHeader(h *types.Header, target *uint256.Int) bool
}

// CompactToTarget decodes the nBits-style compact difficulty encoding:
// an 8-bit exponent and a 24-bit mantissa. The second return is false
// when the encoding overflows 256 bits or sets the sign bit, which the
// block-structure verifier treats as a malformed header.
func CompactToTarget(compact uint32) (*uint256.Int, bool) {
	mantissa := uint256.NewInt(uint64(compact & 0x007fffff))
	exponent := compact >> 24
	var target *uint256.Int
	if exponent <= 3 {
		target = mantissa.Rsh(mantissa, 8*(3-uint(exponent)))
	} else {
		target = mantissa.Lsh(mantissa, 8*(uint(exponent)-3))
	}
	raw := uint64(compact & 0x007fffff)
	overflow := compact&0x00800000 != 0 ||
		(raw != 0 && (exponent > 34 ||
			(raw > 0xff && exponent > 33) ||
			(raw > 0xffff && exponent > 32)))
	return target, !overflow
}

// TargetToDifficulty converts a decoded target into the work value
// accumulated into total difficulty: difficulty = 2^256 / (target+1),
// computed without a 257-bit intermediate the way Bitcoin Core's
// GetBlockProof does.
func TargetToDifficulty(target *uint256.Int) *uint256.Int {
	if target.IsZero() {
		// An all-zero target admits no hash at all; treat its work as
		// the maximum representable so comparisons stay total.
		return new(uint256.Int).Not(uint256.NewInt(0))
	}
	// (~target / (target+1)) + 1 == 2^256 / (target+1)
	neg := new(uint256.Int).Not(target)
	den := new(uint256.Int).AddUint64(target, 1)
	out := neg.Div(neg, den)
	return out.AddUint64(out, 1)
}

// hashMeetsTargetPow interprets a hash as a big-endian 256-bit integer
// and reports whether it is within target.
type hashMeetsTargetPow struct{}

// DefaultPow is a PowEngine that accepts a header when its hash, read
// as a big-endian integer, does not exceed the target. Production
// deployments substitute the real eaglesong engine; the comparison
// shape is identical.
var DefaultPow PowEngine = hashMeetsTargetPow{}

func (hashMeetsTargetPow) VerifyHeader(h *types.Header, target *uint256.Int) bool {
	hv := new(uint256.Int).SetBytes32(h.Hash().Bytes())
	return hv.Cmp(target) <= 0
}

// acceptAllPow never rejects; used by tests whose fixture hashes are
// not mined.
type acceptAllPow struct{}

// AcceptAllPow is the permissive PowEngine used by tests and trusted
// import paths.
var AcceptAllPow PowEngine = acceptAllPow{}

func (acceptAllPow) VerifyHeader(*types.Header, *uint256.Int) bool { return true }
