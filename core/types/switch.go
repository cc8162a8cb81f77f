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

// Switch is a bitset of opt-out flags threaded through a LonelyBlock.
// Every bit defaults to zero, meaning the corresponding check runs; a
// caller such as a block assembler validating its own freshly built
// block, or a fast-sync importer trusting a checkpoint, sets bits to
// skip checks it has already performed or does not need.
type Switch uint32

const (
	// SwitchDisableNonContextual skips the non-contextual (malformed)
	// checks performed in the process-block intake stage.
	SwitchDisableNonContextual Switch = 1 << iota
	// SwitchDisableEpoch skips epoch number/fraction/target recomputation.
	SwitchDisableEpoch
	// SwitchDisableUncles skips uncle validity and double-inclusion checks.
	SwitchDisableUncles
	// SwitchDisableTwoPhaseCommit skips the proposal-window commit check.
	SwitchDisableTwoPhaseCommit
	// SwitchDisableDAOHeader skips dao field recomputation.
	SwitchDisableDAOHeader
	// SwitchDisableReward skips cellbase reward verification.
	SwitchDisableReward
	// SwitchDisableScript skips transaction script (cycle-consuming) verification.
	SwitchDisableScript
	// SwitchDisableExtension skips block extension (mmr root) verification.
	SwitchDisableExtension
)

// DisableNonContextual reports whether non-contextual checks are skipped.
func (s Switch) DisableNonContextual() bool { return s&SwitchDisableNonContextual != 0 }

// DisableEpoch reports whether epoch verification is skipped.
func (s Switch) DisableEpoch() bool { return s&SwitchDisableEpoch != 0 }

// DisableUncles reports whether uncle verification is skipped.
func (s Switch) DisableUncles() bool { return s&SwitchDisableUncles != 0 }

// DisableTwoPhaseCommit reports whether the proposal window check is skipped.
func (s Switch) DisableTwoPhaseCommit() bool { return s&SwitchDisableTwoPhaseCommit != 0 }

// DisableDAOHeader reports whether dao field verification is skipped.
func (s Switch) DisableDAOHeader() bool { return s&SwitchDisableDAOHeader != 0 }

// DisableReward reports whether cellbase reward verification is skipped.
func (s Switch) DisableReward() bool { return s&SwitchDisableReward != 0 }

// DisableScript reports whether transaction script verification is skipped.
func (s Switch) DisableScript() bool { return s&SwitchDisableScript != 0 }

// DisableExtension reports whether block extension verification is skipped.
func (s Switch) DisableExtension() bool { return s&SwitchDisableExtension != 0 }

// All returns a Switch with every check disabled, used by tests and by
// trusted fast-import paths.
func All() Switch {
	return SwitchDisableNonContextual | SwitchDisableEpoch | SwitchDisableUncles |
		SwitchDisableTwoPhaseCommit | SwitchDisableDAOHeader | SwitchDisableReward |
		SwitchDisableScript | SwitchDisableExtension
}
