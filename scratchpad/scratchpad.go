// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package scratchpad implements the persistent byte scratchpad: 8 bytes
// of storage that survive an FPGA reconfigure but are cleared on reset,
// physically backed by the fan-controller chip's PMBus MFR_LOCATION
// register (see original_source/src/scratchpad.c). The PMBus transport
// itself is the external collaborator named in spec.md §1; this package
// only owns the byte layout and the first-boot default-pattern check.
package scratchpad

import "github.com/skarab-fw/skarab/neterr"

// Byte indices into the 8-byte scratchpad (spec.md §6/§3).
const (
	HMCReconfigureCount = 0
	DHCPReconfigureCount = 1
	StartupLogLevel     = 2
	StartupLogSelect    = 3
	AuxiliaryFlags      = 4
	Reserved0           = 5
	Reserved1           = 6
	Reserved2           = 7

	// Size is the fixed scratchpad length.
	Size = 8

	// ManuallySetBit marks bits 7 of StartupLogLevel/StartupLogSelect: when
	// set, the byte was explicitly written by an operator rather than left
	// at its power-on default.
	ManuallySetBit = 0x80
	// LevelSelectMask masks the low 7 bits carrying the level/select value.
	LevelSelectMask = 0x7f
)

// defaultPattern is the scratchpad's known power-on-default content,
// observed prior to any firmware write (an ASCII-ish pattern baked into
// the MAX31785's MFR_LOCATION register reset state).
var defaultPattern = [Size]byte{0x30, 0x31, 0x30, 0x31, 0x30, 0x31, 0x30, 0x31}

// Bus is the minimal PMBus transport this package requires, implemented
// by the board's fan-controller driver.
type Bus interface {
	ReadScratchpad() ([Size]byte, error)
	WriteScratchpad([Size]byte) error
}

// Scratchpad provides typed access to the 8-byte persistent store.
type Scratchpad struct {
	bus Bus
}

// New wraps bus with the typed scratchpad accessors.
func New(bus Bus) *Scratchpad {
	return &Scratchpad{bus: bus}
}

// IsDefault reports whether the scratchpad still holds its power-on
// default pattern, i.e. this is the first time the firmware has run on
// this board since it left the factory (or since the fan-controller chip
// was last replaced).
func (s *Scratchpad) IsDefault() (bool, error) {
	cur, err := s.bus.ReadScratchpad()
	if err != nil {
		return false, err
	}
	return cur == defaultPattern, nil
}

// ReadByte returns the byte at index.
func (s *Scratchpad) ReadByte(index int) (byte, error) {
	if index < 0 || index >= Size {
		return 0, neterr.Wrap(neterr.Invalid, "scratchpad index out of range")
	}
	cur, err := s.bus.ReadScratchpad()
	if err != nil {
		return 0, err
	}
	return cur[index], nil
}

// WriteByte sets the byte at index, leaving the rest of the scratchpad
// untouched.
func (s *Scratchpad) WriteByte(index int, value byte) error {
	if index < 0 || index >= Size {
		return neterr.Wrap(neterr.Invalid, "scratchpad index out of range")
	}
	cur, err := s.bus.ReadScratchpad()
	if err != nil {
		return err
	}
	cur[index] = value
	return s.bus.WriteScratchpad(cur)
}

// Clear resets the whole scratchpad to all-zero, used e.g. after a
// confirmed successful boot to reset reconfigure-loop counters.
func (s *Scratchpad) Clear() error {
	return s.bus.WriteScratchpad([Size]byte{})
}

// IncrementReconfigureCount bumps the byte at index (HMCReconfigureCount
// or DHCPReconfigureCount) and returns the new value, saturating at 255
// rather than wrapping so an operator can reliably detect "many" reboots.
func (s *Scratchpad) IncrementReconfigureCount(index int) (byte, error) {
	v, err := s.ReadByte(index)
	if err != nil {
		return 0, err
	}
	if v < 0xff {
		v++
	}
	return v, s.WriteByte(index, v)
}
