// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package iobus provides the lowest-level register-file primitive the
// control plane is built on, generalizing internal/reg from the teacher
// framework (get/set/mask on a 32-bit memory-mapped register) behind a
// Bus interface so the same board/skarab.Registers implementation can
// run either against real memory-mapped hardware (tamago/arm) or against
// a simulated register file on a development host (any other GOOS), per
// SPEC_FULL.md §1's "host-side development/test harness" requirement.
package iobus

// Bus is the primitive every register-level driver in this module is
// built from: 32-bit reads/writes addressed by a flat uint32 offset.
type Bus interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, val uint32)
}

// Get returns bits [pos, pos+popcount(mask)) of the register at addr.
func Get(b Bus, addr uint32, pos int, mask uint32) uint32 {
	return (b.Read32(addr) >> uint(pos)) & mask
}

// Set sets bit pos of the register at addr.
func Set(b Bus, addr uint32, pos int) {
	b.Write32(addr, b.Read32(addr)|(1<<uint(pos)))
}

// Clear clears bit pos of the register at addr.
func Clear(b Bus, addr uint32, pos int) {
	b.Write32(addr, b.Read32(addr)&^(1<<uint(pos)))
}

// SetTo sets or clears bit pos of the register at addr depending on v.
func SetTo(b Bus, addr uint32, pos int, v bool) {
	if v {
		Set(b, addr, pos)
	} else {
		Clear(b, addr, pos)
	}
}

// SetN replaces the masked field at pos with val, leaving the rest of
// the register untouched.
func SetN(b Bus, addr uint32, pos int, mask uint32, val uint32) {
	cur := b.Read32(addr)
	cur = (cur &^ (mask << uint(pos))) | ((val & mask) << uint(pos))
	b.Write32(addr, cur)
}
