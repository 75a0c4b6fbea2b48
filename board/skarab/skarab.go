// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package skarab provides the board bring-up package for the SKARAB
// FPGA board's soft-core CPU, structured after
// board/usbarmory/mk2's peripheral-instance-and-Init() convention: a
// package-level WishboneRegisters instance wired to the board's
// register file, brought up once from Init (tamago/arm) or from New
// (any other host, for development and testing per SPEC_FULL.md §1).
package skarab

import (
	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/internal/iobus"
)

// Registers is the process-wide board register file handle, the
// skarab-domain analogue of mk2's package-level ENET2/I2C1/... peripheral
// instances.
var Registers *board.WishboneRegisters

// newRegisters wraps bus as the board's Registers implementation; shared
// by both the tamago/arm Init path and the host New path so the two
// never drift.
func newRegisters(bus iobus.Bus) *board.WishboneRegisters {
	return board.NewWishboneRegisters(bus)
}
