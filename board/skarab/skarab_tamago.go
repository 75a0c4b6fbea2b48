// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package skarab

import (
	"github.com/skarab-fw/skarab/internal/iobus"

	_ "unsafe"
)

// wishboneBase is the soft-core's memory-mapped wishbone register file
// base address, as wired into the soft CPU's address map at bitstream
// build time.
const wishboneBase = 0x40000000

// Init takes care of the lower-level board initialization triggered
// early in runtime setup, mirroring board/usbarmory/mk2's
// go:linkname-based hwinit hook.
//
//go:linkname Init runtime.hwinit
func Init() {
	Registers = newRegisters(iobus.NewHardwareBus(wishboneBase))
}
