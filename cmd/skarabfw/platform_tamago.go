// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && arm

package main

import (
	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/board/skarab"
)

// platformRegisters returns the board register file skarab.Init (hooked
// into runtime.hwinit via go:linkname) brought up before main ran.
func platformRegisters() board.Registers {
	return skarab.Registers
}
