// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !(tamago && arm)

package main

import (
	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/board/skarab"
)

// platformRegisters constructs a simulated register file for
// development hosts and `go test`, per SPEC_FULL.md §1's host-side
// harness requirement.
func platformRegisters() board.Registers {
	return skarab.New().Registers
}
