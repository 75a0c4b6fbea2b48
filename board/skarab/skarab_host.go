// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !(tamago && arm)

package skarab

import "github.com/skarab-fw/skarab/internal/iobus"

// New constructs a host-side Registers backed by a simulated register
// file, for development and `go test` (SPEC_FULL.md §1's "host-side
// development/test harness" requirement). It does not touch the
// package-level Registers variable Init sets up on tamago/arm; callers
// on this path own their own instance.
func New() *Bus {
	sim := iobus.NewSimulatedBus()
	return &Bus{Registers: newRegisters(sim), sim: sim}
}

// Bus bundles a simulated register file with the board.Registers view
// over it, letting tests seed register values directly.
type Bus struct {
	Registers interface {
		ReadBoard(addr uint32) (uint32, error)
		WriteBoard(addr uint32, data uint32) error
		ReadDSP(addr uint32) (uint32, error)
		WriteDSP(addr uint32, data uint32) error
		LastBusError() bool
	}
	sim *iobus.SimulatedBus
}

// Preset seeds addr with val directly on the underlying simulated bus,
// bypassing the BoardRegisterSpace/DSPRegisterSpace window decoding —
// used by tests mocking a register value a command handler will read
// back (e.g. spec.md §8's E5 scenario).
func (b *Bus) Preset(addr uint32, val uint32) {
	b.sim.Preset(addr, val)
}
