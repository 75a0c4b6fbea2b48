// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package board

import (
	"sync"

	"github.com/skarab-fw/skarab/internal/iobus"
)

// BoardRegisterSpaceSize and DSPRegisterSpaceSize bound the two decoded wishbone
// address windows; an access outside either latches the AxiDataBus
// error, matching spec.md §7.
const (
	BoardRegisterSpaceSize = 0x10000
	DSPRegisterSpaceSize   = 0x100000

	dspWindowBase = 0x100000
)

// WishboneRegisters implements Registers directly on top of an
// iobus.Bus, decoding the board-register and DSP-register windows and
// latching the last-bus-error flag, mirroring
// original_source/src/register.c's WriteBoardRegister/ReadBoardRegister
// split between the two address ranges.
type WishboneRegisters struct {
	bus iobus.Bus

	mu       sync.Mutex
	busError bool
}

// NewWishboneRegisters wraps bus as a Registers implementation.
func NewWishboneRegisters(bus iobus.Bus) *WishboneRegisters {
	return &WishboneRegisters{bus: bus}
}

func (r *WishboneRegisters) latch() {
	r.mu.Lock()
	r.busError = true
	r.mu.Unlock()
}

// LastBusError implements Registers; reading clears the latch.
func (r *WishboneRegisters) LastBusError() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.busError
	r.busError = false
	return v
}

// ReadBoard implements Registers.
func (r *WishboneRegisters) ReadBoard(addr uint32) (uint32, error) {
	if addr >= BoardRegisterSpaceSize {
		r.latch()
		return 0, errAxiDataBus
	}
	return r.bus.Read32(addr), nil
}

// WriteBoard implements Registers.
func (r *WishboneRegisters) WriteBoard(addr uint32, data uint32) error {
	if addr >= BoardRegisterSpaceSize {
		r.latch()
		return errAxiDataBus
	}
	r.bus.Write32(addr, data)
	return nil
}

// ReadDSP implements Registers.
func (r *WishboneRegisters) ReadDSP(addr uint32) (uint32, error) {
	if addr >= DSPRegisterSpaceSize {
		r.latch()
		return 0, errAxiDataBus
	}
	return r.bus.Read32(dspWindowBase + addr), nil
}

// WriteDSP implements Registers.
func (r *WishboneRegisters) WriteDSP(addr uint32, data uint32) error {
	if addr >= DSPRegisterSpaceSize {
		r.latch()
		return errAxiDataBus
	}
	r.bus.Write32(dspWindowBase+addr, data)
	return nil
}
