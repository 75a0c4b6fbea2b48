// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !(tamago && arm)

package iobus

import "sync"

// SimulatedBus implements Bus over a plain map, standing in for the
// memory-mapped register file on development hosts where no soft-core
// is present. Production firmware never links this file in (see
// bus_tamago.go); it exists purely so netstack/..., dispatch/... and
// mezzanine/... can be exercised by `go test` on any platform, per
// SPEC_FULL.md §1.
//
// golang.org/x/sys/unix backs an optional file-mapped variant, MmapBus
// (NewMmapBus in bus_mmap_linux.go, Linux only), whose register writes
// are visible to any other process mapping the same file. Nothing in this
// tree constructs one; the tests and the host build use SimulatedBus.
type SimulatedBus struct {
	mu   sync.Mutex
	regs map[uint32]uint32
}

// NewSimulatedBus returns an empty simulated register file.
func NewSimulatedBus() *SimulatedBus {
	return &SimulatedBus{regs: make(map[uint32]uint32)}
}

// Read32 implements Bus.
func (s *SimulatedBus) Read32(addr uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

// Write32 implements Bus.
func (s *SimulatedBus) Write32(addr uint32, val uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[addr] = val
}

// Preset seeds addr with val without going through Write32's locking
// dance more than once; used by tests to mock register readback (e.g.
// E5's "boardreg" scenario).
func (s *SimulatedBus) Preset(addr uint32, val uint32) {
	s.Write32(addr, val)
}
