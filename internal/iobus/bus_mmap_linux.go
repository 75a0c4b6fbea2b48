// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build linux && !(tamago && arm)

package iobus

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"
)

// MmapBus implements Bus over a file-backed memory mapping, letting an
// external process (a register-dump tool, or a second test process)
// observe writes the way a debugger observes the real soft-core's
// register file over JTAG. It is only built on Linux hosts and is never
// linked into the tamago/arm production image (see bus_tamago.go).
type MmapBus struct {
	file *os.File
	data []byte
}

// NewMmapBus maps size bytes of path (created/truncated if necessary) as
// the backing store for a flat little-endian uint32 register space.
func NewMmapBus(path string, size int) (*MmapBus, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &MmapBus{file: f, data: data}, nil
}

// Close unmaps the region and closes the backing file.
func (m *MmapBus) Close() error {
	if err := unix.Munmap(m.data); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}

// Read32 implements Bus.
func (m *MmapBus) Read32(addr uint32) uint32 {
	if int(addr)+4 > len(m.data) {
		return 0
	}
	return binary.LittleEndian.Uint32(m.data[addr : addr+4])
}

// Write32 implements Bus.
func (m *MmapBus) Write32(addr uint32, val uint32) {
	if int(addr)+4 > len(m.data) {
		return
	}
	binary.LittleEndian.PutUint32(m.data[addr:addr+4], val)
}
