// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim provides in-memory fakes for the board.* external
// collaborators (I2C, 1-Wire, SPI, flash/SDRAM, fan controller,
// sensors, watchdog), used by package tests and by cmd/skarabfw, which
// wires them in for every collaborator other than the register file on
// every build (host and tamago/arm alike), so the control plane can run
// end-to-end without real hardware, per SPEC_FULL.md §1's host-side
// development/test harness requirement.
package sim

import (
	"sync"
	"time"

	"github.com/skarab-fw/skarab/neterr"
	"github.com/skarab-fw/skarab/scratchpad"
)

type i2cKey struct {
	addr uint8
	reg  uint8
}

// I2C is a fake board.I2CBus backed by a plain map, also implementing
// scratchpad.Bus over a fixed MAX31785-style MFR_LOCATION command so
// cmd/skarabfw can wire a real *scratchpad.Scratchpad in host builds.
type I2C struct {
	mu   sync.Mutex
	regs map[i2cKey][]byte

	scratchpadAddr byte
}

// NewI2C returns an I2C fake whose scratchpad-backing PMBus command is
// scratchpadAddr (original_source/src/scratchpad.c: MFR_LOCATION).
func NewI2C(scratchpadAddr byte) *I2C {
	return &I2C{regs: make(map[i2cKey][]byte), scratchpadAddr: scratchpadAddr}
}

// Read implements board.I2CBus.
func (s *I2C) Read(addr uint8, reg uint8, n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.regs[i2cKey{addr, reg}]
	out := make([]byte, n)
	copy(out, v)
	return out, nil
}

// Write implements board.I2CBus.
func (s *I2C) Write(addr uint8, reg uint8, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.regs[i2cKey{addr, reg}] = cp
	return nil
}

// PMBusRead implements board.I2CBus.
func (s *I2C) PMBusRead(addr uint8, cmd uint8, n int) ([]byte, error) {
	return s.Read(addr, cmd, n)
}

// ReadScratchpad implements scratchpad.Bus.
func (s *I2C) ReadScratchpad() ([scratchpad.Size]byte, error) {
	var out [scratchpad.Size]byte
	v, _ := s.Read(0, s.scratchpadAddr, scratchpad.Size)
	copy(out[:], v)
	return out, nil
}

// WriteScratchpad implements scratchpad.Bus.
func (s *I2C) WriteScratchpad(data [scratchpad.Size]byte) error {
	return s.Write(0, s.scratchpadAddr, data[:])
}

// OneWire is a fake board.OneWireBus with one fixed EEPROM image per
// port, set up by Seed before mezzanine discovery runs.
type OneWire struct {
	mu   sync.Mutex
	rom  map[int][8]byte
	mem  map[int][]byte
}

// NewOneWire returns an OneWire fake with no ports populated (every
// ReadROM fails with neterr.Fail, matching an empty mezzanine site).
func NewOneWire() *OneWire {
	return &OneWire{rom: make(map[int][8]byte), mem: make(map[int][]byte)}
}

// Seed installs romID and its 8-byte EEPROM signature image for port.
func (o *OneWire) Seed(port int, romID [8]byte, eeprom [8]byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rom[port] = romID
	o.mem[port] = append([]byte(nil), eeprom[:]...)
}

// ReadROM implements board.OneWireBus.
func (o *OneWire) ReadROM(port int) ([8]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	romID, ok := o.rom[port]
	if !ok {
		return [8]byte{}, neterr.Wrap(neterr.Fail, "no device present")
	}
	return romID, nil
}

// ReadMem implements board.OneWireBus.
func (o *OneWire) ReadMem(port int, romID [8]byte, addr uint16, n int) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	buf := o.mem[port]
	out := make([]byte, n)
	for i := range out {
		idx := int(addr) + i
		if idx < len(buf) {
			out[i] = buf[idx]
		}
	}
	return out, nil
}

// WriteMem implements board.OneWireBus.
func (o *OneWire) WriteMem(port int, romID [8]byte, addr uint16, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	buf := o.mem[port]
	need := int(addr) + len(data)
	if need > len(buf) {
		grown := make([]byte, need)
		copy(grown, buf)
		buf = grown
	}
	copy(buf[addr:], data)
	o.mem[port] = buf
	return nil
}

// SPI is a fake board.SPIBus backed by a page map.
type SPI struct {
	mu    sync.Mutex
	pages map[uint32][]byte
}

// NewSPI returns an empty SPI fake.
func NewSPI() *SPI { return &SPI{pages: make(map[uint32][]byte)} }

// ReadPage implements board.SPIBus.
func (s *SPI) ReadPage(addr uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.pages[addr]...), nil
}

// ProgramPage implements board.SPIBus.
func (s *SPI) ProgramPage(addr uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[addr] = append([]byte(nil), data...)
	return nil
}

// EraseSector implements board.SPIBus.
func (s *SPI) EraseSector(addr uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, addr)
	return nil
}

// Flash is a fake board.FlashController backed by a word map.
type Flash struct {
	mu        sync.Mutex
	words     map[uint32]uint32
	reconfigs int
}

// NewFlash returns an empty Flash fake.
func NewFlash() *Flash { return &Flash{words: make(map[uint32]uint32)} }

// ReadWords implements board.FlashController.
func (f *Flash) ReadWords(addr uint32, n int) ([]uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint32, n)
	for i := range out {
		out[i] = f.words[addr+uint32(i)]
	}
	return out, nil
}

// ProgramWords implements board.FlashController.
func (f *Flash) ProgramWords(addr uint32, data []uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, w := range data {
		f.words[addr+uint32(i)] = w
	}
	return nil
}

// EraseBlock implements board.FlashController.
func (f *Flash) EraseBlock(addr uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.words, addr)
	return nil
}

// ReconfigureFromSDRAM implements board.FlashController.
func (f *Flash) ReconfigureFromSDRAM() error {
	f.mu.Lock()
	f.reconfigs++
	f.mu.Unlock()
	return nil
}

// ProgramSDRAM implements board.FlashController.
func (f *Flash) ProgramSDRAM(data []byte) error { return nil }

// Fan is a fake board.FanController.
type Fan struct {
	mu     sync.Mutex
	lut    [][2]uint16
	speeds map[int]uint8
}

// NewFan returns a Fan fake with no LUT loaded.
func NewFan() *Fan { return &Fan{speeds: make(map[int]uint8)} }

// RestoreDefaults implements board.FanController.
func (f *Fan) RestoreDefaults() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lut = nil
	f.speeds = make(map[int]uint8)
	return nil
}

// LoadLUT implements board.FanController.
func (f *Fan) LoadLUT(lut [][2]uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lut = append([][2]uint16(nil), lut...)
	return nil
}

// LUT implements board.FanController.
func (f *Fan) LUT() ([][2]uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]uint16(nil), f.lut...), nil
}

// SetSpeed implements board.FanController.
func (f *Fan) SetSpeed(fan int, pwmPercent uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speeds[fan] = pwmPercent
	return nil
}

// Runtime implements board.FanController.
func (f *Fan) Runtime() (map[string]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float32, len(f.speeds))
	for fan, pwm := range f.speeds {
		out[indexName("fan", fan)] = float32(pwm)
	}
	return out, nil
}

// Sensors is a fake board.SensorReader returning a fixed snapshot.
type Sensors struct {
	mu     sync.Mutex
	values map[string]float32
}

// NewSensors returns a Sensors fake seeded with values.
func NewSensors(values map[string]float32) *Sensors {
	cp := make(map[string]float32, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Sensors{values: cp}
}

// ReadSensors implements board.SensorReader.
func (s *Sensors) ReadSensors() (map[string]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float32, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

// Watchdog is a fake board.Watchdog counting kicks instead of arming
// real hardware.
type Watchdog struct {
	mu      sync.Mutex
	timeout time.Duration
	kicks   uint64
}

// NewWatchdog returns an unstarted Watchdog fake.
func NewWatchdog() *Watchdog { return &Watchdog{} }

// Start implements board.Watchdog.
func (w *Watchdog) Start(timeout time.Duration) error {
	w.mu.Lock()
	w.timeout = timeout
	w.mu.Unlock()
	return nil
}

// Kick implements board.Watchdog.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	w.kicks++
	w.mu.Unlock()
}

// Kicks reports how many times Kick has been called, for tests.
func (w *Watchdog) Kicks() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.kicks
}

func indexName(prefix string, i int) string {
	const digits = "0123456789"
	if i < 10 {
		return prefix + string(digits[i])
	}
	return prefix + string(digits[i/10]) + string(digits[i%10])
}
