// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mezzanine

import (
	"testing"

	"github.com/skarab-fw/skarab/board/sim"
)

func TestDiscoverClassifiesQSFPAndMatchesFirmware(t *testing.T) {
	oneWire := sim.NewOneWire()
	oneWire.Seed(0, [8]byte{1, 2, 3, 4}, [8]byte{0x50, 0, 0, 0, 0x01, 0xE3, 0x99, 0})

	i2c := sim.NewI2C(0)
	m := New(nil, oneWire, i2c)

	// Site 0's firmware-compiled-in nibble: middle bits = 01 (QSFP).
	if err := m.Discover(0x2); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	site := m.Site(0)
	if site.Detected() != QSFP {
		t.Fatalf("Detected() = %v, want QSFP", site.Detected())
	}
	if !site.FirmwareSupport() {
		t.Fatalf("FirmwareSupport() = false, want true")
	}
	if !site.AllowInit() {
		t.Fatalf("AllowInit() = false, want true")
	}
}

func TestDiscoverEmptySiteIsOpen(t *testing.T) {
	oneWire := sim.NewOneWire() // no ports seeded
	m := New(nil, oneWire, sim.NewI2C(0))

	if err := m.Discover(0); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := m.Site(1).Detected(); got != Open {
		t.Fatalf("Detected() = %v, want Open", got)
	}
	if m.Site(1).FirmwareSupport() {
		t.Fatalf("FirmwareSupport() = true for an empty site, want false")
	}
}

func TestDiscoverFirmwareMismatchDeniesInit(t *testing.T) {
	oneWire := sim.NewOneWire()
	// Site 2 carries an ADC EEPROM signature...
	oneWire.Seed(2, [8]byte{}, [8]byte{0x50, 0, 0, 0, 0x01, 0xE7, 0xE5, 0})
	m := New(nil, oneWire, sim.NewI2C(0))

	// ...but the compiled-in firmware for site 2 expects QSFP (nibble
	// middle bits 01, shifted into bit position site*4=8).
	if err := m.Discover(0x1 << 9); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	site := m.Site(2)
	if site.Detected() != ADC {
		t.Fatalf("Detected() = %v, want ADC", site.Detected())
	}
	if site.FirmwareSupport() {
		t.Fatalf("FirmwareSupport() = true on a firmware/hardware mismatch, want false")
	}
	if site.AllowInit() {
		t.Fatalf("AllowInit() = true on a firmware/hardware mismatch, want false")
	}
}

func TestAttachStateRespectsFirmwareSupport(t *testing.T) {
	oneWire := sim.NewOneWire()
	m := New(nil, oneWire, sim.NewI2C(0))
	if err := m.Discover(0); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	site := m.Site(0) // Open, firmwareSupport stays false
	f := &fakeCardState{}
	site.AttachState(f)
	if err := site.Step(); err != nil {
		t.Fatalf("Step() = %v, want nil", err)
	}
	if f.steps != 0 {
		t.Fatalf("card state stepped %d times on a site without firmware support, want 0", f.steps)
	}
}

type fakeCardState struct {
	steps int
}

func (f *fakeCardState) Step() error { f.steps++; return nil }
func (f *fakeCardState) Pause()      {}
func (f *fakeCardState) Resume()     {}
func (f *fakeCardState) ResetState() {}
