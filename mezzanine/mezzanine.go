// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mezzanine implements the daughter-card discovery,
// classification and management subsystem of spec.md §4.9, grounded on
// original_source/src/mezz.c. Per-card driver state machines live in
// mezzanine/qsfp and mezzanine/adc; HMC cards are classified but carry
// no driver state machine, matching the original firmware's actual
// scope (spec.md §9's "supplement dropped features" does not extend to
// inventing an HMC FSM the original never had).
package mezzanine

import (
	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/internal/obslog"
)

// SiteCount is the number of physical mezzanine sites (spec.md §3:
// "one per physical site, exactly four").
const SiteCount = 4

// HardwareType enumerates the detected/compiled-in card types of
// spec.md §3.
type HardwareType int

const (
	Open HardwareType = iota
	Unknown
	QSFP
	QSFPPhy
	ADC
	HMC
)

func (t HardwareType) String() string {
	switch t {
	case Open:
		return "Open"
	case Unknown:
		return "Unknown"
	case QSFP:
		return "QSFP"
	case QSFPPhy:
		return "QSFP_PHY"
	case ADC:
		return "ADC32RF45X2"
	case HMC:
		return "HMC_R1000_0005"
	default:
		return "Unknown"
	}
}

// CardState is the tagged union of the per-card sub-state machines
// (spec.md §9's "dynamic dispatch -> tagged union" redesign): at most
// one of mezzanine/qsfp.State or mezzanine/adc.State is ever held by a
// Mezzanine.
type CardState interface {
	// Step advances the card's state machine by one tick/step, per
	// spec.md §4.9.
	Step() error
	// Pause/Resume implement the external pauseability spec.md §4.9
	// requires while the card's own firmware is being reprogrammed.
	Pause()
	Resume()
	// ResetState implements the hot-reinit resettability spec.md §4.9
	// requires.
	ResetState()
}

// Mezzanine is one physical daughter-card site (spec.md §3).
type Mezzanine struct {
	magic uint32

	site int

	detected     HardwareType
	firmwareTag  HardwareType
	firmwareSupport bool
	allowInit    bool

	state CardState
}

const mezzMagic = 0x5e221a90

// 1-Wire EEPROM byte signatures the original firmware matches against
// (original_source/src/mezz.c: read_mezz_type_id).
var signatures = []struct {
	hw        HardwareType
	b0, b4, b5 byte
	b6        []byte
}{
	{QSFP, 0x50, 0x01, 0xE3, []byte{0x99}},
	{QSFPPhy, 0x50, 0x01, 0xE3, []byte{0xFD}},
	{ADC, 0x50, 0x01, 0xE7, []byte{0xE5, 0xE6, 0xE7}},
	{HMC, 0x53, 0xFF, 0x00, []byte{0x01}},
}

// classify matches a 1-Wire EEPROM byte image against the known
// PX-number/manufacturer-ID tuples.
func classify(eeprom [8]byte) HardwareType {
	for _, sig := range signatures {
		if eeprom[0] != sig.b0 || eeprom[4] != sig.b4 || eeprom[5] != sig.b5 {
			continue
		}
		for _, b6 := range sig.b6 {
			if eeprom[6] == b6 {
				return sig.hw
			}
		}
	}
	return Unknown
}

// Manager owns all SiteCount mezzanine sites (spec.md §9's "top-level
// System owning a vector of four Mezzanine").
type Manager struct {
	log   *obslog.Logger
	sites [SiteCount]Mezzanine

	oneWire board.OneWireBus
	i2c     board.I2CBus
}

// New constructs an un-discovered Manager.
func New(log *obslog.Logger, oneWire board.OneWireBus, i2c board.I2CBus) *Manager {
	m := &Manager{log: log, oneWire: oneWire, i2c: i2c}
	for i := range m.sites {
		m.sites[i] = Mezzanine{magic: mezzMagic, site: i}
	}
	return m
}

// Site returns the Mezzanine object for the given site index (0..3).
func (m *Manager) Site(site int) *Mezzanine { return &m.sites[site] }

// Discover reads, for each site, the 1-Wire EEPROM and the
// firmware-compiled-in driver-type status register, and records
// firmware_support/allow_init accordingly (spec.md §4.9).
func (m *Manager) Discover(firmwareStatusReg uint32) error {
	for site := 0; site < SiteCount; site++ {
		mz := &m.sites[site]

		mz.firmwareTag = firmwareTagFromStatus(firmwareStatusReg, site)

		romID, err := m.oneWire.ReadROM(site)
		if err != nil {
			mz.detected = Open
			continue
		}

		eeprom, err := m.oneWire.ReadMem(site, romID, 0, 8)
		if err != nil || len(eeprom) < 8 {
			mz.detected = Open
			continue
		}

		var image [8]byte
		copy(image[:], eeprom)
		mz.detected = classify(image)

		mz.firmwareSupport = mz.detected == mz.firmwareTag && mz.detected != Open && mz.detected != Unknown
		mz.allowInit = mz.firmwareSupport

		if m.log != nil {
			m.log.Printf(obslog.SelectMezzanine, obslog.Info, "mezzanine site %d: detected=%s firmware=%s allow_init=%v\n",
				site, mz.detected, mz.firmwareTag, mz.allowInit)
		}
	}
	return nil
}

// firmwareTagFromStatus extracts the middle bits of the 4-bit nibble
// for a given site out of the firmware-support status register
// (spec.md §4.9: "a status register exposing four 4-bit nibbles, one
// per site, whose middle bits identify the firmware-compiled-in driver
// type").
func firmwareTagFromStatus(status uint32, site int) HardwareType {
	nibble := (status >> uint(site*4)) & 0xf
	middleBits := (nibble >> 1) & 0x3
	switch middleBits {
	case 1:
		return QSFP
	case 2:
		return ADC
	case 3:
		return HMC
	default:
		return Open
	}
}

// AttachState installs the card's driver state machine once
// firmware_support is true; called by the main loop after Discover.
func (mz *Mezzanine) AttachState(state CardState) {
	if mz.firmwareSupport {
		mz.state = state
	}
}

// Step advances the site's attached driver state machine, a no-op when
// none is attached (Open/Unknown/HMC sites, or firmware mismatch).
func (mz *Mezzanine) Step() error {
	if mz.state == nil {
		return nil
	}
	return mz.state.Step()
}

// Pause/Resume/ResetState forward to the attached state machine.
func (mz *Mezzanine) Pause() {
	if mz.state != nil {
		mz.state.Pause()
	}
}

func (mz *Mezzanine) Resume() {
	if mz.state != nil {
		mz.state.Resume()
	}
}

func (mz *Mezzanine) ResetState() {
	if mz.state != nil {
		mz.state.ResetState()
	}
}

// Detected returns the site's detected hardware type.
func (mz *Mezzanine) Detected() HardwareType { return mz.detected }

// FirmwareSupport reports whether the detected hardware matches the
// compiled-in firmware tag.
func (mz *Mezzanine) FirmwareSupport() bool { return mz.firmwareSupport }

// AllowInit reports whether the site's state machine is permitted to
// initialize.
func (mz *Mezzanine) AllowInit() bool { return mz.allowInit }

// Site returns the site index (0..3).
func (mz *Mezzanine) Site() int { return mz.site }
