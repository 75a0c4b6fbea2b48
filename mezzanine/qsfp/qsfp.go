// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package qsfp implements the QSFP mezzanine card's nested state
// machine of spec.md §3/§4.9: a bootloader init phase followed by a
// ten-step application cycle, grounded on original_source/src/mezz.c's
// QSFP handling.
package qsfp

import (
	"time"

	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/internal/obslog"
)

// initPhase enumerates the bootloader handshake steps of spec.md §3.
type initPhase int

const (
	BootloaderVersionWrite initPhase = iota
	BootloaderVersionRead
	LeaveBootloader
	StartingApp
	AppRunning
)

// appStep enumerates the ten-step application cycle of spec.md §3:
// "update TX LEDs -> update RX LEDs -> for each of four modules: write
// present-reg-address then read present-bit".
type appStep int

const (
	stepUpdateTxLEDs appStep = iota
	stepUpdateRxLEDs
	stepModule0Write
	stepModule0Read
	stepModule1Write
	stepModule1Read
	stepModule2Write
	stepModule2Read
	stepModule3Write
	stepModule3Read
	appStepCount
)

const leaveBootloaderSettle = 3 * time.Second

// Registers the QSFP driver addresses on the STM microcontroller over
// I²C, per original_source/src/mezz.c.
const (
	regBootloaderVersion = 0x00
	regLeaveBootloader   = 0x01
	regTxLEDs            = 0x10
	regRxLEDs            = 0x11
	regModulePresentBase = 0x20 // one register per module, +module index
)

const i2cAddr = 0x50

// State is the QSFP card's CardState implementation.
type State struct {
	log  *obslog.Logger
	i2c  board.I2CBus
	site int

	phase initPhase
	step  appStep

	paused bool

	settleUntil time.Time
	now         func() time.Time

	txLEDs, rxLEDs uint8
	present        [4]bool
	moduleReset    [4]bool

	bootloaderVersion byte
}

// New constructs a QSFP state machine for the given site, starting in
// the bootloader handshake.
func New(log *obslog.Logger, i2c board.I2CBus, site int, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{log: log, i2c: i2c, site: site, now: now}
}

// Step advances the state machine by one call from the main loop
// (spec.md §4.9).
func (s *State) Step() error {
	if s.paused {
		return nil
	}

	switch s.phase {
	case BootloaderVersionWrite:
		if err := s.i2c.Write(i2cAddr, regBootloaderVersion, nil); err != nil {
			return err
		}
		s.phase = BootloaderVersionRead

	case BootloaderVersionRead:
		v, err := s.i2c.Read(i2cAddr, regBootloaderVersion, 1)
		if err != nil {
			return err
		}
		if len(v) > 0 {
			s.bootloaderVersion = v[0]
		}
		s.phase = LeaveBootloader

	case LeaveBootloader:
		if err := s.i2c.Write(i2cAddr, regLeaveBootloader, []byte{0x01}); err != nil {
			return err
		}
		s.settleUntil = s.now().Add(leaveBootloaderSettle)
		s.phase = StartingApp

	case StartingApp:
		if s.now().Before(s.settleUntil) {
			return nil
		}
		s.phase = AppRunning

	case AppRunning:
		return s.stepApp()
	}

	return nil
}

func (s *State) stepApp() error {
	switch s.step {
	case stepUpdateTxLEDs:
		err := s.i2c.Write(i2cAddr, regTxLEDs, []byte{s.txLEDs})
		s.step = stepUpdateRxLEDs
		return err

	case stepUpdateRxLEDs:
		err := s.i2c.Write(i2cAddr, regRxLEDs, []byte{s.rxLEDs})
		s.step = stepModule0Write
		return err

	default:
		module := (int(s.step) - int(stepModule0Write)) / 2
		isWrite := (int(s.step)-int(stepModule0Write))%2 == 0

		if isWrite {
			err := s.i2c.Write(i2cAddr, regModulePresentBase+byte(module), nil)
			s.step++
			return err
		}

		v, err := s.i2c.Read(i2cAddr, regModulePresentBase+byte(module), 1)
		if err == nil && len(v) > 0 {
			s.present[module] = v[0]&0x01 != 0
			s.moduleReset[module] = !s.present[module]
		}

		s.step++
		if s.step >= appStepCount {
			s.step = stepUpdateTxLEDs
		}
		return err
	}
}

// SetLinkStatus updates the TX/RX LED bitmaps the app loop cycles from
// the firmware link-up/activity bits, per spec.md §4.9.
func (s *State) SetLinkStatus(txActive, rxActive uint8) {
	s.txLEDs = txActive
	s.rxLEDs = rxActive
}

// ModulePresent reports whether the given module (0..3) is present.
func (s *State) ModulePresent(module int) bool { return s.present[module] }

// Pause implements CardState; used while the card's own firmware is
// being reprogrammed.
func (s *State) Pause() { s.paused = true }

// Resume implements CardState.
func (s *State) Resume() { s.paused = false }

// ResetState implements CardState, used on mezzanine hot-reinit.
func (s *State) ResetState() {
	s.phase = BootloaderVersionWrite
	s.step = stepUpdateTxLEDs
	s.paused = false
}

// Phase returns the current init-phase value.
func (s *State) Phase() initPhase { return s.phase }
