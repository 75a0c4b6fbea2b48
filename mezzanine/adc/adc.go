// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package adc implements the ADC32RF45X2 mezzanine card's state
// machine of spec.md §3/§4.9: a bootloader init phase symmetric with
// mezzanine/qsfp, followed by an application phase that is currently a
// single "do nothing" state reserved for expansion.
package adc

import (
	"time"

	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/internal/obslog"
)

// initPhase mirrors mezzanine/qsfp's bootloader handshake (spec.md §3:
// "init phase as for QSFP").
type initPhase int

const (
	BootloaderVersionWrite initPhase = iota
	BootloaderVersionRead
	LeaveBootloader
	StartingApp
	AppRunning
)

const leaveBootloaderSettle = 3 * time.Second

const (
	regBootloaderVersion = 0x00
	regLeaveBootloader   = 0x01
)

const i2cAddr = 0x51

// State is the ADC card's CardState implementation.
type State struct {
	log  *obslog.Logger
	i2c  board.I2CBus
	site int

	phase  initPhase
	paused bool

	settleUntil time.Time
	now         func() time.Time

	bootloaderVersion byte
}

// New constructs an ADC state machine for the given site, starting in
// the bootloader handshake.
func New(log *obslog.Logger, i2c board.I2CBus, site int, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{log: log, i2c: i2c, site: site, now: now}
}

// Step advances the state machine by one call from the main loop.
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
		// Reserved for expansion (spec.md §3: "currently a single
		// 'do nothing' state").
	}

	return nil
}

// Pause implements CardState.
func (s *State) Pause() { s.paused = true }

// Resume implements CardState.
func (s *State) Resume() { s.paused = false }

// ResetState implements CardState.
func (s *State) ResetState() {
	s.phase = BootloaderVersionWrite
	s.paused = false
}

// Phase returns the current init-phase value.
func (s *State) Phase() initPhase { return s.phase }
