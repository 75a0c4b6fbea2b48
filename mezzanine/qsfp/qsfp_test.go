// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package qsfp

import (
	"testing"
	"time"

	"github.com/skarab-fw/skarab/board/sim"
)

func stepToAppRunning(t *testing.T, s *State, clock *time.Time) {
	t.Helper()
	for i := 0; i < 3 && s.Phase() != AppRunning; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step() during bootloader handshake: %v", err)
		}
	}
	if s.Phase() != StartingApp {
		t.Fatalf("Phase() = %v, want StartingApp before the settle delay elapses", s.Phase())
	}
	*clock = clock.Add(leaveBootloaderSettle)
	if err := s.Step(); err != nil {
		t.Fatalf("Step() past settle delay: %v", err)
	}
	if s.Phase() != AppRunning {
		t.Fatalf("Phase() = %v, want AppRunning", s.Phase())
	}
}

func TestBootloaderHandshakeReachesAppRunning(t *testing.T) {
	i2c := sim.NewI2C(0)
	now := time.Unix(0, 0)
	s := New(nil, i2c, 0, func() time.Time { return now })

	stepToAppRunning(t, s, &now)
}

func TestAppCycleVisitsAllTenSteps(t *testing.T) {
	i2c := sim.NewI2C(0)
	now := time.Unix(0, 0)
	s := New(nil, i2c, 0, func() time.Time { return now })
	stepToAppRunning(t, s, &now)

	s.SetLinkStatus(0x0f, 0x03)

	for i := 0; i < 10; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step() app cycle index %d: %v", i, err)
		}
	}

	for module := 0; module < 4; module++ {
		if s.ModulePresent(module) {
			t.Fatalf("ModulePresent(%d) = true, want false (sim I2C reads zero bytes)", module)
		}
	}
}

func TestAppCycleWrapsAround(t *testing.T) {
	i2c := sim.NewI2C(0)
	now := time.Unix(0, 0)
	s := New(nil, i2c, 0, func() time.Time { return now })
	stepToAppRunning(t, s, &now)

	for i := 0; i < 10; i++ {
		s.Step()
	}
	if s.step != stepUpdateTxLEDs {
		t.Fatalf("step after one full cycle = %v, want stepUpdateTxLEDs (wrap around)", s.step)
	}
}

func TestPauseStopsStepping(t *testing.T) {
	i2c := sim.NewI2C(0)
	now := time.Unix(0, 0)
	s := New(nil, i2c, 0, func() time.Time { return now })

	s.Pause()
	if err := s.Step(); err != nil {
		t.Fatalf("Step() while paused: %v", err)
	}
	if s.Phase() != BootloaderVersionWrite {
		t.Fatalf("Phase() advanced while paused, want it to stay BootloaderVersionWrite")
	}

	s.Resume()
	if err := s.Step(); err != nil {
		t.Fatalf("Step() after resume: %v", err)
	}
	if s.Phase() != BootloaderVersionRead {
		t.Fatalf("Phase() = %v, want BootloaderVersionRead after resuming", s.Phase())
	}
}

func TestResetStateReturnsToBootloader(t *testing.T) {
	i2c := sim.NewI2C(0)
	now := time.Unix(0, 0)
	s := New(nil, i2c, 0, func() time.Time { return now })
	stepToAppRunning(t, s, &now)
	s.Step()

	s.ResetState()
	if s.Phase() != BootloaderVersionWrite {
		t.Fatalf("Phase() after ResetState = %v, want BootloaderVersionWrite", s.Phase())
	}
	if s.step != stepUpdateTxLEDs {
		t.Fatalf("step after ResetState = %v, want stepUpdateTxLEDs", s.step)
	}
}
