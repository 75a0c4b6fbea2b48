// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package adc

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
	s := New(nil, i2c, 1, func() time.Time { return now })

	stepToAppRunning(t, s, &now)

	if err := s.Step(); err != nil {
		t.Fatalf("Step() in AppRunning: %v", err)
	}
	if s.Phase() != AppRunning {
		t.Fatalf("Phase() after stepping AppRunning = %v, want it to stay AppRunning", s.Phase())
	}
}

func TestPauseStopsStepping(t *testing.T) {
	i2c := sim.NewI2C(0)
	now := time.Unix(0, 0)
	s := New(nil, i2c, 1, func() time.Time { return now })

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
	s := New(nil, i2c, 1, func() time.Time { return now })
	stepToAppRunning(t, s, &now)

	s.ResetState()
	if s.Phase() != BootloaderVersionWrite {
		t.Fatalf("Phase() after ResetState = %v, want BootloaderVersionWrite", s.Phase())
	}
}
