// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dhcp

import (
	"testing"

	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/netstack"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestInterface(t *testing.T) *netstack.Interface {
	t.Helper()
	iface := netstack.New(obslog.New(nopWriter{}))
	if err := iface.Init(make([]byte, 1500), make([]byte, 1500), [6]byte{0x02, 0, 0, 0, 0, 1}, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	iface.Configure([4]byte{10, 0, 0, 1}, [4]byte{255, 255, 255, 0})
	return iface
}

func TestInitReachesWaitAndBuildsOneDiscover(t *testing.T) {
	c := New(obslog.New(nopWriter{}))
	c.Init(newTestInterface(t), "skarab000001", nil, nil)

	if c.State() != StateInit {
		t.Fatalf("State() before any Tick = %v, want StateInit", c.State())
	}

	found := false
	for i := 0; i < 20 && !found; i++ {
		if c.Tick(false, nil) == EventMessageReady {
			found = true
		}
	}
	if !found {
		t.Fatalf("never observed EventMessageReady within 20 ticks (randomizeMaxTick=%d)", randomizeMaxTick)
	}
	if c.State() != StateWait {
		t.Fatalf("State() after DISCOVER built = %v, want StateWait", c.State())
	}
	if c.TxCount != 1 {
		t.Fatalf("TxCount = %d, want 1", c.TxCount)
	}
}

func TestResetReturnsToInitAndClearsLease(t *testing.T) {
	c := New(obslog.New(nopWriter{}))
	c.Init(newTestInterface(t), "skarab000001", nil, nil)

	c.Tick(false, nil) // Init -> Randomize
	c.flags |= FlagLeaseObtained

	c.Reset()

	if c.State() != StateInit {
		t.Fatalf("State() after Reset = %v, want StateInit", c.State())
	}
	if c.Flags()&FlagLeaseObtained != 0 {
		t.Fatalf("FlagLeaseObtained still set after Reset")
	}
}

func TestSetShortCircuitRenewTogglesFlag(t *testing.T) {
	c := New(obslog.New(nopWriter{}))
	c.Init(newTestInterface(t), "skarab000001", nil, nil)

	c.SetShortCircuitRenew(true)
	if c.Flags()&FlagShortCircuitRenew == 0 {
		t.Fatalf("FlagShortCircuitRenew not set after SetShortCircuitRenew(true)")
	}
	c.SetShortCircuitRenew(false)
	if c.Flags()&FlagShortCircuitRenew != 0 {
		t.Fatalf("FlagShortCircuitRenew still set after SetShortCircuitRenew(false)")
	}
}

func TestSetLeaseMonitorTimeoutClampsToFloor(t *testing.T) {
	c := New(obslog.New(nopWriter{}))
	c.Init(newTestInterface(t), "skarab000001", nil, nil)

	c.SetLeaseMonitorTimeout(1)
	if c.leaseMonitorTimeout != minLeaseMonitorTimeout {
		t.Fatalf("leaseMonitorTimeout = %v, want the %v floor", c.leaseMonitorTimeout, minLeaseMonitorTimeout)
	}

	c.SetLeaseMonitorTimeout(10 * minLeaseMonitorTimeout)
	if c.leaseMonitorTimeout != 10*minLeaseMonitorTimeout {
		t.Fatalf("leaseMonitorTimeout = %v, want %v", c.leaseMonitorTimeout, 10*minLeaseMonitorTimeout)
	}
}

// TestLeaseMonitorTimeoutForcesReset covers spec.md §4.6's lease-monitor
// escalation: an unbound client is force-reset to INIT once it has gone
// leaseMonitorTimeout without reaching BOUND, regardless of which
// sub-state the discover/request retry loop currently sits in.
func TestLeaseMonitorTimeoutForcesReset(t *testing.T) {
	c := New(obslog.New(nopWriter{}))
	c.Init(newTestInterface(t), "skarab000001", nil, nil)
	c.SetLeaseMonitorTimeout(minLeaseMonitorTimeout) // 50 ticks at the 100ms tick period

	for i := 0; i < 49; i++ {
		c.Tick(false, nil)
	}
	if c.State() == StateInit {
		t.Fatalf("State() forced back to StateInit before the monitor timeout elapsed")
	}

	c.Tick(false, nil) // the 50th tick crosses the threshold
	if c.State() != StateInit {
		t.Fatalf("State() after the monitor timeout elapsed = %v, want StateInit", c.State())
	}
}

func TestTickIsNoopWhenStateMachineDisabled(t *testing.T) {
	c := New(obslog.New(nopWriter{}))
	c.Init(newTestInterface(t), "skarab000001", nil, nil)
	c.flags &^= FlagStateMachineEnable

	if ev := c.Tick(false, nil); ev != EventNone {
		t.Fatalf("Tick() = %v, want EventNone while the state machine is disabled", ev)
	}
	if c.State() != StateInit {
		t.Fatalf("State() advanced while the state machine was disabled")
	}
}
