// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package igmp

import (
	"testing"

	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/netstack"
)

func newTestInterface(t *testing.T) *netstack.Interface {
	t.Helper()
	iface := netstack.New(obslog.New(nopWriter{}))
	mac := [6]byte{0x02, 0, 0, 0, 0, 1}
	if err := iface.Init(make([]byte, 1500), make([]byte, 1500), mac, 0); err != nil {
		t.Fatalf("Init: %v", err)
	}
	iface.Configure([4]byte{10, 0, 0, 1}, [4]byte{255, 255, 255, 0})
	return iface
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// TestJoinFourAddressRange covers spec.md §8's E4 scenario: joining a
// /30 (mask with 4 host addresses) walks through all four reports
// before settling in JOINED.
func TestJoinFourAddressRange(t *testing.T) {
	iface := newTestInterface(t)
	c := New(iface)

	base := uint32(0xe0000010) // 224.0.0.16
	mask := uint32(0xfffffffc) // /30, 4 addresses

	c.Join(base, mask)
	if c.State() != StateIdle {
		t.Fatalf("State after Join = %v, want StateIdle (request pending)", c.State())
	}

	reports := 0
	for i := 0; i < 10 && c.State() != StateJoined; i++ {
		if n := c.Tick(); n > 0 {
			reports++
		}
	}
	if c.State() != StateJoined {
		t.Fatalf("State after ticking = %v, want StateJoined", c.State())
	}
	if reports != 4 {
		t.Fatalf("reports sent = %d, want 4 (one per address in the range)", reports)
	}
	if c.TxReports != 4 {
		t.Fatalf("TxReports = %d, want 4", c.TxReports)
	}
}

func TestLeaveAndFlush(t *testing.T) {
	iface := newTestInterface(t)
	c := New(iface)

	c.Join(0xe0000010, 0xfffffffc)
	for c.State() != StateJoined {
		c.Tick()
	}

	c.LeaveAndFlush(c.Tick)
	if c.State() != StateIdle {
		t.Fatalf("State after LeaveAndFlush = %v, want StateIdle", c.State())
	}
	if c.TxLeaves != 4 {
		t.Fatalf("TxLeaves = %d, want 4", c.TxLeaves)
	}
}

// TestMidStreamJoin covers spec.md §4.7's join-while-joined quirk: a new
// Join while JOINED parks the old range in the leave slot and transits
// through LEAVING without clearing the join request.
func TestMidStreamJoin(t *testing.T) {
	iface := newTestInterface(t)
	c := New(iface)

	c.Join(0xe0000010, 0xfffffffc)
	for c.State() != StateJoined {
		c.Tick()
	}

	c.Join(0xe0000020, 0xfffffffc)
	if c.State() != StateLeaving {
		t.Fatalf("State after mid-stream Join = %v, want StateLeaving", c.State())
	}

	for c.State() != StateJoined {
		c.Tick()
	}
	if c.join.base != 0xe0000020 {
		t.Fatalf("join.base = %#x, want 0xe0000020 (the new range)", c.join.base)
	}
}
