// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package igmp implements the RFC 2236 IGMPv2 report/leave-only state
// machine of spec.md §4.7, grounded on original_source/src/igmp.c.
package igmp

import (
	"github.com/skarab-fw/skarab/netstack"
	"github.com/skarab-fw/skarab/netstack/ipv4"
	"github.com/skarab-fw/skarab/netstack/wire"
)

const igmpMagic = 0x1c3d5eed

// ReportTimer is the tick interval at which JOINED periodically
// re-issues membership reports (original_source's IGMP_REPORT_TIMER).
const ReportTimer = 600

// State enumerates the four IGMP client states of spec.md §4.7.
type State int

const (
	StateIdle State = iota
	StateSendMembershipReports
	StateJoined
	StateLeaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSendMembershipReports:
		return "SEND_MEMBERSHIP_REPORTS"
	case StateJoined:
		return "JOINED"
	case StateLeaving:
		return "LEAVING"
	default:
		return "UNKNOWN"
	}
}

const (
	igmpTypeReport = 0x16
	igmpTypeLeave  = 0x17

	igmpHeaderLen = 8
)

// group is a (base, mask) multicast address range.
type group struct {
	base uint32
	mask uint32
}

// Client is the per-interface IGMP state object of spec.md §3.
type Client struct {
	magic uint32
	owner *netstack.Interface

	state State

	currentMessage uint32
	tick           uint64

	join  group
	leave group

	joinRequest  bool
	leaveRequest bool

	lastReportTick uint64

	TxReports, TxLeaves uint32
}

// New constructs an un-initialized Client bound to owner.
func New(owner *netstack.Interface) *Client {
	return &Client{magic: igmpMagic, owner: owner}
}

// State returns the current FSM state.
func (c *Client) State() State { return c.state }

// Join requests the machine join the multicast range (base & mask) |
// [0, ^mask] (spec.md §4.7). If already JOINED with a different range
// mid-stream, the current range is parked in the leave slot and the
// machine transitions through LEAVING before adopting the new one,
// without losing the join request (spec.md §4.7's mid-stream-join
// quirk, preserved exactly).
func (c *Client) Join(base, mask uint32) {
	if c.state == StateJoined && (c.join.base != base || c.join.mask != mask) {
		c.leave = c.join
		c.join = group{base: base, mask: mask}
		c.state = StateLeaving
		c.currentMessage = 0
		c.joinRequest = true
		return
	}

	c.join = group{base: base, mask: mask}
	c.joinRequest = true
}

// Leave requests the machine leave its current group.
func (c *Client) Leave() {
	c.leaveRequest = true
}

// LeaveAndFlush synchronously spins the machine, via tickFn (the
// caller's Tx-emitting per-tick step), until it returns to IDLE —
// spec.md §4.7's "synchronous leave-and-flush variant".
func (c *Client) LeaveAndFlush(tickFn func() int) {
	c.Leave()
	for c.state != StateIdle {
		tickFn()
	}
}

// Tick advances the state machine by one 100ms tick and, when a report
// or leave must be emitted, writes it into the owning interface's
// transmit buffer and returns its length; returns 0 when nothing was
// sent this tick.
func (c *Client) Tick() int {
	c.tick++

	switch c.state {
	case StateIdle:
		if c.joinRequest {
			c.joinRequest = false
			c.currentMessage = 0
			c.state = StateSendMembershipReports
		}

	case StateSendMembershipReports:
		addr := (c.join.base & c.join.mask) | c.currentMessage
		n := c.buildReport(addr)
		c.currentMessage++
		if c.currentMessage > ^c.join.mask {
			c.state = StateJoined
			c.lastReportTick = c.tick
		}
		c.TxReports++
		return n

	case StateJoined:
		if c.leaveRequest {
			c.leaveRequest = false
			c.currentMessage = 0
			c.leave = c.join
			c.state = StateLeaving
			return 0
		}
		if c.tick-c.lastReportTick >= ReportTimer {
			c.currentMessage = 0
			c.state = StateSendMembershipReports
		}

	case StateLeaving:
		addr := (c.leave.base & c.leave.mask) | c.currentMessage
		n := c.buildLeave(addr)
		c.currentMessage++
		if c.currentMessage > ^c.leave.mask {
			c.state = StateIdle
			if c.joinRequest {
				c.state = StateIdle
			}
		}
		c.TxLeaves++
		return n
	}

	return 0
}

func (c *Client) buildReport(addr uint32) int {
	return c.buildMessage(igmpTypeReport, addr)
}

func (c *Client) buildLeave(addr uint32) int {
	return c.buildMessage(igmpTypeLeave, addr)
}

// buildMessage emits a minimal IGMPv2 message (no Router Alert option;
// spec.md §6 permits only the Router Alert as a receive-side exception,
// not a transmit requirement) for the multicast group addr.
func (c *Client) buildMessage(msgType byte, addr uint32) int {
	tx := c.owner.TxBuffer()
	ipBase := wire.IPFrameBase
	igmpBase := wire.UDPFrameBase() // IGMP payload begins where UDP would

	n := igmpBase + igmpHeaderLen
	for i := 0; i < n; i++ {
		tx[i] = 0
	}

	var groupIP [4]byte
	wire.Put32(groupIP[:], 0, addr)

	// Ethernet dst: 01:00:5e:xx:xx:xx derived from the low 23 bits of
	// the multicast group, per RFC 1112 §6.4.
	dst := [6]byte{0x01, 0x00, 0x5e, groupIP[1] & 0x7f, groupIP[2], groupIP[3]}
	copy(tx[wire.EthDstOffset:], dst[:])
	mac := c.owner.MAC()
	copy(tx[wire.EthSrcOffset:], mac[:])
	wire.Put16(tx, wire.EthTypeOffset, wire.EtherTypeIPv4)

	tx[ipBase+wire.IPVerIHLOffset] = 0x45
	wire.Put16(tx, ipBase+wire.IPTotalLenOffset, uint16(n-ipBase))
	tx[ipBase+wire.IPTTLOffset] = 1
	tx[ipBase+wire.IPProtoOffset] = wire.ProtoIGMP
	srcIP := c.owner.IP()
	copy(tx[ipBase+wire.IPSrcOffset:], srcIP[:])
	copy(tx[ipBase+wire.IPDstOffset:], groupIP[:])
	ipv4.WriteHeaderChecksum(tx)

	tx[igmpBase+0] = msgType
	tx[igmpBase+1] = 0
	wire.Put16(tx, igmpBase+2, 0) // checksum, filled below
	copy(tx[igmpBase+4:], groupIP[:])

	sum := wire.IPChecksum(0, tx[igmpBase:n])
	wire.Put16(tx, igmpBase+2, wire.FoldChecksum(sum))

	return n
}
