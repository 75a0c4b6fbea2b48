// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dhcp implements the eight-state DHCPv4 client state machine
// of spec.md §4.6, grounded on original_source/src/dhcp.c/.h. Message
// option encoding and decoding is delegated to
// github.com/insomniacslk/dhcp/dhcpv4 (the same library
// ngcxy-dranet's pkg/driver/dhcp.go depends on); this package owns only
// the FSM, the Ethernet/IP/UDP framing around the DHCP payload, and the
// timer/retry bookkeeping — things the library has no notion of because
// it's written for a socket-backed OS DHCP client, not a polled no-OS
// one.
package dhcp

import (
	"encoding/binary"
	"math/rand"
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"

	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/netstack"
	"github.com/skarab-fw/skarab/netstack/ipv4"
	"github.com/skarab-fw/skarab/netstack/udp"
	"github.com/skarab-fw/skarab/netstack/wire"
)

const dhcpMagic = 0xd4c9b001

// Tuning constants carried over from original_source/src/dhcp.h.
const (
	smRetries        = 5
	smWaitTicks      = 50
	randomizeMaxTick = 10

	defaultLeaseMonitorTimeout = 45 * time.Second
	minLeaseMonitorTimeout     = 5 * time.Second

	tickPeriod = 100 * time.Millisecond
)

// State enumerates the DHCP client FSM states of spec.md §4.6.
type State int

const (
	StateInit State = iota
	StateRandomize
	StateSelect
	StateWait
	StateRequest
	StateBound
	StateRenew
	StateRebind
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRandomize:
		return "RANDOMIZE"
	case StateSelect:
		return "SELECT"
	case StateWait:
		return "WAIT"
	case StateRequest:
		return "REQUEST"
	case StateBound:
		return "BOUND"
	case StateRenew:
		return "RENEW"
	case StateRebind:
		return "REBIND"
	default:
		return "UNKNOWN"
	}
}

// StatusFlag is a bit of the DHCP status register (spec.md §4.6).
type StatusFlag uint8

const (
	FlagAutoRediscover StatusFlag = 1 << iota
	FlagLeaseObtained
	FlagGotMessage
	FlagStateMachineEnable
	FlagReqHostName
	FlagShortCircuitRenew
	flagReserved6
	flagReserved7
)

// Lease is the set of values cached out of a DHCPOFFER/DHCPACK.
type Lease struct {
	ServerIP   [4]byte
	YourIP     [4]byte
	Subnet     [4]byte
	Router     [4]byte
	NextHopMAC [6]byte
	LeaseTime  time.Duration
	T1         time.Duration
	T2         time.Duration
}

// Event is emitted by Tick, standing in for the original's two
// void*-carrying callbacks as a tagged effect (spec.md §9's "tagged
// effect channels" redesign).
type Event int

const (
	EventNone Event = iota
	EventMessageReady
	EventLeaseAcquired
)

// OnMessageBuilt and OnLeaseAcquired are optional hooks mirroring the
// original's on_msg_built/on_lease_acquired callbacks; Tick also
// returns the corresponding Event so a caller that doesn't want hooks
// can drive the client purely by return value.
type OnMessageBuilt func(msgLen int)
type OnLeaseAcquired func(lease Lease)

// Client is the embedded DHCP state object of spec.md §3.
type Client struct {
	magic uint32
	owner *netstack.Interface
	log   *obslog.Logger

	state State
	flags StatusFlag

	xid        uint32
	rng        *rand.Rand
	hostname   string

	retries       int
	tick          uint64
	stateEntered  uint64
	randWaitTicks uint64
	unboundTicks  uint64

	leaseMonitorTimeout time.Duration

	lease Lease

	msgLen int

	onMessageBuilt  OnMessageBuilt
	onLeaseAcquired OnLeaseAcquired

	RxCount, TxCount, RxInvalid, RxErrors uint32
}

// New constructs an un-initialized Client.
func New(log *obslog.Logger) *Client {
	return &Client{log: log, leaseMonitorTimeout: defaultLeaseMonitorTimeout}
}

// Init binds the client to its owning interface (spec.md §3: "the
// embedded DHCP state's back-reference resolves to this object").
func (c *Client) Init(owner *netstack.Interface, hostname string, onMsg OnMessageBuilt, onLease OnLeaseAcquired) {
	mac := owner.MAC()
	c.magic = dhcpMagic
	c.owner = owner
	c.hostname = hostname
	c.onMessageBuilt = onMsg
	c.onLeaseAcquired = onLease
	c.flags = FlagStateMachineEnable
	c.state = StateInit
	c.rng = rand.New(rand.NewSource(seedFromMAC(mac)))
}

// Owner implements netstack.DHCPBackend.
func (c *Client) Owner() *netstack.Interface { return c.owner }

// State returns the current FSM state.
func (c *Client) State() State { return c.state }

// Lease returns the most recently cached lease; valid once LeaseObtained
// is set.
func (c *Client) Lease() Lease { return c.lease }

// Flags returns the status-flag bitmap.
func (c *Client) Flags() StatusFlag { return c.flags }

// MsgLen returns the length of the frame Tick most recently staged into
// the owning interface's transmit buffer; valid after Tick returns
// EventMessageReady.
func (c *Client) MsgLen() int { return c.msgLen }

// SetShortCircuitRenew toggles the ShortCircuitRenew status flag
// (spec.md §4.6: "skip RENEW entirely and go to INIT").
func (c *Client) SetShortCircuitRenew(v bool) {
	if v {
		c.flags |= FlagShortCircuitRenew
	} else {
		c.flags &^= FlagShortCircuitRenew
	}
}

// SetLeaseMonitorTimeout sets the global DHCP-monitor timer duration,
// clamped to the 5s floor spec.md §4.6 mandates.
func (c *Client) SetLeaseMonitorTimeout(d time.Duration) {
	if d < minLeaseMonitorTimeout {
		d = minLeaseMonitorTimeout
	}
	c.leaseMonitorTimeout = d
}

func seedFromMAC(mac [6]byte) int64 {
	var seed int64
	for _, b := range mac {
		seed = seed<<8 | int64(b)
	}
	return seed
}

// Reset forces the machine back to INIT, used by the "DHCP reset state
// machine" command opcode (0x005F) and by lease-monitor escalation.
func (c *Client) Reset() {
	c.state = StateInit
	c.flags &^= FlagLeaseObtained
	c.unboundTicks = 0
}

// ticksFor converts a duration to a tick count at the 100ms tick period.
func ticksFor(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / tickPeriod)
}

// Tick advances the state machine by one 100ms tick (spec.md §4.6:
// "driven by one call per tick"). gotMessage reports whether a valid
// DHCP reply frame (OFFER/ACK/NAK) is staged in the interface's receive
// buffer for this tick; rxFrame is that frame's bytes when gotMessage is
// true.
func (c *Client) Tick(gotMessage bool, rxFrame []byte) Event {
	if c.flags&FlagStateMachineEnable == 0 {
		return EventNone
	}

	c.tick++

	if c.state != StateBound {
		c.unboundTicks++
		if c.unboundTicks >= ticksFor(c.leaseMonitorTimeout) {
			c.log.Printf(obslog.SelectDHCP, obslog.Warn, "dhcp lease-monitor timeout, resetting\n")
			c.Reset()
			return EventNone
		}
	} else {
		c.unboundTicks = 0
	}

	switch c.state {
	case StateInit:
		c.xid = uint32(c.rng.Int63())
		c.retries++
		c.randWaitTicks = uint64(c.rng.Intn(randomizeMaxTick + 1))
		c.stateEntered = c.tick
		c.state = StateRandomize

	case StateRandomize:
		if c.tick-c.stateEntered >= c.randWaitTicks {
			c.state = StateSelect
		}

	case StateSelect:
		n := c.buildDiscover()
		c.msgLen = n
		c.stateEntered = c.tick
		c.state = StateWait
		c.TxCount++
		if c.onMessageBuilt != nil {
			c.onMessageBuilt(n)
		}
		return EventMessageReady

	case StateWait:
		if gotMessage {
			c.RxCount++
			if offer, ok := c.parseOffer(rxFrame); ok {
				c.lease = offer
				n := c.buildRequestFromOffer()
				c.msgLen = n
				c.stateEntered = c.tick
				c.state = StateRequest
				c.TxCount++
				if c.onMessageBuilt != nil {
					c.onMessageBuilt(n)
				}
				return EventMessageReady
			}
			c.RxInvalid++
		}
		if c.tick-c.stateEntered >= smWaitTicks {
			if c.retries < smRetries {
				c.state = StateSelect
			} else {
				c.state = StateInit
			}
		}

	case StateRequest:
		if gotMessage {
			c.RxCount++
			switch c.parseAckOrNak(rxFrame) {
			case ackAccepted:
				c.flags |= FlagLeaseObtained
				c.stateEntered = c.tick
				c.state = StateBound
				if c.onLeaseAcquired != nil {
					c.onLeaseAcquired(c.lease)
				}
				return EventLeaseAcquired
			case ackNak:
				c.state = StateInit
			default:
				c.RxInvalid++
			}
		} else if c.tick-c.stateEntered >= smWaitTicks {
			c.state = StateInit
		}

	case StateBound:
		if c.tick-c.stateEntered >= ticksFor(c.lease.T1) {
			c.state = StateRenew
			c.stateEntered = c.tick
		}

	case StateRenew:
		if c.flags&FlagShortCircuitRenew != 0 {
			c.state = StateInit
			break
		}
		if c.tick-c.stateEntered == 1 {
			n := c.buildRenewRequest(false)
			c.msgLen = n
			c.TxCount++
			if c.onMessageBuilt != nil {
				c.onMessageBuilt(n)
			}
			return EventMessageReady
		}
		if gotMessage {
			c.RxCount++
			if c.parseAckOrNak(rxFrame) == ackAccepted {
				c.stateEntered = c.tick
				c.state = StateBound
				return EventLeaseAcquired
			}
		}
		if c.tick-c.stateEntered >= ticksFor(c.lease.T2-c.lease.T1) {
			c.state = StateRebind
			c.stateEntered = c.tick
		}

	case StateRebind:
		if c.tick-c.stateEntered == 1 {
			n := c.buildRenewRequest(true)
			c.msgLen = n
			c.TxCount++
			if c.onMessageBuilt != nil {
				c.onMessageBuilt(n)
			}
			return EventMessageReady
		}
		if gotMessage {
			c.RxCount++
			if c.parseAckOrNak(rxFrame) == ackAccepted {
				c.stateEntered = c.tick
				c.state = StateBound
				return EventLeaseAcquired
			}
		}
		if c.tick-c.stateEntered >= ticksFor(c.lease.LeaseTime-c.lease.T2) {
			c.state = StateInit
		}
	}

	return EventNone
}

type ackVerdict int

const (
	ackInvalid ackVerdict = iota
	ackAccepted
	ackNak
)

func (c *Client) buildDiscover() int {
	mac := c.owner.MAC()
	mods := []dhcpv4.Modifier{
		dhcpv4.WithTransactionID(dhcpv4.TransactionID{byte(c.xid >> 24), byte(c.xid >> 16), byte(c.xid >> 8), byte(c.xid)}),
	}
	if c.flags&FlagReqHostName != 0 {
		mods = append(mods, dhcpv4.WithOption(dhcpv4.OptHostName(c.hostname)))
	}
	mods = append(mods, dhcpv4.WithOption(dhcpv4.OptClassIdentifier(vendorID())))

	msg, err := dhcpv4.NewDiscovery(net.HardwareAddr(mac[:]), mods...)
	if err != nil {
		return 0
	}

	return c.frameAndStage(msg, wire.Broadcast, [4]byte{255, 255, 255, 255})
}

func (c *Client) buildRequestFromOffer() int {
	offerMsg := &dhcpv4.DHCPv4{
		YourIPAddr:   net.IP(c.lease.YourIP[:]),
		ServerIPAddr: net.IP(c.lease.ServerIP[:]),
	}

	mods := []dhcpv4.Modifier{
		dhcpv4.WithTransactionID(dhcpv4.TransactionID{byte(c.xid >> 24), byte(c.xid >> 16), byte(c.xid >> 8), byte(c.xid)}),
	}
	msg, err := dhcpv4.NewRequestFromOffer(offerMsg, mods...)
	if err != nil {
		return 0
	}

	return c.frameAndStage(msg, wire.Broadcast, [4]byte{255, 255, 255, 255})
}

// buildRenewRequest builds a unicast (RENEW) or broadcast (REBIND)
// DHCPREQUEST carrying the currently-bound lease's client IP in ciaddr.
func (c *Client) buildRenewRequest(broadcast bool) int {
	msg, err := dhcpv4.New(
		dhcpv4.WithTransactionID(dhcpv4.TransactionID{byte(c.xid >> 24), byte(c.xid >> 16), byte(c.xid >> 8), byte(c.xid)}),
		dhcpv4.WithMessageType(dhcpv4.MessageTypeRequest),
		dhcpv4.WithClientIP(net.IP(c.lease.YourIP[:])),
	)
	if err != nil {
		return 0
	}

	if broadcast {
		return c.frameAndStage(msg, wire.Broadcast, [4]byte{255, 255, 255, 255})
	}
	return c.frameAndStage(msg, c.lease.NextHopMAC, c.lease.ServerIP)
}

func vendorID() string {
	return "skarab-fw/1"
}

func (c *Client) frameAndStage(msg *dhcpv4.DHCPv4, dstMAC [6]byte, dstIP [4]byte) int {
	tx := c.owner.TxBuffer()
	payload := msg.ToBytes()

	base := wire.BOOTPFrameBase()
	for i := range tx[:base+len(payload)] {
		tx[i] = 0
	}
	copy(tx[base:], payload)
	n := base + len(payload)

	wire.Put16(tx, wire.EthTypeOffset, wire.EtherTypeIPv4)
	copy(tx[wire.EthDstOffset:], dstMAC[:])
	mac := c.owner.MAC()
	copy(tx[wire.EthSrcOffset:], mac[:])

	srcIP := c.owner.IP()
	ipBase := wire.IPFrameBase
	tx[ipBase+wire.IPVerIHLOffset] = 0x45
	wire.Put16(tx, ipBase+wire.IPTotalLenOffset, uint16(n-ipBase))
	tx[ipBase+wire.IPTTLOffset] = 64
	tx[ipBase+wire.IPProtoOffset] = wire.ProtoUDP
	copy(tx[ipBase+wire.IPSrcOffset:], srcIP[:])
	copy(tx[ipBase+wire.IPDstOffset:], dstIP[:])
	ipv4.WriteHeaderChecksum(tx)

	udp.WriteHeader(tx, wire.DHCPClientPort, wire.DHCPServerPort, len(payload), srcIP, dstIP)

	return n
}

func (c *Client) parseOffer(frame []byte) (Lease, bool) {
	msg, ok := c.parseFrame(frame)
	if !ok || msg.MessageType() != dhcpv4.MessageTypeOffer {
		return Lease{}, false
	}
	if !xidMatches(msg, c.xid) {
		return Lease{}, false
	}

	var lease Lease
	copy(lease.YourIP[:], msg.YourIPAddr.To4())
	copy(lease.ServerIP[:], msg.ServerIPAddr.To4())
	if mask := msg.SubnetMask(); mask != nil {
		copy(lease.Subnet[:], mask)
	}
	if routers := msg.Router(); len(routers) > 0 {
		copy(lease.Router[:], routers[0].To4())
	}
	lease.LeaseTime = msg.IPAddressLeaseTime(defaultLeaseMonitorTimeout)
	lease.T1 = optDuration(msg, dhcpv4.OptionRenewTimeValue, lease.LeaseTime/2)
	lease.T2 = optDuration(msg, dhcpv4.OptionRebindingTimeValue, lease.LeaseTime*7/8)

	return lease, true
}

func (c *Client) parseAckOrNak(frame []byte) ackVerdict {
	msg, ok := c.parseFrame(frame)
	if !ok || !xidMatches(msg, c.xid) {
		return ackInvalid
	}
	switch msg.MessageType() {
	case dhcpv4.MessageTypeAck:
		copy(c.lease.YourIP[:], msg.YourIPAddr.To4())
		copy(c.lease.ServerIP[:], msg.ServerIPAddr.To4())
		return ackAccepted
	case dhcpv4.MessageTypeNak:
		return ackNak
	default:
		return ackInvalid
	}
}

func (c *Client) parseFrame(frame []byte) (*dhcpv4.DHCPv4, bool) {
	base := wire.BOOTPFrameBase()
	udpBase := wire.UDPFrameBase()
	if len(frame) < base {
		return nil, false
	}
	udpLen := int(wire.Get16(frame, udpBase+wire.UDPLengthOffset))
	end := udpBase + udpLen
	if end > len(frame) || end < base {
		return nil, false
	}
	msg, err := dhcpv4.FromBytes(frame[base:end])
	if err != nil {
		return nil, false
	}
	return msg, true
}

func xidMatches(msg *dhcpv4.DHCPv4, xid uint32) bool {
	tid := msg.TransactionID
	got := binary.BigEndian.Uint32(tid[:])
	return got == xid
}

func optDuration(msg *dhcpv4.DHCPv4, code dhcpv4.OptionCode, fallback time.Duration) time.Duration {
	raw := msg.Options.Get(code)
	if len(raw) != 4 {
		return fallback
	}
	return time.Duration(binary.BigEndian.Uint32(raw)) * time.Second
}
