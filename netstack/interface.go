// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package netstack implements the per-interface, polled, zero-copy
// network stack: one Interface per physical Ethernet link, its receive
// packet filter, and its per-outcome packet counters (spec.md §3/§4.1).
// Protocol engines (ARP, ICMP, IPv4/UDP validation, DHCP, IGMP, LLDP)
// live in the netstack/... subpackages; Interface wires them together.
package netstack

import (
	"fmt"

	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/neterr"
	"github.com/skarab-fw/skarab/netstack/wire"
)

// ifMagic marks an initialized Interface, mirroring original_source's
// IF_MAGIC sentinel used to detect use of an uninitialized object.
const ifMagic = 0x1540fea5

const (
	minRxBufferLen = 1500
	minTxBufferLen = 1024
)

// Outcome enumerates every leaf classification recv_packet_filter can
// produce, per spec.md §4.2's classification precedence.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeArpReply
	OutcomeArpRequest
	OutcomeArpConflict
	OutcomeArpInvalid
	OutcomeIPChecksumError
	OutcomeIcmpEchoRequest
	OutcomeIcmpInvalid
	OutcomeIgmpDropped
	OutcomeTcpDropped
	OutcomeUdpDhcp
	OutcomeUdpControl
	OutcomeUdpUnknown
	OutcomeLldpDropped
	OutcomeEthUnknown
)

// Counters holds the Interface object's 27 per-outcome packet counters
// (spec.md §3), plus the RxTotal roll-up.
// Counters are monotonically non-decreasing between resets (spec.md
// §3 invariant).
type Counters struct {
	RxTotal uint32

	RxEthArp         uint32
	RxArpReply       uint32
	RxArpRequest     uint32
	RxArpConflict    uint32
	RxArpInvalid     uint32
	TxArpReply       uint32
	TxArpRequest     uint32

	RxEthIp          uint32
	RxIpChecksumErrors uint32

	RxIcmpEchoRequest uint32
	RxIcmpInvalid     uint32
	TxIcmpEchoReply   uint32

	RxIgmpDropped uint32
	TxIgmpReport  uint32
	TxIgmpLeave   uint32

	RxTcpDropped uint32

	RxUdpDhcp    uint32
	RxUdpControl uint32
	RxUdpUnknown uint32
	RxUdpChecksumErrors uint32
	TxUdpDhcp    uint32
	TxUdpControl uint32

	RxDhcpInvalid uint32

	RxLldpDropped uint32
	TxLldp        uint32

	RxEthUnknown uint32

	TxTotal uint32
}

// Incr bumps the counter named kind, matching the Interface object's
// single counter_incr(kind) entry point from spec.md §4.1.
func (c *Counters) Incr(kind Outcome) {
	switch kind {
	case OutcomeArpReply:
		c.RxArpReply++
	case OutcomeArpRequest:
		c.RxArpRequest++
	case OutcomeArpConflict:
		c.RxArpConflict++
	case OutcomeArpInvalid:
		c.RxArpInvalid++
	case OutcomeIPChecksumError:
		c.RxIpChecksumErrors++
	case OutcomeIcmpEchoRequest:
		c.RxIcmpEchoRequest++
	case OutcomeIcmpInvalid:
		c.RxIcmpInvalid++
	case OutcomeIgmpDropped:
		c.RxIgmpDropped++
	case OutcomeTcpDropped:
		c.RxTcpDropped++
	case OutcomeUdpDhcp:
		c.RxUdpDhcp++
	case OutcomeUdpControl:
		c.RxUdpControl++
	case OutcomeUdpUnknown:
		c.RxUdpUnknown++
	case OutcomeLldpDropped:
		c.RxLldpDropped++
	case OutcomeEthUnknown:
		c.RxEthUnknown++
	}
}

// DHCPBackend is implemented by netstack/dhcp.Client; Interface only needs
// its back-reference to the owning Interface. Declaring it here avoids an
// import cycle, since netstack/dhcp imports netstack.
type DHCPBackend interface {
	Owner() *Interface
}

// Interface represents one physical Ethernet link (spec.md §3). Buffers
// are caller-owned; Interface never allocates or frees them.
type Interface struct {
	magic uint32

	log *obslog.Logger

	rx []byte
	tx []byte

	msgSize      int
	numWordsRead int

	linkUp    bool
	rxActive  bool

	mac      [6]byte
	hostname string

	ip       [4]byte
	ipNum    uint32
	mask     [4]byte
	maskNum  uint32

	ethID int
	subnet uint32

	arpRequestEnabled     bool
	arpProcessingEnabled  bool
	arpRequestTargetCount uint32

	Counters Counters

	dhcp DHCPBackend
}

// New allocates an uninitialized Interface bound to logger log. Call
// Init before use.
func New(log *obslog.Logger) *Interface {
	return &Interface{log: log}
}

// Init implements spec.md §4.1's init entry point: it fails if any
// buffer is nil or under the minimum size, zeros both buffers, copies
// the MAC, clears all counters and installs the magic.
func (i *Interface) Init(rx, tx []byte, mac [6]byte, ethID int) error {
	if rx == nil || tx == nil {
		return neterr.Wrap(neterr.Fail, "nil rx/tx buffer")
	}
	if len(rx) < minRxBufferLen {
		return neterr.Wrap(neterr.Fail, fmt.Sprintf("rx buffer too small: %d", len(rx)))
	}
	if len(tx) < minTxBufferLen {
		return neterr.Wrap(neterr.Fail, fmt.Sprintf("tx buffer too small: %d", len(tx)))
	}

	for idx := range rx {
		rx[idx] = 0
	}
	for idx := range tx {
		tx[idx] = 0
	}

	i.rx = rx
	i.tx = tx
	i.mac = mac
	i.ethID = ethID
	i.Counters = Counters{}
	i.msgSize = 0
	i.numWordsRead = 0
	i.arpRequestEnabled = true
	i.arpProcessingEnabled = true
	i.magic = ifMagic

	i.hostname = fmt.Sprintf("skarab%02x%02x%02x", mac[2], mac[3], mac[4])

	return nil
}

// Initialized reports whether Init has installed the interface magic
// (spec.md §3's "magic equals IF_MAGIC iff the object has been
// initialized").
func (i *Interface) Initialized() bool { return i.magic == ifMagic }

// Configure installs an IPv4 address and netmask, in both byte-array and
// numeric forms.
func (i *Interface) Configure(ip, mask [4]byte) {
	i.ip = ip
	i.mask = mask
	i.ipNum = wire.Get32(ip[:], 0)
	i.maskNum = wire.Get32(mask[:], 0)
	i.subnet = i.ipNum & i.maskNum
}

// MAC returns the interface's six-byte hardware address.
func (i *Interface) MAC() [6]byte { return i.mac }

// IP returns the interface's configured IPv4 address.
func (i *Interface) IP() [4]byte { return i.ip }

// IPNum returns the interface's configured IPv4 address as a uint32.
func (i *Interface) IPNum() uint32 { return i.ipNum }

// Mask returns the interface's configured netmask.
func (i *Interface) Mask() [4]byte { return i.mask }

// Hostname returns the interface's generated hostname (≤15 chars).
func (i *Interface) Hostname() string { return i.hostname }

// EthID returns the interface's physical-interface id.
func (i *Interface) EthID() int { return i.ethID }

// RxBuffer returns the caller-owned receive buffer.
func (i *Interface) RxBuffer() []byte { return i.rx }

// TxBuffer returns the caller-owned transmit buffer.
func (i *Interface) TxBuffer() []byte { return i.tx }

// MsgSize returns the number of valid bytes staged in the transmit
// buffer.
func (i *Interface) MsgSize() int { return i.msgSize }

// SetMsgSize records the number of valid bytes a handler staged in the
// transmit buffer; the main loop reads this to flush exactly that many
// bytes via the board I/O driver.
func (i *Interface) SetMsgSize(n int) {
	if n > len(i.tx) {
		n = len(i.tx)
	}
	i.msgSize = n
}

// LinkUp reports the last-observed link status.
func (i *Interface) LinkUp() bool { return i.linkUp }

// ARPRequestEnabled reports the "arp-req" policy flag.
func (i *Interface) ARPRequestEnabled() bool { return i.arpRequestEnabled }

// SetARPRequestEnabled sets the "arp-req" policy flag.
func (i *Interface) SetARPRequestEnabled(v bool) { i.arpRequestEnabled = v }

// ARPProcessingEnabled reports the "arp-proc" policy flag.
func (i *Interface) ARPProcessingEnabled() bool { return i.arpProcessingEnabled }

// SetARPProcessingEnabled sets the "arp-proc" policy flag.
func (i *Interface) SetARPProcessingEnabled(v bool) { i.arpProcessingEnabled = v }

// BumpARPRequestCounter advances the rolling ARP-request target counter
// used to cycle through gratuitous-request targets.
func (i *Interface) BumpARPRequestCounter() uint32 {
	i.arpRequestTargetCount++
	return i.arpRequestTargetCount
}

// UpdateLinkStatus projects the link-status bit for EthID out of a
// firmware register value (spec.md §4.1).
func (i *Interface) UpdateLinkStatus(linkStatusRegister uint32) {
	i.linkUp = (linkStatusRegister>>uint(i.ethID))&1 != 0
}

// SetRxActive marks whether the receive path currently holds a frame
// awaiting classification.
func (i *Interface) SetRxActive(v bool) { i.rxActive = v }

// RxActive reports whether the receive path currently holds a frame.
func (i *Interface) RxActive() bool { return i.rxActive }

// SetNumWordsRead records how many 32-bit words the main loop staged
// into the receive buffer this cycle.
func (i *Interface) SetNumWordsRead(n int) { i.numWordsRead = n }

// NumWordsRead returns the word count last set by SetNumWordsRead.
func (i *Interface) NumWordsRead() int { return i.numWordsRead }

// RxLen returns the valid receive-buffer length in bytes, derived from
// NumWordsRead (the buffer is filled in 32-bit words by the MAC DMA).
func (i *Interface) RxLen() int {
	n := i.numWordsRead * 4
	if n > len(i.rx) {
		n = len(i.rx)
	}
	return n
}

// ClassifyEtherType inspects the Ethernet header alone and returns the
// coarse EtherType bucket; used by RecvPacketFilter and directly by
// tests exercising only the dispatch precedence.
func (i *Interface) ClassifyEtherType() uint16 {
	if i.RxLen() < wire.EthHeaderLen {
		return 0
	}
	return wire.Get16(i.rx, wire.EthTypeOffset)
}

func (i *Interface) logf(sel obslog.Select, format string, args ...interface{}) {
	if i.log == nil {
		return
	}
	i.log.Printf(sel, obslog.Debug, format, args...)
}
