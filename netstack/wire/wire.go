// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package wire centralizes the byte offsets of every frame the control
// plane parses or builds, grounded on original_source/src/{eth,arp,ipv4,
// udp,dhcp,igmp,lldp}.h. All offsets are relative to the start of the
// Ethernet frame in the interface's Rx/Tx buffer; this package performs
// no allocation, only get/set helpers over a caller-owned []byte,
// preserving the "zero-copy... byte-addressable" requirement of
// spec.md §3.
package wire

import "encoding/binary"

// Ethernet header layout (14 bytes).
const (
	EthDstOffset  = 0
	EthSrcOffset  = 6
	EthTypeOffset = 12
	EthHeaderLen  = 14
)

// EtherType values the dispatcher recognizes (spec.md §4.2).
const (
	EtherTypeARP  = 0x0806
	EtherTypeIPv4 = 0x0800
	EtherTypeLLDP = 0x88cc
)

// Broadcast is the Ethernet broadcast address.
var Broadcast = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ARP header layout, relative to ARPFrameBase = EthHeaderLen.
const (
	ARPFrameBase        = EthHeaderLen
	ARPHWTypeOffset     = 0
	ARPProtoTypeOffset  = 2
	ARPHWAddrLenOffset  = 4
	ARPProtoAddrLenOffset = 5
	ARPOpcodeOffset     = 6
	ARPSrcHWAddrOffset  = 8
	ARPSrcProtoAddrOffset = 14
	ARPTgtHWAddrOffset  = 18
	ARPTgtProtoAddrOffset = 24
	ARPFrameTotalLen    = 28

	ARPOpRequest = 1
	ARPOpReply   = 2
)

// IPv4 header layout, relative to IPFrameBase = EthHeaderLen.
const (
	IPFrameBase       = EthHeaderLen
	IPVerIHLOffset    = 0
	IPTOSOffset       = 1
	IPTotalLenOffset  = 2
	IPIDOffset        = 4
	IPFlagsFragOffset = 6
	IPTTLOffset       = 8
	IPProtoOffset     = 9
	IPChecksumOffset  = 10
	IPSrcOffset       = 12
	IPDstOffset       = 16
	IPHeaderLen       = 20

	ProtoICMP = 1
	ProtoIGMP = 2
	ProtoTCP  = 6
	ProtoUDP  = 17
)

// UDP header layout, relative to UDPFrameBase = IPFrameBase+IPHeaderLen.
const (
	UDPSrcPortOffset = 0
	UDPDstPortOffset = 2
	UDPLengthOffset  = 4
	UDPChecksumOffset = 6
	UDPHeaderLen     = 8

	DHCPServerPort = 67
	DHCPClientPort = 68
	ControlPort    = 0x7778
)

func UDPFrameBase() int { return IPFrameBase + IPHeaderLen }

// ICMP header layout, relative to the UDP/ICMP payload base (IP payload
// start, same as UDPFrameBase for our single-protocol-at-a-time use).
const (
	ICMPTypeOffset   = 0
	ICMPCodeOffset   = 1
	ICMPChecksumOffset = 2
	ICMPIdentOffset  = 4
	ICMPSeqOffset    = 6
	ICMPHeaderLen    = 8

	ICMPEchoRequest = 8
	ICMPEchoReply   = 0
)

// BOOTP/DHCP layout, relative to BOOTPFrameBase = UDPFrameBase+UDPHeaderLen.
const (
	BOOTPOpOffset     = 0
	BOOTPHTypeOffset  = 1
	BOOTPHLenOffset   = 2
	BOOTPHopsOffset   = 3
	BOOTPXIDOffset    = 4
	BOOTPSecsOffset   = 8
	BOOTPFlagsOffset  = 10
	BOOTPCiaddrOffset = 12
	BOOTPYiaddrOffset = 16
	BOOTPSiaddrOffset = 20
	BOOTPGiaddrOffset = 24
	BOOTPChaddrOffset = 28
	BOOTPChaddrLen    = 16
	BOOTPSnameOffset  = 44
	BOOTPSnameLen     = 64
	BOOTPFileOffset   = 108
	BOOTPFileLen      = 128
	BOOTPOptionsOffset = 236
	BOOTPHeaderLen    = BOOTPOptionsOffset

	DHCPMagicCookie = 0x63825363
)

func BOOTPFrameBase() int { return UDPFrameBase() + UDPHeaderLen }

// UDPPayloadOffset is BOOTPFrameBase's generic name: the byte offset of
// the UDP payload for any UDP-carried protocol (DHCP, or the command
// dispatcher's opcode/sequence header), not only BOOTP/DHCP.
func UDPPayloadOffset() int { return BOOTPFrameBase() }

// Get16/Put16/Get32/Put32 read/write big-endian (network byte order)
// integers at a byte offset within buf, per spec.md §3 ("all multi-byte
// integers are network byte order unless explicitly noted").

func Get16(buf []byte, off int) uint16 {
	return binary.BigEndian.Uint16(buf[off : off+2])
}

func Put16(buf []byte, off int, v uint16) {
	binary.BigEndian.PutUint16(buf[off:off+2], v)
}

func Get32(buf []byte, off int) uint32 {
	return binary.BigEndian.Uint32(buf[off : off+4])
}

func Put32(buf []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(buf[off:off+4], v)
}

// IPChecksum implements the RFC 1071 one's-complement-with-end-around-
// carry sum over data, starting from seed (0 for a fresh computation, or
// a partial sum when folding a pseudo-header into a UDP checksum).
// Callers fold the result to 16 bits and complement it themselves, since
// some callers (e.g. incremental pseudo-header sums) need the unfolded
// 32-bit accumulator.
func IPChecksum(seed uint32, data []byte) uint32 {
	sum := seed

	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}

	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}

	return sum
}

// FoldChecksum folds and complements an accumulator produced by
// IPChecksum into the final 16-bit checksum field value.
func FoldChecksum(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
