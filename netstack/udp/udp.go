// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package udp implements RFC 768 UDP header validation, grounded on
// original_source/src/udp.c's CheckUdpHeader.
package udp

import "github.com/skarab-fw/skarab/netstack/wire"

// Verdict mirrors the ARP-style outcome.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictTruncated
	VerdictChecksumError
)

// CheckUdpHeader implements spec.md §4.5's CheckUdpHeader: validates
// the declared UDP length fits the frame and, when the checksum field
// is non-zero, the pseudo-header-prefixed checksum.
func CheckUdpHeader(frame []byte) Verdict {
	base := wire.UDPFrameBase()
	if len(frame) < base+wire.UDPHeaderLen {
		return VerdictTruncated
	}

	udpLen := int(wire.Get16(frame, base+wire.UDPLengthOffset))
	if udpLen < wire.UDPHeaderLen || base+udpLen > len(frame) {
		return VerdictTruncated
	}

	checksum := wire.Get16(frame, base+wire.UDPChecksumOffset)
	if checksum == 0 {
		return VerdictOK
	}

	var pseudo [12]byte
	copy(pseudo[0:4], frame[wire.IPFrameBase+wire.IPSrcOffset:wire.IPFrameBase+wire.IPSrcOffset+4])
	copy(pseudo[4:8], frame[wire.IPFrameBase+wire.IPDstOffset:wire.IPFrameBase+wire.IPDstOffset+4])
	pseudo[8] = 0
	pseudo[9] = wire.ProtoUDP
	pseudo[10] = byte(udpLen >> 8)
	pseudo[11] = byte(udpLen)

	sum := wire.IPChecksum(0, pseudo[:])
	sum = wire.IPChecksum(sum, frame[base:base+udpLen])
	if wire.FoldChecksum(sum) != 0 {
		return VerdictChecksumError
	}

	return VerdictOK
}

// SrcPort returns the UDP source port.
func SrcPort(frame []byte) uint16 {
	return wire.Get16(frame, wire.UDPFrameBase()+wire.UDPSrcPortOffset)
}

// DstPort returns the UDP destination port.
func DstPort(frame []byte) uint16 {
	return wire.Get16(frame, wire.UDPFrameBase()+wire.UDPDstPortOffset)
}

// WriteHeader fills in the UDP header fields (length and checksum) for
// a frame whose payload has already been written at
// wire.BOOTPFrameBase()-equivalent offset, i.e. UDPFrameBase()+UDPHeaderLen.
// srcIP/dstIP are the already-written IPv4 addresses used in the
// pseudo-header.
func WriteHeader(frame []byte, srcPort, dstPort uint16, payloadLen int, srcIP, dstIP [4]byte) {
	base := wire.UDPFrameBase()
	udpLen := wire.UDPHeaderLen + payloadLen

	wire.Put16(frame, base+wire.UDPSrcPortOffset, srcPort)
	wire.Put16(frame, base+wire.UDPDstPortOffset, dstPort)
	wire.Put16(frame, base+wire.UDPLengthOffset, uint16(udpLen))
	wire.Put16(frame, base+wire.UDPChecksumOffset, 0)

	var pseudo [12]byte
	copy(pseudo[0:4], srcIP[:])
	copy(pseudo[4:8], dstIP[:])
	pseudo[8] = 0
	pseudo[9] = wire.ProtoUDP
	pseudo[10] = byte(udpLen >> 8)
	pseudo[11] = byte(udpLen)

	sum := wire.IPChecksum(0, pseudo[:])
	sum = wire.IPChecksum(sum, frame[base:base+udpLen])
	wire.Put16(frame, base+wire.UDPChecksumOffset, wire.FoldChecksum(sum))
}
