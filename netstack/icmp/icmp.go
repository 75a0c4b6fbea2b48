// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package icmp implements RFC 792 ICMP Echo validation and reply
// building, grounded on original_source/src/icmp.c.
package icmp

import (
	"github.com/skarab-fw/skarab/netstack/ipv4"
	"github.com/skarab-fw/skarab/netstack/wire"
)

// Verdict mirrors the ARP-style outcome.
type Verdict int

const (
	VerdictEchoRequest Verdict = iota
	VerdictInvalid
)

// Validate implements spec.md §4.4's type/code rule: only Echo-Request
// (type 8, code 0) is accepted. It does not look at the destination
// address; the caller checks that the frame is addressed to our IP.
func Validate(frame []byte) Verdict {
	base := wire.UDPFrameBase() // ICMP payload starts where UDP would (IP payload offset)
	if len(frame) < base+wire.ICMPHeaderLen {
		return VerdictInvalid
	}
	if frame[base+wire.ICMPTypeOffset] != wire.ICMPEchoRequest {
		return VerdictInvalid
	}
	if frame[base+wire.ICMPCodeOffset] != 0 {
		return VerdictInvalid
	}
	return VerdictEchoRequest
}

// BuildEchoReply implements spec.md §4.4's build-reply: swaps IPv4
// source/destination, sets ICMP type to Echo-Reply, and rewrites both
// checksums. rx must hold a validated Echo-Request frame; tx receives
// the reply (rx and tx may alias the same backing array as long as the
// caller has not yet reused rx). Returns the total on-wire length.
func BuildEchoReply(rx, tx []byte) int {
	n := ipv4.TotalLen(rx) + wire.IPFrameBase
	if n > len(rx) {
		n = len(rx)
	}
	copy(tx, rx[:n])

	srcMAC := make([]byte, 6)
	copy(srcMAC, tx[wire.EthSrcOffset:wire.EthSrcOffset+6])
	copy(tx[wire.EthSrcOffset:], tx[wire.EthDstOffset:wire.EthDstOffset+6])
	copy(tx[wire.EthDstOffset:], srcMAC)

	srcIP := ipv4.Src(tx)
	dstIP := ipv4.Dst(tx)
	copy(tx[wire.IPFrameBase+wire.IPSrcOffset:], dstIP[:])
	copy(tx[wire.IPFrameBase+wire.IPDstOffset:], srcIP[:])

	icmpBase := wire.UDPFrameBase()
	tx[icmpBase+wire.ICMPTypeOffset] = wire.ICMPEchoReply
	tx[icmpBase+wire.ICMPCodeOffset] = 0

	icmpLen := n - icmpBase
	wire.Put16(tx, icmpBase+wire.ICMPChecksumOffset, 0)
	sum := wire.IPChecksum(0, tx[icmpBase:icmpBase+icmpLen])
	wire.Put16(tx, icmpBase+wire.ICMPChecksumOffset, wire.FoldChecksum(sum))

	ipv4.WriteHeaderChecksum(tx)

	return n
}
