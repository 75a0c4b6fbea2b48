// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ipv4 implements RFC 791 IPv4 header validation and the
// RFC 1071 checksum helpers shared by ICMP/IGMP/UDP, grounded on
// original_source/src/ipv4.c's CheckIPV4Header/CalculateIPChecksum.
package ipv4

import "github.com/skarab-fw/skarab/netstack/wire"

// CalculateIPChecksum implements spec.md §4.5's
// CalculateIPChecksum(seed, length_bytes, header_pointer) -> u32: the
// RFC 1071 one's-complement-with-end-around-carry sum. Callers fold the
// result to 16 bits and complement it (see wire.FoldChecksum).
func CalculateIPChecksum(seed uint32, data []byte) uint32 {
	return wire.IPChecksum(seed, data)
}

// Verdict mirrors the ARP/ICMP-style outcome for header validation.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictChecksumError
	VerdictTruncated
	VerdictNotForUs
)

// CheckIPV4Header implements spec.md §4.5's CheckIPV4Header: it
// validates the header checksum, that the declared total length fits
// within the received frame, and that the destination is either ourIP
// (unicast) or within the multicast group configured by mcastBase/
// mcastMask (pass a zero mask to disable multicast acceptance).
func CheckIPV4Header(frame []byte, ourIP [4]byte, mcastBase, mcastMask [4]byte) Verdict {
	base := wire.IPFrameBase
	if len(frame) < base+wire.IPHeaderLen {
		return VerdictTruncated
	}

	sum := CalculateIPChecksum(0, frame[base:base+wire.IPHeaderLen])
	if wire.FoldChecksum(sum) != 0 {
		return VerdictChecksumError
	}

	totalLen := int(wire.Get16(frame, base+wire.IPTotalLenOffset))
	if base+totalLen > len(frame) {
		return VerdictTruncated
	}

	var dst [4]byte
	copy(dst[:], frame[base+wire.IPDstOffset:base+wire.IPDstOffset+4])
	if dst == ourIP {
		return VerdictOK
	}

	mMask := wire.Get32(mcastMask[:], 0)
	if mMask != 0 {
		dstNum := wire.Get32(dst[:], 0)
		mBase := wire.Get32(mcastBase[:], 0) & mMask
		if dstNum&mMask == mBase {
			return VerdictOK
		}
	}

	return VerdictNotForUs
}

// Protocol returns the IP protocol field of an IPv4 frame.
func Protocol(frame []byte) uint8 {
	return frame[wire.IPFrameBase+wire.IPProtoOffset]
}

// TotalLen returns the IPv4 total-length field.
func TotalLen(frame []byte) int {
	return int(wire.Get16(frame, wire.IPFrameBase+wire.IPTotalLenOffset))
}

// Src returns the IPv4 source address.
func Src(frame []byte) [4]byte {
	var a [4]byte
	copy(a[:], frame[wire.IPFrameBase+wire.IPSrcOffset:])
	return a
}

// Dst returns the IPv4 destination address.
func Dst(frame []byte) [4]byte {
	var a [4]byte
	copy(a[:], frame[wire.IPFrameBase+wire.IPDstOffset:])
	return a
}

// WriteHeaderChecksum recomputes and writes the IPv4 header checksum
// field, first zeroing it as RFC 1071 requires.
func WriteHeaderChecksum(frame []byte) {
	base := wire.IPFrameBase
	wire.Put16(frame, base+wire.IPChecksumOffset, 0)
	sum := CalculateIPChecksum(0, frame[base:base+wire.IPHeaderLen])
	wire.Put16(frame, base+wire.IPChecksumOffset, wire.FoldChecksum(sum))
}
