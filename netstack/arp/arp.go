// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package arp implements RFC 826 ARP validation and message building
// over a caller-owned frame buffer, grounded on
// original_source/src/arp.c's validate_ARP_reply/build_ARP_message.
package arp

import "github.com/skarab-fw/skarab/netstack/wire"

// Verdict is the outcome of validating a received ARP frame, per
// spec.md §4.3.
type Verdict int

const (
	VerdictInvalid Verdict = iota
	VerdictIgnore
	VerdictReply
	VerdictRequest
	VerdictConflict
)

// MessageType selects which ARP message BuildMessage constructs.
type MessageType int

const (
	MessageReply MessageType = iota
	MessageRequest
)

// ValidateReply implements spec.md §4.3's validate-reply rule set
// against a received frame whose Ethernet header starts at offset 0.
// ourIP is the interface's configured IPv4 address.
func ValidateReply(frame []byte, ourIP [4]byte) Verdict {
	if len(frame) < wire.ARPFrameBase+wire.ARPFrameTotalLen {
		return VerdictInvalid
	}

	base := wire.ARPFrameBase

	if wire.Get16(frame, base+wire.ARPHWTypeOffset) != 0x0001 {
		return VerdictInvalid
	}
	if wire.Get16(frame, base+wire.ARPProtoTypeOffset) != 0x0800 {
		return VerdictInvalid
	}
	if frame[base+wire.ARPHWAddrLenOffset] != 6 {
		return VerdictInvalid
	}
	if frame[base+wire.ARPProtoAddrLenOffset] != 4 {
		return VerdictInvalid
	}

	var tpa [4]byte
	copy(tpa[:], frame[base+wire.ARPTgtProtoAddrOffset:base+wire.ARPTgtProtoAddrOffset+4])
	if tpa != ourIP {
		return VerdictIgnore
	}

	opcode := wire.Get16(frame, base+wire.ARPOpcodeOffset)
	switch opcode {
	case wire.ARPOpReply:
		var spa [4]byte
		copy(spa[:], frame[base+wire.ARPSrcProtoAddrOffset:base+wire.ARPSrcProtoAddrOffset+4])
		if spa == ourIP {
			return VerdictConflict
		}
		return VerdictReply
	case wire.ARPOpRequest:
		return VerdictRequest
	default:
		return VerdictIgnore
	}
}

// SourceHW returns the source hardware address of a received ARP frame.
func SourceHW(frame []byte) [6]byte {
	var sha [6]byte
	copy(sha[:], frame[wire.ARPFrameBase+wire.ARPSrcHWAddrOffset:])
	return sha
}

// SourceProto returns the source protocol (IPv4) address of a received
// ARP frame.
func SourceProto(frame []byte) [4]byte {
	var spa [4]byte
	copy(spa[:], frame[wire.ARPFrameBase+wire.ARPSrcProtoAddrOffset:])
	return spa
}

// MsgLen is the fixed on-wire length BuildMessage produces: 42 bytes of
// Ethernet+ARP header, zero-padded to the 64-byte Ethernet minimum frame
// size.
const MsgLen = 42 + 22

// BuildMessage implements spec.md §4.3's build-message rules. For
// MessageReply, tha/tpa are the SHA/SPA of the frame being replied to
// and dstMAC is that frame's source. For MessageRequest, targetIP is
// the caller-supplied lookup target and dstMAC/tha are ignored (THA is
// left zero, Ethernet destination is broadcast).
func BuildMessage(tx []byte, kind MessageType, ourMAC [6]byte, ourIP [4]byte, dstMAC [6]byte, tha [6]byte, tpa [4]byte, targetIP [4]byte) int {
	for i := 0; i < MsgLen; i++ {
		tx[i] = 0
	}

	switch kind {
	case MessageReply:
		copy(tx[wire.EthDstOffset:], dstMAC[:])
		copy(tx[wire.ARPFrameBase+wire.ARPTgtHWAddrOffset:], tha[:])
		copy(tx[wire.ARPFrameBase+wire.ARPTgtProtoAddrOffset:], tpa[:])
	case MessageRequest:
		copy(tx[wire.EthDstOffset:], wire.Broadcast[:])
		copy(tx[wire.ARPFrameBase+wire.ARPTgtProtoAddrOffset:], targetIP[:])
	}

	copy(tx[wire.EthSrcOffset:], ourMAC[:])
	wire.Put16(tx, wire.EthTypeOffset, wire.EtherTypeARP)

	base := wire.ARPFrameBase
	wire.Put16(tx, base+wire.ARPHWTypeOffset, 0x0001)
	wire.Put16(tx, base+wire.ARPProtoTypeOffset, 0x0800)
	tx[base+wire.ARPHWAddrLenOffset] = 6
	tx[base+wire.ARPProtoAddrLenOffset] = 4

	opcode := uint16(wire.ARPOpReply)
	if kind == MessageRequest {
		opcode = wire.ARPOpRequest
	}
	wire.Put16(tx, base+wire.ARPOpcodeOffset, opcode)

	copy(tx[base+wire.ARPSrcHWAddrOffset:], ourMAC[:])
	copy(tx[base+wire.ARPSrcProtoAddrOffset:], ourIP[:])

	return MsgLen
}
