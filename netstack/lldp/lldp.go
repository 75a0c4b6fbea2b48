// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package lldp implements a transmit-only LLDP announcer: Chassis-ID
// (MAC), Port-ID (the IPv4 address in the network-address subtype:
// address family 1 plus the four raw address bytes, not dotted text), TTL
// and Port-Description TLVs, per
// spec.md §6. The original firmware has no LLDP engine of its own; this
// is a spec.md supplement modeled after the IGMP/ARP Tx builders in
// style.
package lldp

import (
	"fmt"

	"github.com/skarab-fw/skarab/netstack/wire"
)

const (
	tlvTypeChassisID  = 1
	tlvTypePortID     = 2
	tlvTypeTTL         = 3
	tlvTypePortDesc   = 4
	tlvTypeEnd        = 0

	chassisSubtypeMAC  = 4
	portSubtypeNetAddr = 4
)

var lldpMulticast = [6]byte{0x01, 0x80, 0xc2, 0x00, 0x00, 0x0e}

const etherTypeLLDP = wire.EtherTypeLLDP

func putTLV(buf []byte, off int, typ byte, value []byte) int {
	l := len(value)
	header := uint16(typ)<<9 | uint16(l)
	wire.Put16(buf, off, header)
	copy(buf[off+2:], value)
	return off + 2 + l
}

// Build writes an LLDP frame to tx announcing ourMAC/ourIP/hostname with
// the given TTL (seconds), and returns the on-wire length.
func Build(tx []byte, ourMAC [6]byte, ourIP [4]byte, hostname string, ttlSeconds uint16) int {
	for i := range tx {
		tx[i] = 0
	}

	copy(tx[wire.EthDstOffset:], lldpMulticast[:])
	copy(tx[wire.EthSrcOffset:], ourMAC[:])
	wire.Put16(tx, wire.EthTypeOffset, etherTypeLLDP)

	off := wire.EthHeaderLen

	chassis := append([]byte{chassisSubtypeMAC}, ourMAC[:]...)
	off = putTLV(tx, off, tlvTypeChassisID, chassis)

	portID := append([]byte{portSubtypeNetAddr, 1}, ourIP[:]...) // addr family 1 = IPv4
	off = putTLV(tx, off, tlvTypePortID, portID)

	var ttl [2]byte
	wire.Put16(ttl[:], 0, ttlSeconds)
	off = putTLV(tx, off, tlvTypeTTL, ttl[:])

	desc := []byte(fmt.Sprintf("%s control-plane interface", hostname))
	off = putTLV(tx, off, tlvTypePortDesc, desc)

	off = putTLV(tx, off, tlvTypeEnd, nil)

	return off
}
