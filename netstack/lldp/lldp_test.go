// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package lldp

import (
	"testing"

	"github.com/skarab-fw/skarab/netstack/wire"
)

func TestBuildFrameAddressing(t *testing.T) {
	mac := [6]byte{0x02, 0, 0, 0, 0, 1}
	ip := [4]byte{10, 0, 0, 1}
	tx := make([]byte, 256)

	n := Build(tx, mac, ip, "skarab000001", 120)
	if n <= wire.EthHeaderLen {
		t.Fatalf("Build returned %d, want > Ethernet header length", n)
	}

	if got := tx[wire.EthDstOffset]; got != 0x01 {
		t.Fatalf("dst[0] = %#x, want 0x01 (LLDP multicast)", got)
	}
	var gotMAC [6]byte
	copy(gotMAC[:], tx[wire.EthSrcOffset:])
	if gotMAC != mac {
		t.Fatalf("src MAC = %x, want %x", gotMAC, mac)
	}
	if wire.Get16(tx, wire.EthTypeOffset) != wire.EtherTypeLLDP {
		t.Fatalf("ethertype = %#04x, want EtherTypeLLDP", wire.Get16(tx, wire.EthTypeOffset))
	}
}

func TestBuildFrameTLVChain(t *testing.T) {
	mac := [6]byte{0x02, 0, 0, 0, 0, 1}
	ip := [4]byte{10, 0, 0, 1}
	tx := make([]byte, 256)
	Build(tx, mac, ip, "host", 30)

	off := wire.EthHeaderLen

	readTLV := func() (typ byte, value []byte) {
		header := wire.Get16(tx, off)
		typ = byte(header >> 9)
		length := int(header & 0x1ff)
		value = tx[off+2 : off+2+length]
		off += 2 + length
		return
	}

	typ, value := readTLV()
	if typ != tlvTypeChassisID || value[0] != chassisSubtypeMAC {
		t.Fatalf("first TLV = type %d subtype %d, want chassis-id/MAC", typ, value[0])
	}

	typ, value = readTLV()
	if typ != tlvTypePortID || value[0] != portSubtypeNetAddr {
		t.Fatalf("second TLV = type %d, want port-id", typ)
	}

	typ, value = readTLV()
	if typ != tlvTypeTTL || wire.Get16(value, 0) != 30 {
		t.Fatalf("third TLV = type %d value %v, want ttl=30", typ, value)
	}

	typ, _ = readTLV()
	if typ != tlvTypePortDesc {
		t.Fatalf("fourth TLV type = %d, want port-description", typ)
	}

	typ, value = readTLV()
	if typ != tlvTypeEnd || len(value) != 0 {
		t.Fatalf("fifth TLV = type %d len %d, want end-of-LLDPDU", typ, len(value))
	}
}
