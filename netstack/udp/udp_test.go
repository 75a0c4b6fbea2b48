// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package udp

import (
	"testing"

	"github.com/skarab-fw/skarab/netstack/wire"
)

var (
	srcIP = [4]byte{10, 0, 0, 2}
	dstIP = [4]byte{10, 0, 0, 1}
)

func buildFrame(payload []byte, srcPort, dstPort uint16) []byte {
	base := wire.UDPFrameBase()
	frame := make([]byte, base+wire.UDPHeaderLen+len(payload))
	copy(frame[base+wire.UDPHeaderLen:], payload)
	copy(frame[wire.IPFrameBase+wire.IPSrcOffset:], srcIP[:])
	copy(frame[wire.IPFrameBase+wire.IPDstOffset:], dstIP[:])
	WriteHeader(frame, srcPort, dstPort, len(payload), srcIP, dstIP)
	return frame
}

func TestWriteHeaderThenCheckRoundtrips(t *testing.T) {
	frame := buildFrame([]byte("hello"), wire.DHCPClientPort, wire.ControlPort)
	if v := CheckUdpHeader(frame); v != VerdictOK {
		t.Fatalf("CheckUdpHeader = %v, want VerdictOK", v)
	}
	if SrcPort(frame) != wire.DHCPClientPort {
		t.Fatalf("SrcPort = %d, want %d", SrcPort(frame), wire.DHCPClientPort)
	}
	if DstPort(frame) != wire.ControlPort {
		t.Fatalf("DstPort = %d, want %d", DstPort(frame), wire.ControlPort)
	}
}

func TestCheckUdpHeaderZeroChecksumBypasses(t *testing.T) {
	frame := buildFrame([]byte("x"), 1, 2)
	base := wire.UDPFrameBase()
	wire.Put16(frame, base+wire.UDPChecksumOffset, 0)
	if v := CheckUdpHeader(frame); v != VerdictOK {
		t.Fatalf("CheckUdpHeader(zero checksum) = %v, want VerdictOK (RFC 768 bypass)", v)
	}
}

func TestCheckUdpHeaderDetectsCorruption(t *testing.T) {
	frame := buildFrame([]byte("hello"), 1, 2)
	frame[wire.UDPFrameBase()+wire.UDPHeaderLen] ^= 0xff // corrupt payload
	if v := CheckUdpHeader(frame); v != VerdictChecksumError {
		t.Fatalf("CheckUdpHeader(corrupted) = %v, want VerdictChecksumError", v)
	}
}

func TestCheckUdpHeaderTruncated(t *testing.T) {
	frame := buildFrame([]byte("hello"), 1, 2)
	frame = frame[:wire.UDPFrameBase()+3]
	if v := CheckUdpHeader(frame); v != VerdictTruncated {
		t.Fatalf("CheckUdpHeader(truncated) = %v, want VerdictTruncated", v)
	}
}
