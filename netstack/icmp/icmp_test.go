// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package icmp

import (
	"testing"

	"github.com/skarab-fw/skarab/netstack/ipv4"
	"github.com/skarab-fw/skarab/netstack/wire"
)

var (
	ourIP   = [4]byte{10, 0, 0, 1}
	peerIP  = [4]byte{10, 0, 0, 2}
	ourMAC  = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	peerMAC = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// buildEchoRequest constructs a well-formed Ethernet/IPv4/ICMP Echo
// Request frame addressed to ourIP, mirroring spec.md §8's E2 scenario
// setup.
func buildEchoRequest(payload []byte) []byte {
	icmpBase := wire.UDPFrameBase()
	total := wire.IPHeaderLen + wire.ICMPHeaderLen + len(payload)
	frame := make([]byte, wire.IPFrameBase+total)

	copy(frame[wire.EthSrcOffset:], peerMAC[:])
	copy(frame[wire.EthDstOffset:], ourMAC[:])
	wire.Put16(frame, wire.EthTypeOffset, wire.EtherTypeIPv4)

	ipBase := wire.IPFrameBase
	frame[ipBase+wire.IPVerIHLOffset] = 0x45
	frame[ipBase+wire.IPTTLOffset] = 64
	frame[ipBase+wire.IPProtoOffset] = wire.ProtoICMP
	wire.Put16(frame, ipBase+wire.IPTotalLenOffset, uint16(total))
	copy(frame[ipBase+wire.IPSrcOffset:], peerIP[:])
	copy(frame[ipBase+wire.IPDstOffset:], ourIP[:])
	ipv4.WriteHeaderChecksum(frame)

	frame[icmpBase+wire.ICMPTypeOffset] = wire.ICMPEchoRequest
	frame[icmpBase+wire.ICMPCodeOffset] = 0
	wire.Put16(frame, icmpBase+4, 0xbeef) // identifier
	wire.Put16(frame, icmpBase+6, 1)      // sequence
	copy(frame[icmpBase+wire.ICMPHeaderLen:], payload)

	wire.Put16(frame, icmpBase+wire.ICMPChecksumOffset, 0)
	sum := wire.IPChecksum(0, frame[icmpBase:icmpBase+wire.ICMPHeaderLen+len(payload)])
	wire.Put16(frame, icmpBase+wire.ICMPChecksumOffset, wire.FoldChecksum(sum))

	return frame
}

func TestValidateAcceptsEchoRequest(t *testing.T) {
	frame := buildEchoRequest([]byte("ping"))
	if v := Validate(frame); v != VerdictEchoRequest {
		t.Fatalf("Validate = %v, want VerdictEchoRequest", v)
	}
}

func TestValidateRejectsWrongType(t *testing.T) {
	frame := buildEchoRequest([]byte("ping"))
	frame[wire.UDPFrameBase()+wire.ICMPTypeOffset] = 3 // Destination Unreachable
	if v := Validate(frame); v != VerdictInvalid {
		t.Fatalf("Validate(type=3) = %v, want VerdictInvalid", v)
	}
}

// TestBuildEchoReply covers spec.md §8's E2 scenario: a reply swaps
// addressing and recomputes both checksums over an unmodified payload.
func TestBuildEchoReply(t *testing.T) {
	req := buildEchoRequest([]byte("ping-payload"))
	tx := make([]byte, len(req))

	n := BuildEchoReply(req, tx)
	reply := tx[:n]

	if proto := reply[wire.IPFrameBase+wire.IPProtoOffset]; proto != wire.ProtoICMP {
		t.Fatalf("reply protocol = %d, want ProtoICMP", proto)
	}
	if got := ipv4.Src(reply); got != ourIP {
		t.Fatalf("reply src = %v, want %v", got, ourIP)
	}
	if got := ipv4.Dst(reply); got != peerIP {
		t.Fatalf("reply dst = %v, want %v", got, peerIP)
	}

	icmpBase := wire.UDPFrameBase()
	if reply[icmpBase+wire.ICMPTypeOffset] != wire.ICMPEchoReply {
		t.Fatalf("reply ICMP type = %d, want ICMPEchoReply", reply[icmpBase+wire.ICMPTypeOffset])
	}

	payload := string(reply[icmpBase+wire.ICMPHeaderLen : n])
	if payload != "ping-payload" {
		t.Fatalf("reply payload = %q, want %q", payload, "ping-payload")
	}

	// Recomputed checksums must self-verify.
	icmpLen := n - icmpBase
	if v := wire.FoldChecksum(wire.IPChecksum(0, reply[icmpBase:icmpBase+icmpLen])); v != 0 {
		t.Fatalf("reply ICMP checksum does not self-verify: %#04x", v)
	}
	if v := ipv4.CheckIPV4Header(reply, peerIP, [4]byte{}, [4]byte{}); v != ipv4.VerdictOK {
		t.Fatalf("reply IPv4 header invalid: %v", v)
	}
}
