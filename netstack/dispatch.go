// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package netstack

import (
	"github.com/skarab-fw/skarab/netstack/arp"
	"github.com/skarab-fw/skarab/netstack/ipv4"
	"github.com/skarab-fw/skarab/netstack/udp"
	"github.com/skarab-fw/skarab/netstack/wire"
)

// RecvPacketFilter implements spec.md §4.2: the single entry point
// invoked per received frame, classifying it into exactly one leaf
// Outcome per the documented precedence (ARP, then IPv4 sub-protocols,
// then LLDP, then unknown), bumping RxTotal plus the matching
// sub-counter, and performing no other side effect.
func (i *Interface) RecvPacketFilter() Outcome {
	i.Counters.RxTotal++

	frame := i.rx[:i.RxLen()]
	etherType := i.ClassifyEtherType()

	switch etherType {
	case wire.EtherTypeARP:
		i.Counters.RxEthArp++
		if !i.arpProcessingEnabled {
			return i.finish(OutcomeArpInvalid)
		}
		switch arp.ValidateReply(frame, i.ip) {
		case arp.VerdictReply:
			return i.finish(OutcomeArpReply)
		case arp.VerdictRequest:
			return i.finish(OutcomeArpRequest)
		case arp.VerdictConflict:
			return i.finish(OutcomeArpConflict)
		case arp.VerdictIgnore:
			return OutcomeNone
		default:
			return i.finish(OutcomeArpInvalid)
		}

	case wire.EtherTypeIPv4:
		i.Counters.RxEthIp++
		if ipv4.CheckIPV4Header(frame, i.ip, [4]byte{}, [4]byte{}) == ipv4.VerdictChecksumError {
			return i.finish(OutcomeIPChecksumError)
		}

		switch ipv4.Protocol(frame) {
		case wire.ProtoICMP:
			return i.dispatchICMP(frame)
		case wire.ProtoIGMP:
			return i.finish(OutcomeIgmpDropped)
		case wire.ProtoTCP:
			return i.finish(OutcomeTcpDropped)
		case wire.ProtoUDP:
			return i.dispatchUDP(frame)
		default:
			return i.finish(OutcomeEthUnknown)
		}

	case wire.EtherTypeLLDP:
		return i.finish(OutcomeLldpDropped)

	default:
		return i.finish(OutcomeEthUnknown)
	}
}

func (i *Interface) dispatchICMP(frame []byte) Outcome {
	base := wire.UDPFrameBase()
	if len(frame) < base+wire.ICMPHeaderLen {
		return i.finish(OutcomeIcmpInvalid)
	}
	if frame[base+wire.ICMPTypeOffset] == wire.ICMPEchoRequest && frame[base+wire.ICMPCodeOffset] == 0 {
		var dst [4]byte
		copy(dst[:], frame[wire.IPFrameBase+wire.IPDstOffset:])
		if dst != i.ip {
			return i.finish(OutcomeIcmpInvalid)
		}
		return i.finish(OutcomeIcmpEchoRequest)
	}
	return i.finish(OutcomeIcmpInvalid)
}

func (i *Interface) dispatchUDP(frame []byte) Outcome {
	if udp.CheckUdpHeader(frame) != udp.VerdictOK {
		return i.finish(OutcomeUdpUnknown)
	}

	dst := udp.DstPort(frame)
	src := udp.SrcPort(frame)

	switch {
	case dst == wire.DHCPClientPort && src == wire.DHCPServerPort:
		return i.finish(OutcomeUdpDhcp)
	case dst == wire.ControlPort:
		return i.finish(OutcomeUdpControl)
	default:
		return i.finish(OutcomeUdpUnknown)
	}
}

func (i *Interface) finish(o Outcome) Outcome {
	i.Counters.Incr(o)
	return o
}
