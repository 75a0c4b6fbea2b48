// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package system owns the top-level object graph spec.md §9's
// redesign note calls for: "a top-level System owning a vector of
// Interface, a vector of four Mezzanine, and an IoBus handle" — and
// drives the cooperative main loop of spec.md §4.10 off a single
// periodic tick, grounded on original_source/src/main.c's scheduling
// loop.
package system

import (
	"context"
	"time"

	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/dispatch"
	"github.com/skarab-fw/skarab/faultlog"
	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/mezzanine"
	"github.com/skarab-fw/skarab/netstack"
	"github.com/skarab-fw/skarab/netstack/arp"
	"github.com/skarab-fw/skarab/netstack/dhcp"
	"github.com/skarab-fw/skarab/netstack/icmp"
	"github.com/skarab-fw/skarab/netstack/igmp"
	"github.com/skarab-fw/skarab/netstack/lldp"
	"github.com/skarab-fw/skarab/netstack/wire"
	"github.com/skarab-fw/skarab/scratchpad"
)

// TickPeriod is the scheduler's driving period (spec.md §4.10: "on
// every 100 ms tick").
const TickPeriod = 100 * time.Millisecond

// Flags holds the per-interface "run-task" bits spec.md §4.10 and §5
// describe: set by the periodic tick, cleared atomically as each task
// completes, per spec.md §9's "interrupt flags -> atomic booleans"
// redesign.
type Flags struct {
	DHCP        atomicFlag
	IGMP        atomicFlag
	LLDP        atomicFlag
	ARPProcess  atomicFlag
	ARPRespond  atomicFlag
	ICMPReply   atomicFlag
	Control     atomicFlag
	Diagnostics atomicFlag
}

// SetAll raises every run-task flag; called once per tick.
func (f *Flags) SetAll() {
	f.DHCP.Set()
	f.IGMP.Set()
	f.LLDP.Set()
	f.ARPProcess.Set()
	f.ARPRespond.Set()
	f.ICMPReply.Set()
	f.Control.Set()
	f.Diagnostics.Set()
}

// ifaceRuntime bundles one Interface with its protocol-engine state.
type ifaceRuntime struct {
	iface *netstack.Interface
	dhcp  *dhcp.Client
	igmp  *igmp.Client
	flags Flags

	lldpDue time.Time
}

// System is the process-wide object graph spec.md §9 mandates in place
// of the original's module-scoped globals.
type System struct {
	log *obslog.Logger

	Registers board.Registers
	Watchdog  board.Watchdog

	Scratchpad *scratchpad.Scratchpad
	Mezz       *mezzanine.Manager
	Dispatcher *dispatch.Dispatcher

	ifaces []*ifaceRuntime

	seconds uint64

	lldpTTL time.Duration

	now func() time.Time
}

// New constructs an empty System; interfaces are added with AddInterface
// before Run is called.
func New(log *obslog.Logger) *System {
	return &System{log: log, lldpTTL: 120 * time.Second, now: time.Now}
}

// AddInterface wires one physical Ethernet link's Interface, DHCP
// client and IGMP client into the scheduler.
func (s *System) AddInterface(iface *netstack.Interface, dhcpClient *dhcp.Client, igmpClient *igmp.Client) {
	s.ifaces = append(s.ifaces, &ifaceRuntime{iface: iface, dhcp: dhcpClient, igmp: igmpClient})
}

// Interfaces returns the underlying netstack.Interface objects, in
// scheduling order.
func (s *System) Interfaces() []*netstack.Interface {
	out := make([]*netstack.Interface, len(s.ifaces))
	for i, rt := range s.ifaces {
		out[i] = rt.iface
	}
	return out
}

// Tick implements the periodic timer-interrupt handler of spec.md §5: it
// increments the monotonic s.seconds counter by one (one count per call,
// i.e. per TickPeriod, not per second), sets run-task flags, and returns.
// It performs no other state mutation.
func (s *System) Tick() {
	s.seconds++
	for _, rt := range s.ifaces {
		rt.flags.SetAll()
	}
}

// Run drives the steady-state main loop of spec.md §4.10: a ticker at
// TickPeriod calls Tick; between ticks, the loop polls each
// interface's run-task flags in priority order, invokes the owning
// component's step function, clears the flag, and unconditionally
// kicks the watchdog once per iteration. Run blocks until ctx is
// canceled.
func (s *System) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		default:
		}

		for _, rt := range s.ifaces {
			s.stepInterface(rt)
		}

		if s.Mezz != nil {
			for site := 0; site < mezzanine.SiteCount; site++ {
				s.Mezz.Site(site).Step()
			}
		}

		if s.Watchdog != nil {
			s.Watchdog.Kick()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
			// Bounds how hard this loop spins on a host where nothing
			// backs the NIC with real interrupts; on tamago/arm this
			// merely interleaves with the next poll, since nothing else
			// is runnable anyway.
		}
	}
}

// stepInterface polls one interface's run-task flags in the priority
// order spec.md §4.10 implies by listing them (DHCP, IGMP, LLDP, ARP
// respond/process, ICMP reply, control, diagnostics) and invokes the
// matching protocol-engine step, clearing each flag atomically once its
// work completes.
func (s *System) stepInterface(rt *ifaceRuntime) {
	iface := rt.iface

	iface.UpdateLinkStatus(s.linkStatusRegister())

	if rt.flags.ARPProcess.TestAndClear() || rt.flags.ARPRespond.TestAndClear() || rt.flags.ICMPReply.TestAndClear() || rt.flags.Control.TestAndClear() {
		s.servicePendingFrame(rt)
	}

	if rt.flags.DHCP.TestAndClear() && rt.dhcp != nil {
		gotMessage := iface.RxActive() && isDHCPFrame(iface)
		var rxFrame []byte
		if gotMessage {
			rxFrame = iface.RxBuffer()[:iface.RxLen()]
		}
		event := rt.dhcp.Tick(gotMessage, rxFrame)
		if event == dhcp.EventMessageReady {
			iface.SetMsgSize(rt.dhcp.MsgLen())
		}
	}

	if rt.flags.IGMP.TestAndClear() && rt.igmp != nil {
		if n := rt.igmp.Tick(); n > 0 {
			iface.SetMsgSize(n)
		}
	}

	if rt.flags.LLDP.TestAndClear() {
		if s.now().After(rt.lldpDue) {
			n := lldp.Build(iface.TxBuffer(), iface.MAC(), iface.IP(), iface.Hostname(), uint16(s.lldpTTL.Seconds()))
			iface.SetMsgSize(n)
			rt.lldpDue = s.now().Add(s.lldpTTL / 2)
		}
	}

	if rt.flags.Diagnostics.TestAndClear() {
		// Diagnostics are an external-collaborator concern (the CLI's
		// "dump"/"memtest" commands); the main loop only clears the
		// flag so the scheduler's bookkeeping stays accurate.
	}
}

// servicePendingFrame runs RecvPacketFilter over a staged receive frame
// and dispatches to the matching engine's builder when a response is
// due, per spec.md §4.2/§4.3/§4.4/§4.8.
func (s *System) servicePendingFrame(rt *ifaceRuntime) {
	iface := rt.iface
	if !iface.RxActive() {
		return
	}

	outcome := iface.RecvPacketFilter()
	iface.SetRxActive(false)

	switch outcome {
	case netstack.OutcomeArpRequest:
		rx := iface.RxBuffer()[:iface.RxLen()]
		sha, spa := arp.SourceHW(rx), arp.SourceProto(rx)
		n := arp.BuildMessage(iface.TxBuffer(), arp.MessageReply, iface.MAC(), iface.IP(), sha, sha, spa, [4]byte{})
		iface.SetMsgSize(n)

	case netstack.OutcomeArpReply, netstack.OutcomeArpConflict:
		// Neither outcome is answered on the wire; RecvPacketFilter has
		// already bumped the matching counter (including flagging an IP
		// conflict), and this module keeps no ARP cache to update.

	case netstack.OutcomeIcmpEchoRequest:
		rx := iface.RxBuffer()[:iface.RxLen()]
		n := icmp.BuildEchoReply(rx, iface.TxBuffer())
		iface.SetMsgSize(n)

	case netstack.OutcomeUdpControl:
		if s.Dispatcher == nil {
			return
		}
		rx := iface.RxBuffer()
		payloadBase := wire.UDPPayloadOffset()
		req := rx[payloadBase:iface.RxLen()]
		tx := iface.TxBuffer()
		n := s.Dispatcher.Dispatch(indexOf(s.ifaces, rt), req, tx[payloadBase:])
		iface.SetMsgSize(payloadBase + n)
	}
}

func indexOf(ifaces []*ifaceRuntime, target *ifaceRuntime) int {
	for i, rt := range ifaces {
		if rt == target {
			return i
		}
	}
	return -1
}

func isDHCPFrame(iface *netstack.Interface) bool {
	rx := iface.RxBuffer()
	if len(rx) < wire.UDPFrameBase()+wire.UDPHeaderLen {
		return false
	}
	dst := wire.Get16(rx, wire.UDPFrameBase()+2)
	return dst == wire.DHCPClientPort
}

// linkStatusRegister reads the firmware register exposing per-interface
// link bits (spec.md §4.1).
func (s *System) linkStatusRegister() uint32 {
	if s.Registers == nil {
		return 0
	}
	v, err := s.Registers.ReadBoard(regLinkStatus)
	if err != nil {
		return 0
	}
	return v
}

const regLinkStatus = 0x0004

// FaultLogSource records one already-sampled value into ring as an Entry;
// it reads no sensor itself. System's owner (cmd/skarabfw) calls it from
// its own slower sampling loop, since log sampling is not one of the main
// loop's run-task flags in spec.md §4.10.
func FaultLogSource(ring *faultlog.Ring, tick uint64, tag string, value float32) {
	ring.Push(faultlog.Entry{Tick: tick, Tag: tag, Value: value})
}
