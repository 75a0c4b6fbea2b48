// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command skarabfw is the control-plane firmware entry point, the Go
// analogue of original_source/src/main.c's one-shot init followed by a
// steady-state scheduling loop (spec.md §4.10), structured after the
// teacher's cmd/tamago convention of a thin main wiring package-level
// board state into the rest of the program.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/skarab-fw/skarab/board/sim"
	"github.com/skarab-fw/skarab/dispatch"
	"github.com/skarab-fw/skarab/faultlog"
	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/mezzanine"
	"github.com/skarab-fw/skarab/mezzanine/adc"
	"github.com/skarab-fw/skarab/mezzanine/qsfp"
	"github.com/skarab-fw/skarab/netstack"
	"github.com/skarab-fw/skarab/netstack/dhcp"
	"github.com/skarab-fw/skarab/netstack/igmp"
	"github.com/skarab-fw/skarab/scratchpad"
	"github.com/skarab-fw/skarab/system"

	"golang.org/x/time/rate"
)

// logRingCapacity bounds the three fault-log rings (current, voltage,
// fan-controller), per spec.md §6's ring-buffer-backed log opcodes.
const logRingCapacity = 256

// dhcpMonitorTimeout is the value the getDHCPMonitorTimeout opcode
// reports. No opcode changes it (setDHCPTuningDebug toggles the DHCP
// client's short-circuit-renew flag), and it is not passed to the DHCP
// client, which keeps its own 45 s default lease-monitor timeout.
const dhcpMonitorTimeout = 45 * time.Second

// jumboFrameSize is the packet-buffer size spec.md §3 requires ("sized
// for jumbo frames, >= 9 KiB").
const jumboFrameSize = 9 * 1024

// scratchpadPMBusCommand is the MAX31785's MFR_LOCATION PMBus command
// code the scratchpad is read/written through
// (original_source/src/scratchpad.c).
const scratchpadPMBusCommand = 0xd1

// watchdogTimeout bounds how long the main loop may stall before the
// board resets (spec.md §4.10).
const watchdogTimeout = 2 * time.Second

// regMezzanineFirmwareStatus holds the compiled-in firmware's per-site
// hardware-tag nibbles mezzanine.Discover compares against what it
// reads over 1-Wire (spec.md §4.9).
const regMezzanineFirmwareStatus = 0x0008

// faultLogSamplePeriod bounds how often sensors/fan telemetry is folded
// into the current/voltage/fan-controller log rings (spec.md §4.10:
// log sampling runs on its own, slower cadence than the 100ms main
// loop tick).
const faultLogSamplePeriod = 1 * time.Second

func main() {
	log := obslog.New(os.Stdout)

	registers := platformRegisters()
	i2c := sim.NewI2C(scratchpadPMBusCommand)
	oneWire := sim.NewOneWire()
	spi := sim.NewSPI()
	flash := sim.NewFlash()
	fan := sim.NewFan()
	sensors := sim.NewSensors(map[string]float32{"12v0": 12.02, "1v0": 1.01, "temp.pcb": 41.5})
	watchdog := sim.NewWatchdog()

	scratch := scratchpad.New(i2c)
	if first, err := scratch.IsDefault(); err == nil && first {
		log.Printf(obslog.SelectGeneral, obslog.Always, "scratchpad holds factory-default pattern, first boot\n")
		scratch.Clear()
	}

	firmwareStatus, _ := registers.ReadBoard(regMezzanineFirmwareStatus)
	mezz := mezzanine.New(log, oneWire, i2c)
	if err := mezz.Discover(firmwareStatus); err != nil {
		log.Printf(obslog.SelectMezzanine, obslog.Warn, "mezzanine discovery: %v\n", err)
	}
	attachMezzanineStates(log, mezz, i2c)

	sys := system.New(log)
	sys.Registers = registers
	sys.Watchdog = watchdog
	sys.Scratchpad = scratch
	sys.Mezz = mezz

	iface, dhcpClient, igmpClient := newInterface(log, 0)
	sys.AddInterface(iface, dhcpClient, igmpClient)

	if err := watchdog.Start(watchdogTimeout); err != nil {
		fmt.Fprintf(os.Stderr, "watchdog start: %v\n", err)
		os.Exit(1)
	}

	disp := dispatch.New(log)
	disp.Registers = registers
	disp.I2C = i2c
	disp.HMCI2C = i2c
	disp.OneWire = oneWire
	disp.SPI = spi
	disp.Flash = flash
	disp.Fan = fan
	disp.Sensors = sensors
	disp.Scratchpad = scratch
	disp.Mezz = mezz
	disp.Interfaces = sys.Interfaces()
	disp.DHCPClients = []*dhcp.Client{dhcpClient}
	disp.IGMPClients = append(disp.IGMPClients, igmpClient)
	disp.CurrentLogs = faultlog.New(logRingCapacity)
	disp.VoltageLogs = faultlog.New(logRingCapacity)
	disp.FanLogs = faultlog.New(logRingCapacity)
	disp.DHCPMonitorTimeout = dhcpMonitorTimeout
	sys.Dispatcher = disp

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go sampleFaultLogs(ctx, sensors, fan, disp)

	log.Printf(obslog.SelectGeneral, obslog.Always, "skarabfw starting, hostname=%s\n", iface.Hostname())

	if err := sys.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "scheduler exited: %v\n", err)
		os.Exit(1)
	}
}

// newInterface brings up one Ethernet interface with its DHCP and IGMP
// protocol engines, mirroring original_source/src/main.c's per-interface
// setup loop.
func newInterface(log *obslog.Logger, ethID int) (*netstack.Interface, *dhcp.Client, *igmp.Client) {
	iface := netstack.New(log)

	mac := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, byte(ethID + 1)}
	if err := iface.Init(make([]byte, jumboFrameSize), make([]byte, jumboFrameSize), mac, ethID); err != nil {
		fmt.Fprintf(os.Stderr, "interface %d init: %v\n", ethID, err)
		os.Exit(1)
	}

	dhcpClient := dhcp.New(log)
	dhcpClient.Init(iface, iface.Hostname(), nil, func(lease dhcp.Lease) {
		iface.Configure(lease.YourIP, lease.Subnet)
		log.Printf(obslog.SelectDHCP, obslog.Info, "interface %d leased %v\n", ethID, lease.YourIP)
	})

	igmpClient := igmp.New(iface)

	return iface, dhcpClient, igmpClient
}

// sampleFaultLogs folds sensor and fan-controller telemetry into the
// dispatcher's log rings at a bounded rate, independent of the main
// scheduler's 100ms tick (spec.md §4.10). golang.org/x/time/rate
// paces the sampling instead of a hand-rolled tick-modulo counter.
func sampleFaultLogs(ctx context.Context, sensors *sim.Sensors, fan *sim.Fan, disp *dispatch.Dispatcher) {
	limiter := rate.NewLimiter(rate.Every(faultLogSamplePeriod), 1)
	var tick uint64

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		tick++

		if samples, err := sensors.ReadSensors(); err == nil {
			for tag, v := range samples {
				system.FaultLogSource(disp.CurrentLogs, tick, tag, v)
			}
		}
		if fanRuntime, err := fan.Runtime(); err == nil {
			for tag, v := range fanRuntime {
				system.FaultLogSource(disp.FanLogs, tick, tag, v)
			}
		}
	}
}

// attachMezzanineStates wires a qsfp.State or adc.State driver onto
// every site Discover classified and firmware-matched, per spec.md
// §4.9's "AttachState installs the card's driver once firmware_support
// is true".
func attachMezzanineStates(log *obslog.Logger, mezz *mezzanine.Manager, i2c *sim.I2C) {
	for site := 0; site < mezzanine.SiteCount; site++ {
		mz := mezz.Site(site)
		if !mz.FirmwareSupport() {
			continue
		}
		switch mz.Detected() {
		case mezzanine.QSFP, mezzanine.QSFPPhy:
			mz.AttachState(qsfp.New(log, i2c, site, time.Now))
		case mezzanine.ADC:
			mz.AttachState(adc.New(log, i2c, site, time.Now))
		}
	}
}
