// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dispatch

import (
	"testing"

	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/board/sim"
	"github.com/skarab-fw/skarab/faultlog"
	"github.com/skarab-fw/skarab/internal/iobus"
	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/mezzanine"
	"github.com/skarab-fw/skarab/netstack"
	"github.com/skarab-fw/skarab/netstack/dhcp"
	"github.com/skarab-fw/skarab/netstack/wire"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	log := obslog.New(nopWriter{})

	d := New(log)
	d.Registers = board.NewWishboneRegisters(iobus.NewSimulatedBus())
	d.I2C = sim.NewI2C(0)
	d.Flash = sim.NewFlash()
	d.SPI = sim.NewSPI()
	d.OneWire = sim.NewOneWire()
	d.Fan = sim.NewFan()
	d.Sensors = sim.NewSensors(map[string]float32{"temp0": 42})
	d.Mezz = mezzanine.New(log, d.OneWire, d.I2C)
	d.CurrentLogs = faultlog.New(4)
	d.VoltageLogs = faultlog.New(4)
	d.FanLogs = faultlog.New(4)

	iface := netstack.New(log)
	iface.Init(make([]byte, 1500), make([]byte, 1500), [6]byte{0x02, 0, 0, 0, 0, 1}, 0)
	iface.Configure([4]byte{10, 0, 0, 1}, [4]byte{255, 255, 255, 0})
	d.Interfaces = []*netstack.Interface{iface}

	client := dhcp.New(log)
	client.Init(iface, "skarab", nil, nil)
	d.DHCPClients = []*dhcp.Client{client}

	return d
}

func request(opcode Opcode, seq uint16, payload ...byte) []byte {
	req := make([]byte, 4+len(payload))
	wire.Put16(req, 0, uint16(opcode))
	wire.Put16(req, 2, seq)
	copy(req[4:], payload)
	return req
}

func TestUnknownOpcodeNacks(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	n := d.Dispatch(0, request(0x9999, 7), resp)
	if n != 4 {
		t.Fatalf("Dispatch len = %d, want 4 (NACK header only)", n)
	}
	if got := wire.Get16(resp, 0); got != uint16(OpNack) {
		t.Fatalf("response opcode = %#04x, want OpNack", got)
	}
	if got := wire.Get16(resp, 2); got != 7 {
		t.Fatalf("response sequence = %d, want 7 (echoed)", got)
	}
}

func TestWriteThenReadBoardRegister(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	writeReq := request(OpWriteBoardRegister, 1, 0, 0, 0x10, 0x00, 0, 0, 0, 42)
	n := d.Dispatch(0, writeReq, resp)
	if n != 6+8 {
		t.Fatalf("write response len = %d, want 14", n)
	}
	if Status(wire.Get16(resp, 4)) != StatusOK {
		t.Fatalf("write status = %d, want StatusOK", wire.Get16(resp, 4))
	}

	readReq := request(OpReadBoardRegister, 2, 0, 0, 0x10, 0x00)
	n = d.Dispatch(0, readReq, resp)
	if Status(wire.Get16(resp, 4)) != StatusOK {
		t.Fatalf("read status = %d, want StatusOK", wire.Get16(resp, 4))
	}
	if got := wire.Get32(resp, 10); got != 42 {
		t.Fatalf("read-back value = %d, want 42", got)
	}
	if got := wire.Get16(resp, 0); got != uint16(OpReadBoardRegister)+1 {
		t.Fatalf("response opcode = %#04x, want request+1", got)
	}
}

func TestReadBoardRegisterOutOfRangeLatchesAxiDataBus(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	readReq := request(OpReadBoardRegister, 3, 0xff, 0xff, 0xff, 0xff)
	d.Dispatch(0, readReq, resp)
	if Status(wire.Get16(resp, 4)) != StatusAxiDataBus {
		t.Fatalf("status = %d, want StatusAxiDataBus", wire.Get16(resp, 4))
	}
}

func TestConfigureInterfaceOutOfRange(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	req := request(OpConfigureInterface, 4, 10, 0, 0, 2, 255, 255, 255, 0)
	n := d.Dispatch(5, req, resp)
	if Status(wire.Get16(resp, 4)) != StatusIfOutOfRange {
		t.Fatalf("status = %d, want StatusIfOutOfRange", wire.Get16(resp, 4))
	}
	if n != 6 {
		t.Fatalf("response len = %d, want 6 (header only, no payload)", n)
	}
}

func TestWriteReadI2CRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	writeReq := request(OpWriteI2C, 5, 0x50, 0x01, 0xAB, 0xCD)
	d.Dispatch(0, writeReq, resp)
	if Status(wire.Get16(resp, 4)) != StatusOK {
		t.Fatalf("write status = %d, want StatusOK", wire.Get16(resp, 4))
	}

	readReq := request(OpReadI2C, 6, 0x50, 0x01, 2)
	d.Dispatch(0, readReq, resp)
	if Status(wire.Get16(resp, 4)) != StatusOK {
		t.Fatalf("read status = %d, want StatusOK", wire.Get16(resp, 4))
	}
	if resp[9] != 0xAB || resp[10] != 0xCD {
		t.Fatalf("read-back bytes = %x %x, want AB CD", resp[9], resp[10])
	}
}

func TestGetSoftwareVersion(t *testing.T) {
	d := newTestDispatcher(t)
	d.SoftwareVersion = "skarab-test-1.0"
	resp := make([]byte, 64)

	n := d.Dispatch(0, request(OpGetSoftwareVersion, 9), resp)
	if got := string(resp[6:n]); got != "skarab-test-1.0" {
		t.Fatalf("version payload = %q, want %q", got, "skarab-test-1.0")
	}
}

func TestSetFanSpeedInvalidPayload(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	d.Dispatch(0, request(OpSetFanSpeed, 1, 0x01), resp)
	if Status(wire.Get16(resp, 4)) != StatusInvalid {
		t.Fatalf("status = %d, want StatusInvalid (payload too short)", wire.Get16(resp, 4))
	}
}

func TestQSFPResetAndProgramRejectsWrongHardware(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	// Discover with an empty 1-Wire bus: every site classifies as Open.
	if err := d.Mezz.Discover(0); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	d.Dispatch(0, request(OpQSFPResetAndProgram, 1, 0), resp)
	if Status(wire.Get16(resp, 4)) != StatusIfNotPresent {
		t.Fatalf("status = %d, want StatusIfNotPresent", wire.Get16(resp, 4))
	}
}

func TestDHCPTuningDebugRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	d.Dispatch(0, request(OpSetDHCPTuningDebug, 1, 1), resp)
	if Status(wire.Get16(resp, 4)) != StatusOK {
		t.Fatalf("set status = %d, want StatusOK", wire.Get16(resp, 4))
	}

	d.Dispatch(0, request(OpGetDHCPTuningDebug, 2), resp)
	if resp[6] != 1 {
		t.Fatalf("tuning-debug readback = %d, want 1", resp[6])
	}
}

func TestGetCurrentLogsEncodesEntries(t *testing.T) {
	d := newTestDispatcher(t)
	d.CurrentLogs.Push(faultlog.Entry{Tick: 5, Value: 3.0})
	resp := make([]byte, 64)

	n := d.Dispatch(0, request(OpGetCurrentLogs, 1), resp)
	if n != 6+8 {
		t.Fatalf("response len = %d, want 14 (one 8-byte entry)", n)
	}
	if got := wire.Get32(resp, 6); got != 5 {
		t.Fatalf("tick field = %d, want 5", got)
	}
}

func TestShortRequestNacks(t *testing.T) {
	d := newTestDispatcher(t)
	resp := make([]byte, 64)

	n := d.Dispatch(0, []byte{0x01}, resp)
	if n != 4 {
		t.Fatalf("Dispatch len = %d, want 4 (NACK for short request)", n)
	}
}
