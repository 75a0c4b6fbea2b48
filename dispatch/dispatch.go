// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package dispatch implements the command dispatcher of spec.md §4.8:
// UDP frames on port 0x7778, a two-word {opcode, sequence} header, the
// fixed opcode table of spec.md §6, and the "exactly one response per
// request" guarantee, grounded on the control-command handling spread
// across original_source/src/main.c and friends.
package dispatch

import (
	"time"

	"github.com/skarab-fw/skarab/board"
	"github.com/skarab-fw/skarab/faultlog"
	"github.com/skarab-fw/skarab/internal/obslog"
	"github.com/skarab-fw/skarab/mezzanine"
	"github.com/skarab-fw/skarab/neterr"
	"github.com/skarab-fw/skarab/netstack"
	"github.com/skarab-fw/skarab/netstack/dhcp"
	"github.com/skarab-fw/skarab/netstack/wire"
	"github.com/skarab-fw/skarab/scratchpad"
)

// Opcode is a request opcode from the table in spec.md §6. Response
// opcodes are always request+1, except the NACK sentinel.
type Opcode uint16

const (
	OpWriteBoardRegister    Opcode = 0x0001
	OpReadBoardRegister     Opcode = 0x0003
	OpWriteWishbone         Opcode = 0x0005
	OpReadWishbone          Opcode = 0x0007
	OpWriteI2C              Opcode = 0x0009
	OpReadI2C               Opcode = 0x000B
	OpSDRAMReconfigure      Opcode = 0x000D
	OpReadFlashWords        Opcode = 0x000F
	OpProgramFlashWords     Opcode = 0x0011
	OpEraseFlashBlock       Opcode = 0x0013
	OpReadSPIPage           Opcode = 0x0015
	OpProgramSPIPage        Opcode = 0x0017
	OpEraseSPISector        Opcode = 0x0019
	OpOneWireReadROM        Opcode = 0x001B
	OpOneWireWriteMem       Opcode = 0x001D
	OpOneWireReadMem        Opcode = 0x001F
	OpConfigureInterface    Opcode = 0x0021
	OpAddARPCacheEntry      Opcode = 0x0023
	OpGetSoftwareVersion    Opcode = 0x0025
	OpPMBusReadI2C          Opcode = 0x0027
	OpSDRAMProgram          Opcode = 0x0029
	OpConfigureMulticast    Opcode = 0x002B
	OpLoopbackTest          Opcode = 0x002D
	OpQSFPResetAndProgram   Opcode = 0x002F
	OpHMCReadI2C            Opcode = 0x0031
	OpHMCWriteI2C           Opcode = 0x0033
	OpADCResetAndProgram    Opcode = 0x0039
	OpGetSensorData         Opcode = 0x0043
	OpSetFanSpeed           Opcode = 0x0045
	OpBigReadWishbone       Opcode = 0x0047
	OpBigWriteWishbone      Opcode = 0x0049
	OpSDRAMProgramWishbone  Opcode = 0x0051
	OpSetDHCPTuningDebug    Opcode = 0x0053
	OpGetDHCPTuningDebug    Opcode = 0x0055
	OpGetCurrentLogs        Opcode = 0x0057
	OpGetVoltageLogs        Opcode = 0x0059
	OpGetFanControllerLogs  Opcode = 0x005B
	OpClearFanControllerLogs Opcode = 0x005D
	OpDHCPReset             Opcode = 0x005F
	OpMulticastLeaveGroup   Opcode = 0x0061
	OpGetDHCPMonitorTimeout Opcode = 0x0063
	OpGetUptime             Opcode = 0x0065
	OpFanLUTUpdate          Opcode = 0x0067
	OpGetFanLUT             Opcode = 0x0069

	OpNack Opcode = 0xFFFF
)

// Status is a per-opcode response status field value (spec.md §4.8:
// "0 = success, enumerated error codes otherwise").
type Status uint16

const (
	StatusOK Status = iota
	StatusFail
	StatusInvalid
	StatusIfOutOfRange
	StatusIfNotPresent
	StatusAxiDataBus
)

func statusFromErr(err error) Status {
	if err == nil {
		return StatusOK
	}
	if e, ok := err.(*neterr.Error); ok {
		switch e.Code {
		case neterr.Ok:
			return StatusOK
		case neterr.IfOutOfRange:
			return StatusIfOutOfRange
		case neterr.IfNotPresent:
			return StatusIfNotPresent
		case neterr.AxiDataBus:
			return StatusAxiDataBus
		case neterr.Invalid:
			return StatusInvalid
		default:
			return StatusFail
		}
	}
	return StatusFail
}

// Dispatcher implements spec.md §4.8 over the board collaborators and
// the rest of the control-plane object graph it needs to answer
// queries about.
type Dispatcher struct {
	log *obslog.Logger

	Registers board.Registers
	I2C       board.I2CBus
	HMCI2C    board.I2CBus
	OneWire   board.OneWireBus
	SPI       board.SPIBus
	Flash     board.FlashController
	Fan       board.FanController
	Sensors   board.SensorReader

	Scratchpad *scratchpad.Scratchpad
	Mezz       *mezzanine.Manager

	Interfaces   []*netstack.Interface
	DHCPClients  []*dhcp.Client
	IGMPClients  []igmpLeaver

	CurrentLogs *faultlog.Ring
	VoltageLogs *faultlog.Ring
	FanLogs     *faultlog.Ring

	DHCPMonitorTimeout time.Duration

	SoftwareVersion string
	StartedAt       time.Time
	Now             func() time.Time
}

// New constructs a Dispatcher; all collaborator fields are left zero
// and must be wired by the caller before Dispatch is invoked for
// opcodes that touch them.
func New(log *obslog.Logger) *Dispatcher {
	return &Dispatcher{log: log, Now: time.Now, SoftwareVersion: "skarab-fw"}
}

// Dispatch implements spec.md §4.8: parses the two-word header out of
// req (a UDP payload, not including Ethernet/IP/UDP headers), invokes
// the opcode's handler, and writes exactly one response into resp,
// returning its length. Unknown opcodes elicit a NACK.
func (d *Dispatcher) Dispatch(ifIndex int, req []byte, resp []byte) int {
	if len(req) < 4 {
		return d.nack(resp, 0)
	}

	opcode := Opcode(wire.Get16(req, 0))
	seq := wire.Get16(req, 2)
	payload := req[4:]

	handler, ok := d.handlers()[opcode]
	if !ok {
		return d.nack(resp, seq)
	}

	respPayload, status := handler(ifIndex, payload)

	wire.Put16(resp, 0, uint16(opcode)+1)
	wire.Put16(resp, 2, seq)
	wire.Put16(resp, 4, uint16(status))
	n := copy(resp[6:], respPayload)
	return 6 + n
}

func (d *Dispatcher) nack(resp []byte, seq uint16) int {
	wire.Put16(resp, 0, uint16(OpNack))
	wire.Put16(resp, 2, seq)
	return 4
}

type handlerFunc func(ifIndex int, payload []byte) (respPayload []byte, status Status)

func (d *Dispatcher) handlers() map[Opcode]handlerFunc {
	return map[Opcode]handlerFunc{
		OpWriteBoardRegister:      d.writeBoardRegister,
		OpReadBoardRegister:       d.readBoardRegister,
		OpWriteWishbone:           d.writeBoardRegister,
		OpReadWishbone:            d.readBoardRegister,
		OpWriteI2C:                d.writeI2C,
		OpReadI2C:                 d.readI2C,
		OpSDRAMReconfigure:        d.sdramReconfigure,
		OpReadFlashWords:          d.readFlashWords,
		OpProgramFlashWords:       d.programFlashWords,
		OpEraseFlashBlock:         d.eraseFlashBlock,
		OpReadSPIPage:             d.readSPIPage,
		OpProgramSPIPage:          d.programSPIPage,
		OpEraseSPISector:          d.eraseSPISector,
		OpOneWireReadROM:          d.oneWireReadROM,
		OpOneWireWriteMem:         d.oneWireWriteMem,
		OpOneWireReadMem:          d.oneWireReadMem,
		OpConfigureInterface:      d.configureInterface,
		OpAddARPCacheEntry:        d.addARPCacheEntry,
		OpGetSoftwareVersion:      d.getSoftwareVersion,
		OpPMBusReadI2C:            d.pmbusReadI2C,
		OpSDRAMProgram:            d.sdramProgram,
		OpConfigureMulticast:      d.configureMulticast,
		OpLoopbackTest:            d.loopbackTest,
		OpQSFPResetAndProgram:     d.qsfpResetAndProgram,
		OpHMCReadI2C:              d.hmcReadI2C,
		OpHMCWriteI2C:             d.hmcWriteI2C,
		OpADCResetAndProgram:      d.adcResetAndProgram,
		OpGetSensorData:           d.getSensorData,
		OpSetFanSpeed:             d.setFanSpeed,
		OpBigReadWishbone:         d.bigReadWishbone,
		OpBigWriteWishbone:        d.bigWriteWishbone,
		OpSDRAMProgramWishbone:    d.sdramProgramWishbone,
		OpSetDHCPTuningDebug:      d.setDHCPTuningDebug,
		OpGetDHCPTuningDebug:      d.getDHCPTuningDebug,
		OpGetCurrentLogs:          d.getCurrentLogs,
		OpGetVoltageLogs:          d.getVoltageLogs,
		OpGetFanControllerLogs:    d.getFanControllerLogs,
		OpClearFanControllerLogs:  d.clearFanControllerLogs,
		OpDHCPReset:               d.dhcpReset,
		OpMulticastLeaveGroup:     d.multicastLeaveGroup,
		OpGetDHCPMonitorTimeout:   d.getDHCPMonitorTimeout,
		OpGetUptime:               d.getUptime,
		OpFanLUTUpdate:            d.fanLUTUpdate,
		OpGetFanLUT:               d.getFanLUT,
	}
}

func (d *Dispatcher) ifc(ifIndex int) (*netstack.Interface, Status) {
	if ifIndex < 0 || ifIndex >= len(d.Interfaces) {
		return nil, StatusIfOutOfRange
	}
	iface := d.Interfaces[ifIndex]
	if iface == nil || !iface.Initialized() {
		return nil, StatusIfNotPresent
	}
	return iface, StatusOK
}

func (d *Dispatcher) writeBoardRegister(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 8 {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	data := wire.Get32(payload, 4)
	if err := d.Registers.WriteBoard(addr, data); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:8], StatusOK
}

func (d *Dispatcher) readBoardRegister(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 4 {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	data, err := d.Registers.ReadBoard(addr)
	if err != nil {
		return nil, statusFromErr(err)
	}
	resp := make([]byte, 8)
	copy(resp, payload[:4])
	wire.Put32(resp, 4, data)
	return resp, StatusOK
}

func (d *Dispatcher) bigReadWishbone(ifIndex int, payload []byte) ([]byte, Status) {
	return d.readBoardRegister(ifIndex, payload)
}

func (d *Dispatcher) bigWriteWishbone(ifIndex int, payload []byte) ([]byte, Status) {
	return d.writeBoardRegister(ifIndex, payload)
}

func (d *Dispatcher) sdramProgramWishbone(_ int, payload []byte) ([]byte, Status) {
	if d.Flash == nil {
		return nil, StatusFail
	}
	if err := d.Flash.ProgramSDRAM(payload); err != nil {
		return nil, statusFromErr(err)
	}
	return nil, StatusOK
}

func (d *Dispatcher) writeI2C(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 2 || d.I2C == nil {
		return nil, StatusInvalid
	}
	addr, reg := payload[0], payload[1]
	if err := d.I2C.Write(addr, reg, payload[2:]); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:2], StatusOK
}

func (d *Dispatcher) readI2C(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 3 || d.I2C == nil {
		return nil, StatusInvalid
	}
	addr, reg, n := payload[0], payload[1], int(payload[2])
	data, err := d.I2C.Read(addr, reg, n)
	if err != nil {
		return nil, statusFromErr(err)
	}
	return append(payload[:3:3], data...), StatusOK
}

func (d *Dispatcher) hmcReadI2C(ifIndex int, payload []byte) ([]byte, Status) {
	if d.HMCI2C == nil {
		return nil, StatusIfNotPresent
	}
	saved := d.I2C
	d.I2C = d.HMCI2C
	defer func() { d.I2C = saved }()
	return d.readI2C(ifIndex, payload)
}

func (d *Dispatcher) hmcWriteI2C(ifIndex int, payload []byte) ([]byte, Status) {
	if d.HMCI2C == nil {
		return nil, StatusIfNotPresent
	}
	saved := d.I2C
	d.I2C = d.HMCI2C
	defer func() { d.I2C = saved }()
	return d.writeI2C(ifIndex, payload)
}

func (d *Dispatcher) pmbusReadI2C(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 3 || d.I2C == nil {
		return nil, StatusInvalid
	}
	addr, cmd, n := payload[0], payload[1], int(payload[2])
	data, err := d.I2C.PMBusRead(addr, cmd, n)
	if err != nil {
		return nil, statusFromErr(err)
	}
	return append(payload[:3:3], data...), StatusOK
}

func (d *Dispatcher) sdramReconfigure(_ int, _ []byte) ([]byte, Status) {
	if d.Flash == nil {
		return nil, StatusFail
	}
	if err := d.Flash.ReconfigureFromSDRAM(); err != nil {
		return nil, statusFromErr(err)
	}
	if d.Scratchpad != nil {
		d.Scratchpad.IncrementReconfigureCount(scratchpad.HMCReconfigureCount)
	}
	return nil, StatusOK
}

func (d *Dispatcher) sdramProgram(_ int, payload []byte) ([]byte, Status) {
	if d.Flash == nil {
		return nil, StatusFail
	}
	if err := d.Flash.ProgramSDRAM(payload); err != nil {
		return nil, statusFromErr(err)
	}
	return nil, StatusOK
}

func (d *Dispatcher) readFlashWords(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 8 || d.Flash == nil {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	n := int(wire.Get32(payload, 4))
	words, err := d.Flash.ReadWords(addr, n)
	if err != nil {
		return nil, statusFromErr(err)
	}
	resp := make([]byte, 8+4*len(words))
	copy(resp, payload[:8])
	for i, w := range words {
		wire.Put32(resp, 8+4*i, w)
	}
	return resp, StatusOK
}

func (d *Dispatcher) programFlashWords(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 4 || d.Flash == nil {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	words := make([]uint32, 0, (len(payload)-4)/4)
	for off := 4; off+4 <= len(payload); off += 4 {
		words = append(words, wire.Get32(payload, off))
	}
	if err := d.Flash.ProgramWords(addr, words); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:4], StatusOK
}

func (d *Dispatcher) eraseFlashBlock(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 4 || d.Flash == nil {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	if err := d.Flash.EraseBlock(addr); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:4], StatusOK
}

func (d *Dispatcher) readSPIPage(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 4 || d.SPI == nil {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	data, err := d.SPI.ReadPage(addr)
	if err != nil {
		return nil, statusFromErr(err)
	}
	return append(payload[:4:4], data...), StatusOK
}

func (d *Dispatcher) programSPIPage(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 4 || d.SPI == nil {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	if err := d.SPI.ProgramPage(addr, payload[4:]); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:4], StatusOK
}

func (d *Dispatcher) eraseSPISector(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 4 || d.SPI == nil {
		return nil, StatusInvalid
	}
	addr := wire.Get32(payload, 0)
	if err := d.SPI.EraseSector(addr); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:4], StatusOK
}

func (d *Dispatcher) oneWireReadROM(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 1 || d.OneWire == nil {
		return nil, StatusInvalid
	}
	port := int(payload[0])
	rom, err := d.OneWire.ReadROM(port)
	if err != nil {
		return nil, statusFromErr(err)
	}
	return append([]byte{payload[0]}, rom[:]...), StatusOK
}

func (d *Dispatcher) oneWireWriteMem(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 11 || d.OneWire == nil {
		return nil, StatusInvalid
	}
	port := int(payload[0])
	var rom [8]byte
	copy(rom[:], payload[1:9])
	addr := wire.Get16(payload, 9)
	if err := d.OneWire.WriteMem(port, rom, addr, payload[11:]); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:11], StatusOK
}

func (d *Dispatcher) oneWireReadMem(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 12 || d.OneWire == nil {
		return nil, StatusInvalid
	}
	port := int(payload[0])
	var rom [8]byte
	copy(rom[:], payload[1:9])
	addr := wire.Get16(payload, 9)
	n := int(payload[11])
	data, err := d.OneWire.ReadMem(port, rom, addr, n)
	if err != nil {
		return nil, statusFromErr(err)
	}
	return append(payload[:12:12], data...), StatusOK
}

func (d *Dispatcher) configureInterface(ifIndex int, payload []byte) ([]byte, Status) {
	iface, status := d.ifc(ifIndex)
	if status != StatusOK {
		return nil, status
	}
	if len(payload) < 8 {
		return nil, StatusInvalid
	}
	var ip, mask [4]byte
	copy(ip[:], payload[0:4])
	copy(mask[:], payload[4:8])
	iface.Configure(ip, mask)
	return payload[:8], StatusOK
}

func (d *Dispatcher) addARPCacheEntry(ifIndex int, payload []byte) ([]byte, Status) {
	_, status := d.ifc(ifIndex)
	if status != StatusOK {
		return nil, status
	}
	if len(payload) < 10 {
		return nil, StatusInvalid
	}
	// The stack does not maintain its own ARP cache (spec.md only
	// models validate/build over a single exchange); this opcode is
	// acknowledged as a no-op, matching the original's treatment of
	// static entries as advisory.
	return payload[:10], StatusOK
}

func (d *Dispatcher) getSoftwareVersion(_ int, _ []byte) ([]byte, Status) {
	return []byte(d.SoftwareVersion), StatusOK
}

func (d *Dispatcher) configureMulticast(ifIndex int, payload []byte) ([]byte, Status) {
	_, status := d.ifc(ifIndex)
	if status != StatusOK {
		return nil, status
	}
	if len(payload) < 8 || ifIndex >= len(d.igmpClients()) {
		return nil, StatusInvalid
	}
	base := wire.Get32(payload, 0)
	mask := wire.Get32(payload, 4)
	d.igmpClients()[ifIndex].Join(base, mask)
	return payload[:8], StatusOK
}

func (d *Dispatcher) multicastLeaveGroup(ifIndex int, payload []byte) ([]byte, Status) {
	_, status := d.ifc(ifIndex)
	if status != StatusOK {
		return nil, status
	}
	if ifIndex >= len(d.igmpClients()) {
		return nil, StatusInvalid
	}
	d.igmpClients()[ifIndex].Leave()
	return nil, StatusOK
}

// igmpClients returns the IGMPClients the caller wired in (cmd/skarabfw
// wires one per interface); an interface index with no entry makes the
// multicast configure/leave opcodes answer StatusInvalid.
func (d *Dispatcher) igmpClients() []igmpLeaver { return d.IGMPClients }

// igmpLeaver is the minimal surface dispatch needs from
// netstack/igmp.Client, kept local to avoid importing netstack/igmp
// just for two method names.
type igmpLeaver interface {
	Join(base, mask uint32)
	Leave()
}

func (d *Dispatcher) loopbackTest(ifIndex int, payload []byte) ([]byte, Status) {
	_, status := d.ifc(ifIndex)
	if status != StatusOK {
		return nil, status
	}
	return payload, StatusOK
}

func (d *Dispatcher) qsfpResetAndProgram(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 1 || d.Mezz == nil {
		return nil, StatusInvalid
	}
	site := int(payload[0])
	if site < 0 || site >= mezzanine.SiteCount {
		return nil, StatusIfOutOfRange
	}
	mz := d.Mezz.Site(site)
	if mz.Detected() != mezzanine.QSFP && mz.Detected() != mezzanine.QSFPPhy {
		return nil, StatusIfNotPresent
	}
	mz.ResetState()
	return payload[:1], StatusOK
}

func (d *Dispatcher) adcResetAndProgram(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 1 || d.Mezz == nil {
		return nil, StatusInvalid
	}
	site := int(payload[0])
	if site < 0 || site >= mezzanine.SiteCount {
		return nil, StatusIfOutOfRange
	}
	mz := d.Mezz.Site(site)
	if mz.Detected() != mezzanine.ADC {
		return nil, StatusIfNotPresent
	}
	mz.ResetState()
	return payload[:1], StatusOK
}

func (d *Dispatcher) getSensorData(_ int, _ []byte) ([]byte, Status) {
	if d.Sensors == nil {
		return nil, StatusFail
	}
	samples, err := d.Sensors.ReadSensors()
	if err != nil {
		return nil, statusFromErr(err)
	}
	resp := make([]byte, 0, 4*len(samples))
	for _, v := range samples {
		var b [4]byte
		wire.Put32(b[:], 0, uint32(v))
		resp = append(resp, b[:]...)
	}
	return resp, StatusOK
}

func (d *Dispatcher) setFanSpeed(_ int, payload []byte) ([]byte, Status) {
	if len(payload) < 2 || d.Fan == nil {
		return nil, StatusInvalid
	}
	fan := int(payload[0])
	pwm := payload[1]
	if err := d.Fan.SetSpeed(fan, pwm); err != nil {
		return nil, statusFromErr(err)
	}
	return payload[:2], StatusOK
}

func (d *Dispatcher) fanLUTUpdate(_ int, payload []byte) ([]byte, Status) {
	if d.Fan == nil || len(payload)%4 != 0 {
		return nil, StatusInvalid
	}
	lut := make([][2]uint16, 0, len(payload)/4)
	for off := 0; off+4 <= len(payload); off += 4 {
		lut = append(lut, [2]uint16{wire.Get16(payload, off), wire.Get16(payload, off+2)})
	}
	if err := d.Fan.LoadLUT(lut); err != nil {
		return nil, statusFromErr(err)
	}
	return nil, StatusOK
}

func (d *Dispatcher) getFanLUT(_ int, _ []byte) ([]byte, Status) {
	if d.Fan == nil {
		return nil, StatusFail
	}
	lut, err := d.Fan.LUT()
	if err != nil {
		return nil, statusFromErr(err)
	}
	resp := make([]byte, 4*len(lut))
	for i, pt := range lut {
		wire.Put16(resp, 4*i, pt[0])
		wire.Put16(resp, 4*i+2, pt[1])
	}
	return resp, StatusOK
}

func (d *Dispatcher) setDHCPTuningDebug(ifIndex int, payload []byte) ([]byte, Status) {
	if ifIndex < 0 || ifIndex >= len(d.DHCPClients) || len(payload) < 1 {
		return nil, StatusIfOutOfRange
	}
	d.DHCPClients[ifIndex].SetShortCircuitRenew(payload[0] != 0)
	return payload[:1], StatusOK
}

func (d *Dispatcher) getDHCPTuningDebug(ifIndex int, _ []byte) ([]byte, Status) {
	if ifIndex < 0 || ifIndex >= len(d.DHCPClients) {
		return nil, StatusIfOutOfRange
	}
	v := byte(0)
	if d.DHCPClients[ifIndex].Flags()&dhcp.FlagShortCircuitRenew != 0 {
		v = 1
	}
	return []byte{v}, StatusOK
}

func (d *Dispatcher) dhcpReset(ifIndex int, _ []byte) ([]byte, Status) {
	if ifIndex < 0 || ifIndex >= len(d.DHCPClients) {
		return nil, StatusIfOutOfRange
	}
	d.DHCPClients[ifIndex].Reset()
	if d.Scratchpad != nil {
		d.Scratchpad.IncrementReconfigureCount(scratchpad.DHCPReconfigureCount)
	}
	return nil, StatusOK
}

func (d *Dispatcher) getDHCPMonitorTimeout(_ int, _ []byte) ([]byte, Status) {
	var b [4]byte
	wire.Put32(b[:], 0, uint32(d.DHCPMonitorTimeout.Seconds()))
	return b[:], StatusOK
}

func (d *Dispatcher) getUptime(_ int, _ []byte) ([]byte, Status) {
	var b [4]byte
	wire.Put32(b[:], 0, uint32(d.Now().Sub(d.StartedAt).Seconds()))
	return b[:], StatusOK
}

func (d *Dispatcher) getCurrentLogs(_ int, _ []byte) ([]byte, Status) {
	return encodeLog(d.CurrentLogs), StatusOK
}

func (d *Dispatcher) getVoltageLogs(_ int, _ []byte) ([]byte, Status) {
	return encodeLog(d.VoltageLogs), StatusOK
}

func (d *Dispatcher) getFanControllerLogs(_ int, _ []byte) ([]byte, Status) {
	return encodeLog(d.FanLogs), StatusOK
}

func (d *Dispatcher) clearFanControllerLogs(_ int, _ []byte) ([]byte, Status) {
	if d.FanLogs != nil {
		d.FanLogs.Clear()
	}
	return nil, StatusOK
}

func encodeLog(r *faultlog.Ring) []byte {
	if r == nil {
		return nil
	}
	entries := r.Entries()
	resp := make([]byte, 0, 8*len(entries))
	for _, e := range entries {
		var b [8]byte
		wire.Put32(b[0:4], 0, uint32(e.Tick))
		wire.Put32(b[4:8], 0, uint32(e.Value))
		resp = append(resp, b[:]...)
	}
	return resp
}
