// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package board declares the small interfaces the control plane consumes
// from the low-level board drivers that spec.md §1 names as external
// collaborators: register access, I²C, 1-Wire, SPI, flash/SDRAM
// programming, fan control, sensors and the watchdog. Concrete
// implementations live outside this module's scope (real register/bus
// controllers on the soft-core, or the board/sim in-memory fakes for
// tests); this package only fixes the API surface the core
// consumes, per spec.md §1's "specified only by the small API the core
// consumes".
package board

import "time"

// Registers abstracts the wishbone-addressed board register file
// (original_source/src/register.c/.h: WriteBoardRegister/ReadBoardRegister
// and the DSP-register equivalents).
type Registers interface {
	ReadBoard(addr uint32) (uint32, error)
	WriteBoard(addr uint32, data uint32) error
	ReadDSP(addr uint32) (uint32, error)
	WriteDSP(addr uint32, data uint32) error
	// LastBusError returns and clears the latched wishbone bus-error
	// flag (spec.md §7, AxiDataBus).
	LastBusError() bool
}

// I2CBus abstracts one I²C controller instance. Every transaction must
// complete or time out within a bounded number of polling iterations
// (spec.md §5: "I²C transactions carry explicit timeouts (10,000 polling
// iterations)"); implementations own that budget.
type I2CBus interface {
	Read(addr uint8, reg uint8, n int) ([]byte, error)
	Write(addr uint8, reg uint8, data []byte) error
	// PMBusRead performs a PMBus block-read command (used by sensor and
	// scratchpad access against the fan-controller chip).
	PMBusRead(addr uint8, cmd uint8, n int) ([]byte, error)
}

// OneWireBus abstracts the 1-Wire master used to interrogate mezzanine
// EEPROMs (original_source/src/one_wire.c/.h).
type OneWireBus interface {
	ReadROM(port int) ([8]byte, error)
	ReadMem(port int, romID [8]byte, addr uint16, n int) ([]byte, error)
	WriteMem(port int, romID [8]byte, addr uint16, data []byte) error
}

// SPIBus abstracts the ISP SPI controller used for flash/SPI page
// programming.
type SPIBus interface {
	ReadPage(addr uint32) ([]byte, error)
	ProgramPage(addr uint32, data []byte) error
	EraseSector(addr uint32) error
}

// FlashController abstracts the parallel-flash/SDRAM programming path
// (original_source/src/flash_sdram_controller.c).
type FlashController interface {
	ReadWords(addr uint32, n int) ([]uint32, error)
	ProgramWords(addr uint32, data []uint32) error
	EraseBlock(addr uint32) error
	ReconfigureFromSDRAM() error
	ProgramSDRAM(data []byte) error
}

// FanController abstracts the MAX31785 fan controller chip: fan-curve
// lookup table load, runtime readback, and the scratchpad backing store
// (original_source/src/fanctrl.c).
type FanController interface {
	RestoreDefaults() error
	LoadLUT(lut [][2]uint16) error
	LUT() ([][2]uint16, error)
	SetSpeed(fan int, pwmPercent uint8) error
	Runtime() (map[string]float32, error)
}

// SensorReader abstracts current/voltage/temperature sample decoding
// (original_source/src/sensors.c).
type SensorReader interface {
	ReadSensors() (map[string]float32, error)
}

// Watchdog abstracts the hardware watchdog timer; Kick must be called
// once per main-loop iteration (spec.md §4.10) or the board reboots.
type Watchdog interface {
	Start(timeout time.Duration) error
	Kick()
}
