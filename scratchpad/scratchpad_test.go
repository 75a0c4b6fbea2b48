// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package scratchpad

import "testing"

type fakeBus struct {
	data [Size]byte
}

func (b *fakeBus) ReadScratchpad() ([Size]byte, error)  { return b.data, nil }
func (b *fakeBus) WriteScratchpad(d [Size]byte) error    { b.data = d; return nil }

func TestIsDefaultDetectsFactoryPattern(t *testing.T) {
	bus := &fakeBus{data: defaultPattern}
	s := New(bus)

	first, err := s.IsDefault()
	if err != nil || !first {
		t.Fatalf("IsDefault() = %v, %v; want true, nil", first, err)
	}

	s.WriteByte(HMCReconfigureCount, 1)
	first, err = s.IsDefault()
	if err != nil || first {
		t.Fatalf("IsDefault() after write = %v, %v; want false, nil", first, err)
	}
}

func TestReadWriteByteLeavesOthersUntouched(t *testing.T) {
	bus := &fakeBus{}
	s := New(bus)

	s.WriteByte(AuxiliaryFlags, 0x42)
	s.WriteByte(StartupLogLevel, 0x07)

	v, err := s.ReadByte(AuxiliaryFlags)
	if err != nil || v != 0x42 {
		t.Fatalf("ReadByte(AuxiliaryFlags) = %v, %v; want 0x42, nil", v, err)
	}
	v, err = s.ReadByte(StartupLogLevel)
	if err != nil || v != 0x07 {
		t.Fatalf("ReadByte(StartupLogLevel) = %v, %v; want 0x07, nil", v, err)
	}
}

func TestByteIndexOutOfRange(t *testing.T) {
	s := New(&fakeBus{})
	if _, err := s.ReadByte(Size); err == nil {
		t.Fatalf("ReadByte(out of range) succeeded, want error")
	}
	if err := s.WriteByte(-1, 0); err == nil {
		t.Fatalf("WriteByte(out of range) succeeded, want error")
	}
}

func TestIncrementReconfigureCountSaturates(t *testing.T) {
	s := New(&fakeBus{})
	s.WriteByte(DHCPReconfigureCount, 0xfe)

	v, err := s.IncrementReconfigureCount(DHCPReconfigureCount)
	if err != nil || v != 0xff {
		t.Fatalf("first increment = %v, %v; want 0xff, nil", v, err)
	}
	v, err = s.IncrementReconfigureCount(DHCPReconfigureCount)
	if err != nil || v != 0xff {
		t.Fatalf("saturated increment = %v, %v; want 0xff, nil", v, err)
	}
}

func TestClearZeroesAllBytes(t *testing.T) {
	bus := &fakeBus{data: defaultPattern}
	s := New(bus)
	s.Clear()

	for i := 0; i < Size; i++ {
		if bus.data[i] != 0 {
			t.Fatalf("byte %d = %#x after Clear, want 0", i, bus.data[i])
		}
	}
}
