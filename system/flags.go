// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package system

import "sync/atomic"

// atomicFlag is a single run-task flag: set by the tick handler,
// observed and cleared by the main loop, per spec.md §9's "interrupt
// flags -> atomic booleans" redesign of the original's plain
// uFlagRunTask_* globals.
type atomicFlag struct {
	v atomic.Bool
}

// Set raises the flag.
func (f *atomicFlag) Set() { f.v.Store(true) }

// TestAndClear reports whether the flag was set and clears it.
func (f *atomicFlag) TestAndClear() bool { return f.v.CompareAndSwap(true, false) }
