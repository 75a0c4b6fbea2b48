// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cli implements the command-table matcher behind the
// interactive console spec.md §6 describes as an external collaborator
// ("a state machine reads characters, echoes with backspace handling,
// parses `command [option]` once CR is received, and dispatches to a
// fixed command table"). This package owns only the table-lookup and
// argument-parsing rules; the serial UART read/echo loop itself is out
// of scope (SPEC_FULL.md §5.11) and lives outside this module.
package cli

import "strings"

// Handler runs a matched command; arg is the optional second token,
// passed through verbatim (empty when absent). A handler that takes a hex
// argument checks and parses it itself with IsHexArg/ParseHexArg.
type Handler func(arg string) string

// Command is one fixed command-table entry (spec.md §6: "log-level,
// log-select, stats, whoami, uname, uptime, reboot-fpga, dump, if-map,
// igmp, wb-read (hex arg), arp-req/arp-proc on|off|stat, memtest,
// fan-runtime, fan-pwm-avg, help, ...").
type Command struct {
	Name string
	Run  Handler
}

// Dispatcher matches a line's leading token against a fixed command
// table, case-insensitively, per spec.md §6.
type Dispatcher struct {
	commands map[string]Handler
}

// New returns a Dispatcher with no commands registered.
func New() *Dispatcher {
	return &Dispatcher{commands: make(map[string]Handler)}
}

// Register installs cmd, overwriting any existing entry of the same
// name (compared case-insensitively).
func (d *Dispatcher) Register(cmd Command) {
	d.commands[strings.ToLower(cmd.Name)] = cmd.Run
}

// Dispatch parses line as "command [option]" and runs the matching
// handler, returning its output. An unrecognized command returns "".
func (d *Dispatcher) Dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	handler, ok := d.commands[strings.ToLower(fields[0])]
	if !ok {
		return ""
	}

	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	return handler(arg)
}

// IsHexArg reports whether arg matches spec.md §6's hex-keyword rule:
// exactly "0x" followed by one to eight lower-case hex digits, no other
// characters.
func IsHexArg(arg string) bool {
	if !strings.HasPrefix(arg, "0x") {
		return false
	}
	digits := arg[2:]
	if len(digits) == 0 || len(digits) > 8 {
		return false
	}
	for _, c := range digits {
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// ParseHexArg parses arg per IsHexArg's rule, returning ok=false if it
// does not match (including upper-case digits, which spec.md §6 treats
// as a non-match rather than an accepted-but-normalized form).
func ParseHexArg(arg string) (value uint32, ok bool) {
	if !IsHexArg(arg) {
		return 0, false
	}
	for _, c := range arg[2:] {
		value <<= 4
		switch {
		case c >= '0' && c <= '9':
			value |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			value |= uint32(c-'a') + 10
		}
	}
	return value, true
}
