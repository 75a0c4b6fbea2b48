// SKARAB control-plane firmware
// https://github.com/skarab-fw/skarab
//
// Copyright (c) SKARAB Firmware Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package neterr defines the single shared result enum used throughout the
// control plane in place of the original firmware's parallel
// XST_SUCCESS/XST_FAILURE-style macro families declared in separate headers
// (arp.h, dhcp.h, icmp.h, igmp.h, error.h, ...).
package neterr

// Code is returned by every protocol handler, state-machine step and
// command handler in the control plane.
type Code int

const (
	// Ok indicates the operation completed successfully.
	Ok Code = iota
	// Fail is a generic failure, used by low-level primitives on bus
	// timeout or unexpected NAK.
	Fail
	// Invalid indicates the input parsed but violated a protocol rule.
	Invalid
	// Ignore indicates the input was validly addressed to someone else.
	Ignore
	// Conflict indicates another host is claiming our IP.
	Conflict
	// IfOutOfRange indicates a command referenced an interface id beyond
	// the configured range.
	IfOutOfRange
	// IfNotPresent indicates a command referenced a valid but unpopulated
	// interface id.
	IfNotPresent
	// AxiDataBus indicates a wishbone address was out of range.
	AxiDataBus
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case Fail:
		return "fail"
	case Invalid:
		return "invalid"
	case Ignore:
		return "ignore"
	case Conflict:
		return "conflict"
	case IfOutOfRange:
		return "if-out-of-range"
	case IfNotPresent:
		return "if-not-present"
	case AxiDataBus:
		return "axi-data-bus"
	default:
		return "unknown"
	}
}

// Error adapts a Code to the error interface for callers that prefer Go's
// ordinary error-handling idiom (e.g. the DHCP/IGMP option codecs).
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// Wrap returns an *Error for c, or nil when c is Ok.
func Wrap(c Code, msg string) error {
	if c == Ok {
		return nil
	}
	return &Error{Code: c, Msg: msg}
}
