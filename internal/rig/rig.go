// Package rig provides the transceiver control adapter: a thin capability
// interface over a network rig-control endpoint, with a real TCP-backed
// implementation and an in-memory fake for tests and dry runs.
package rig

import (
	"errors"
	"fmt"
)

// ErrLink is returned for any transceiver protocol failure: connect
// timeout, malformed response, or a nonsense value such as a frequency
// below 100 kHz. It maps to spec §7's ERR_LINK.
type ErrLink struct {
	Op  string
	Err error
}

func (e *ErrLink) Error() string { return fmt.Sprintf("rig link: %s: %s", e.Op, e.Err) }
func (e *ErrLink) Unwrap() error { return e.Err }

// ErrMode is returned when a mode string has no mapping to a rig
// modulation mode. It maps to spec §7's ERR_MODE.
var ErrMode = errors.New("unknown mode")

// minSaneFreqHz is the validation floor from spec §4.5: a frequency below
// 100 kHz from an "open" call indicates the link is not actually talking
// to a rig.
const minSaneFreqHz = 100_000

// Rig is the capability set spec §4.5 describes: open/close, set
// frequency/mode/power, key/unkey PTT, and read signal strength. Both the
// real NetRig and the FakeRig implementations satisfy it; no inheritance
// hierarchy is needed.
type Rig interface {
	Open(address string) error
	Close() error
	SetFrequency(hz int64) error
	SetMode(mode Mode) error
	SetPower(fraction float64) error
	SetPTT(on bool) error
	SignalStrength() (int, error)
}

// Mode is a validated, rig-native modulation mode, produced by
// ParseMode from the schedule's textual Mode column.
type Mode string

const (
	ModePacketUSB Mode = "PKTUSB"
	ModePacketLSB Mode = "PKTLSB"
	ModeFM        Mode = "FM"
	ModeNarrowFM  Mode = "FMN"
	ModeAM        Mode = "AM"
)

// ParseMode maps the schedule-file mode strings to rig-native modes,
// per spec §4.5's table (confirmed against original_source's parse_mode,
// generalized with the FMN case spec.md adds).
func ParseMode(s string) (Mode, error) {
	switch s {
	case "USB":
		return ModePacketUSB, nil
	case "LSB":
		return ModePacketLSB, nil
	case "FM":
		return ModeFM, nil
	case "FMN":
		return ModeNarrowFM, nil
	case "AM":
		return ModeAM, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrMode, s)
	}
}
