// Package audio provides the audio output adapter: device enumeration,
// open-by-substring, and decode-and-play for the pre-recorded PCM/
// compressed files a broadcast window transmits. No synthesis: only
// playback of files already on disk (spec Non-goals).
package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrDeviceNotFound maps to spec §7's ERR_AUDIO_DEVICE.
var ErrDeviceNotFound = errors.New("audio device not found")

// ErrDecode maps to spec §7's ERR_AUDIO_DECODE: a single file failed to
// decode. Prepare returns it before PTT is ever keyed for that file, so
// the controller can skip straight to the next file without touching the
// transceiver at all.
type ErrDecode struct {
	Path string
	Err  error
}

func (e *ErrDecode) Error() string { return fmt.Sprintf("decode %s: %s", e.Path, e.Err) }
func (e *ErrDecode) Unwrap() error { return e.Err }

// DeviceInfo describes one enumerated output device (spec §4.5).
type DeviceInfo struct {
	Index      int
	Name       string
	HostAPI    string
	MaxOutputs int
}

// Device is the capability set spec §4.5 describes for the audio adapter.
// Prepare opens and decodes the header of path, surfacing ErrDecode
// immediately and without ever touching the transceiver; only once
// Prepare succeeds does the controller key PTT and call the returned
// Track's Play.
type Device interface {
	EnumerateDevices() ([]DeviceInfo, error)
	OpenByName(needle string) error
	Close() error
	Prepare(path string) (Track, error)
	Stop()
}

// Track is a decoded, ready-to-stream file. Play blocks until the file
// finishes or Stop is called on the owning Device from another goroutine.
type Track interface {
	Play(ctx context.Context) error
}
