package audio

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FakeDevice is an in-memory audio device for tests: Prepare "decodes" a
// file by checking DecodeErrors, and the returned Track "plays" by
// sleeping for a configurable duration (default near-zero) while watching
// ctx and an internal stop signal. DecodeErrors lets a test simulate spec
// §4.6's non-fatal decode failure for a specific file, before PTT is ever
// keyed for it.
type FakeDevice struct {
	mu sync.Mutex

	Devices []DeviceInfo
	opened  string

	Played       []string
	DecodeErrors map[string]error
	PlayDuration time.Duration

	stop chan struct{}
}

func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		Devices: []DeviceInfo{
			{Index: 0, Name: "Fake Output", HostAPI: "fake", MaxOutputs: 2},
		},
		DecodeErrors: map[string]error{},
		stop:         make(chan struct{}, 1),
	}
}

func (d *FakeDevice) EnumerateDevices() ([]DeviceInfo, error) {
	return d.Devices, nil
}

func (d *FakeDevice) OpenByName(needle string) error {
	needle = strings.ToLower(needle)
	for _, dev := range d.Devices {
		if strings.Contains(strings.ToLower(dev.Name), needle) {
			d.opened = dev.Name
			return nil
		}
	}
	return ErrDeviceNotFound
}

func (d *FakeDevice) Close() error { return nil }

func (d *FakeDevice) Prepare(path string) (Track, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.DecodeErrors[filepath.Base(path)]; ok {
		return nil, &ErrDecode{Path: path, Err: err}
	}
	return &fakeTrack{device: d, path: path}, nil
}

func (d *FakeDevice) Stop() {
	select {
	case d.stop <- struct{}{}:
	default:
	}
}

type fakeTrack struct {
	device *FakeDevice
	path   string
}

func (t *fakeTrack) Play(ctx context.Context) error {
	d := t.device
	d.mu.Lock()
	d.Played = append(d.Played, t.path)
	duration := d.PlayDuration
	d.mu.Unlock()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-d.stop:
		return nil
	case <-timer.C:
		return nil
	}
}
