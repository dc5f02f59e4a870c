package rig

import "sync"

// FakeRig is an in-memory transceiver, grounded on original_source's
// fakerig.py and the teacher's ptt_test.go mock-adapter idiom: it records
// every call so tests (and --fake-rig dry runs) can assert on the
// resulting sequence without hardware.
type FakeRig struct {
	mu sync.Mutex

	opened bool
	freq   int64
	mode   Mode
	power  float64
	ptt    bool

	// Signal is consulted by SignalStrength; tests set it directly, or
	// supply SignalFunc for time-varying behavior (e.g. admission-timeout
	// scenarios where the channel never clears).
	Signal     int
	SignalFunc func() int

	// PTTEvents records every SetPTT call in order, the property
	// TestPTT invariants (spec §8.3) are checked against.
	PTTEvents []bool

	// OpenErr / LinkErr, when set, make the corresponding call fail with
	// ErrLink, simulating a dropped link (spec §4.7).
	OpenErr error
	LinkErr error
}

func NewFakeRig() *FakeRig { return &FakeRig{} }

func (r *FakeRig) Open(address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.OpenErr != nil {
		return r.OpenErr
	}
	r.opened = true
	return nil
}

func (r *FakeRig) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = false
	return nil
}

func (r *FakeRig) SetFrequency(hz int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LinkErr != nil {
		return r.LinkErr
	}
	r.freq = hz
	return nil
}

func (r *FakeRig) SetMode(mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LinkErr != nil {
		return r.LinkErr
	}
	r.mode = mode
	return nil
}

func (r *FakeRig) SetPower(fraction float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LinkErr != nil {
		return r.LinkErr
	}
	r.power = fraction
	return nil
}

func (r *FakeRig) SetPTT(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LinkErr != nil {
		return r.LinkErr
	}
	r.ptt = on
	r.PTTEvents = append(r.PTTEvents, on)
	return nil
}

func (r *FakeRig) SignalStrength() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LinkErr != nil {
		return 0, r.LinkErr
	}
	if r.SignalFunc != nil {
		return r.SignalFunc(), nil
	}
	return r.Signal, nil
}

// PTTOff reports whether the last recorded PTT event (if any) is "off",
// the property invariant 3 (spec §8.3) checks.
func (r *FakeRig) PTTOff() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.PTTEvents) == 0 {
		return true
	}
	return !r.PTTEvents[len(r.PTTEvents)-1]
}
