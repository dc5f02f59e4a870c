// Package daemon wires together the schedule index, the filesystem
// watcher, and the transmission controller into the supervisor loop
// that is xmitd's single point of control: the only component that
// decides when to reload, when to fire, and when to stop.
package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kd8rig/xmitd/internal/audio"
	"github.com/kd8rig/xmitd/internal/config"
	"github.com/kd8rig/xmitd/internal/rig"
	"github.com/kd8rig/xmitd/internal/schedule"
	"github.com/kd8rig/xmitd/internal/watch"
	"github.com/kd8rig/xmitd/internal/xmit"
)

// Supervisor owns every long-lived resource: the transceiver handle, the
// audio device, the filesystem watcher, and the current schedule index.
// It is the only thing that ever touches the rig or audio adapters
// directly (via the Controller it builds) or swaps the index.
type Supervisor struct {
	Rig        rig.Rig
	Device     audio.Device
	Watcher    *watch.Watcher
	Controller *xmit.Controller
	Logger     *log.Logger

	root       string
	rigAddress string
	deviceName string

	// RetryInterval is the device-acquisition retry cadence (spec §4.7),
	// default 10s, overridable for tests.
	RetryInterval time.Duration

	index *schedule.Index
	now   func() time.Time
}

// New builds a Supervisor from a loaded Config and the two adapters the
// caller has already chosen (NetRig/FakeRig, PortaudioDevice/FakeDevice).
func New(cfg *config.Config, r rig.Rig, d audio.Device, logger *log.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = log.Default()
	}

	w, err := watch.New(cfg.TransmissionSetsPath, logger.With("component", "watcher"))
	if err != nil {
		return nil, err
	}

	controller := &xmit.Controller{
		Rig:             r,
		Device:          d,
		Logger:          logger.With("component", "controller"),
		SignalThreshold: cfg.SignalPowerThreshold,
		MaxWaitingTime:  cfg.MaxWaitingTime(),
	}

	return &Supervisor{
		Rig:        r,
		Device:     d,
		Watcher:    w,
		Controller: controller,
		Logger:     logger,
		root:       cfg.TransmissionSetsPath,
		rigAddress: cfg.RigAddress,
		deviceName: cfg.AudioDeviceName,
		now:        time.Now,
	}, nil
}

func (s *Supervisor) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *Supervisor) retryInterval() time.Duration {
	if s.RetryInterval > 0 {
		return s.RetryInterval
	}
	return 10 * time.Second
}

func (s *Supervisor) timeNow() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Run acquires the transceiver and audio device, loads the schedule
// index, and runs the main loop until ctx is cancelled. Cleanup order on
// the way out follows spec §4.4: stop watcher, stop audio, release PTT,
// close the transceiver link.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.acquireRig(ctx); err != nil {
		return err
	}
	if err := s.acquireDevice(ctx); err != nil {
		s.Rig.Close()
		return err
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	go s.Watcher.Run(watchCtx)

	if err := s.reload(); err != nil {
		s.logger().Error("initial schedule load failed, starting with an empty index", "err", err)
	}

	s.loop(ctx)

	cancelWatch()
	s.Watcher.Close()
	s.Device.Close()
	_ = s.Rig.SetPTT(false)
	s.Rig.Close()
	s.logger().Info("shutdown complete")
	return nil
}

func (s *Supervisor) loop(ctx context.Context) {
	for ctx.Err() == nil {
		now := s.timeNow()

		if occ, ok := s.index.ActiveAt(now); ok {
			outcome := s.Controller.Execute(ctx, occ)
			s.logger().Info("occurrence finished", "outcome", outcome, "set", occ.SetFolder)
			continue
		}

		timeout := time.Duration(-1)
		if next, ok := s.index.NextStartAfter(now); ok {
			timeout = next.Sub(now)
			if timeout < time.Second {
				timeout = time.Second
			}
		}

		switch s.wait(ctx, timeout) {
		case wokeReload:
			s.drainReload()
			if err := s.reload(); err != nil {
				s.logger().Error("reload failed, retaining previous index", "err", err)
			}
		case wokeTimeout, wokeShutdown:
		}
	}
}

type wakeReason int

const (
	wokeTimeout wakeReason = iota
	wokeReload
	wokeShutdown
)

// wait blocks until the wake event fires: a watcher signal, the context
// being cancelled, or timeout elapsing (a negative timeout waits
// forever). This is the supervisor's one suspension point (spec §5's
// "main wake-event wait").
func (s *Supervisor) wait(ctx context.Context, timeout time.Duration) wakeReason {
	var timeoutCh <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-ctx.Done():
		return wokeShutdown
	case <-s.Watcher.Reload:
		return wokeReload
	case <-timeoutCh:
		return wokeTimeout
	}
}

func (s *Supervisor) drainReload() {
	for {
		select {
		case <-s.Watcher.Reload:
		default:
			return
		}
	}
}

func (s *Supervisor) reload() error {
	idx, warnings, err := schedule.Load(s.root, s.timeNow())
	for _, w := range warnings {
		var parseWarning *schedule.ParseWarning
		if errors.As(w, &parseWarning) {
			s.logger().Debug("schedule row parse warning", "err", w)
			continue
		}
		s.logger().Warn("schedule file load warning", "err", w)
	}
	if err != nil {
		s.logger().Error("schedule reload rejected, retaining previous index", "err", err)
		return err
	}
	s.index = idx
	s.logger().Info("schedule reloaded", "occurrences", len(idx.Occurrences()))
	return nil
}

// acquireRig retries Rig.Open at RetryInterval until it succeeds or ctx
// is cancelled. There is no fatal path here: an unreachable rig address
// is a transient condition the operator can fix without restarting.
func (s *Supervisor) acquireRig(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Rig.Open(s.rigAddress); err == nil {
			s.logger().Info("connected to rig", "address", s.rigAddress)
			return nil
		} else {
			s.logger().Warn("rig connection failed, retrying", "address", s.rigAddress, "err", err)
		}
		if !interruptibleSleep(ctx, s.retryInterval()) {
			return ctx.Err()
		}
	}
}

// acquireDevice retries Device.OpenByName, printing the available
// device list on every miss so the operator can correct the configured
// name without guessing (spec §4.7).
func (s *Supervisor) acquireDevice(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Device.OpenByName(s.deviceName); err == nil {
			s.logger().Info("opened audio device", "name", s.deviceName)
			return nil
		} else {
			s.logger().Warn("audio device open failed, retrying", "name", s.deviceName, "err", err)
			if devices, listErr := s.Device.EnumerateDevices(); listErr == nil {
				s.logger().Warn("available audio devices", "devices", devices)
			}
		}
		if !interruptibleSleep(ctx, s.retryInterval()) {
			return ctx.Err()
		}
	}
}

// interruptibleSleep blocks for d, checking ctx at one-second granularity
// per spec §4.7's "checking the shutdown flag every second" requirement
// for the device-acquisition retry loops.
func interruptibleSleep(ctx context.Context, d time.Duration) bool {
	const tick = time.Second
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		wait := tick
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
