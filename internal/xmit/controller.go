// Package xmit implements the transmission controller: the state machine
// that, given one resolved schedule occurrence, configures the
// transceiver, waits for a clear channel, and broadcasts a set's audio
// files in order — all while staying responsive to shutdown.
package xmit

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kd8rig/xmitd/internal/audio"
	"github.com/kd8rig/xmitd/internal/rig"
	"github.com/kd8rig/xmitd/internal/schedule"
)

// Outcome is the controller's report back to the supervisor for one
// occurrence. The supervisor logs it and resumes its own loop; a failed
// or aborted occurrence never brings the daemon down.
type Outcome int

const (
	// Done means every file in the set was at least attempted and the
	// occurrence ran to completion.
	Done Outcome = iota
	// Aborted means the shutdown flag was observed mid-occurrence.
	Aborted
	// Failed means a transceiver adapter call returned an error the
	// controller cannot recover from (ERR_LINK, ERR_MODE, or a set
	// folder that can't be read).
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Controller runs one occurrence at a time; it owns no state across
// calls to Execute beyond its adapters and policy knobs, matching spec
// §5's "one thread ever touches the transceiver adapter" rule.
type Controller struct {
	Rig    rig.Rig
	Device audio.Device
	Logger *log.Logger

	// SignalThreshold and MaxWaitingTime are the config-level admission
	// policy (spec §4.6); they are not per-row like frequency or power.
	SignalThreshold int
	MaxWaitingTime  time.Duration

	// AdmissionInterval and SettleDelay default to the spec's 10s and 1s
	// but are overridable so tests don't have to wait on a real clock.
	AdmissionInterval time.Duration
	SettleDelay       time.Duration
}

func (c *Controller) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c *Controller) admissionInterval() time.Duration {
	if c.AdmissionInterval > 0 {
		return c.AdmissionInterval
	}
	return 10 * time.Second
}

func (c *Controller) settleDelay() time.Duration {
	if c.SettleDelay > 0 {
		return c.SettleDelay
	}
	return time.Second
}

// Execute runs one occurrence to completion, abort, or failure. ctx's
// cancellation is the shutdown flag: the controller observes it at least
// once a second everywhere the spec requires.
func (c *Controller) Execute(ctx context.Context, occ schedule.Occurrence) Outcome {
	logger := c.logger().With("set", occ.SetFolder, "start", occ.Start)
	logger.Info("starting transmission", "freq_mhz", occ.Frequency, "mode", occ.Mode, "power_w", occ.Power)

	mode, err := rig.ParseMode(occ.Mode)
	if err != nil {
		logger.Error("unknown mode", "err", err)
		return Failed
	}
	if err := c.Rig.SetMode(mode); err != nil {
		logger.Error("set mode failed", "err", err)
		return Failed
	}
	if err := c.Rig.SetFrequency(int64(occ.Frequency * 1e6)); err != nil {
		logger.Error("set frequency failed", "err", err)
		return Failed
	}
	if err := c.Rig.SetPower(float64(occ.Power) / 100); err != nil {
		logger.Error("set power failed", "err", err)
		return Failed
	}

	logger.Info("checking signal power before transmission")
	proceed, err := c.admit(ctx)
	if err != nil {
		logger.Error("signal strength query failed", "err", err)
		return Failed
	}
	if !proceed {
		logger.Warn("transmission aborted before admission completed")
		return Aborted
	}

	files, err := enumerateFiles(occ.SetFolder)
	if err != nil {
		logger.Error("reading set folder failed", "err", err)
		return Failed
	}

	for _, path := range files {
		if ctx.Err() != nil {
			logger.Warn("transmission aborted", "file", path)
			return Aborted
		}

		// Decode happens before PTT is ever keyed for this file: a
		// corrupt file never touches the transceiver.
		track, err := c.Device.Prepare(path)
		if err != nil {
			var decodeErr *audio.ErrDecode
			if errors.As(err, &decodeErr) {
				logger.Warn("decode failed, skipping", "file", path, "err", err)
				continue
			}
			logger.Error("device prepare failed", "file", path, "err", err)
			return Failed
		}

		logger.Info("transmitting", "file", path)
		result, err := c.playFile(ctx, track)
		switch result {
		case fileAborted:
			logger.Warn("transmission aborted", "file", path)
			return Aborted
		case fileFailed:
			logger.Error("playback failed", "file", path, "err", err)
			return Failed
		}

		logger.Info("finished transmitting, pausing", "file", path, "pause", occ.Pause)
		if !interruptibleSleep(ctx, occ.Pause) {
			logger.Warn("transmission aborted during pause")
			return Aborted
		}
	}

	logger.Info("finished transmission")
	return Done
}

// admit implements spec §4.6's admission policy: poll signal strength at
// AdmissionInterval until it drops below the threshold, or until
// MaxWaitingTime elapses, whichever comes first. A false, nil return
// means the shutdown flag was observed; a non-nil error means the
// transceiver adapter itself failed.
func (c *Controller) admit(ctx context.Context) (bool, error) {
	start := time.Now()
	for {
		if ctx.Err() != nil {
			return false, nil
		}

		strength, err := c.Rig.SignalStrength()
		if err != nil {
			return false, err
		}
		c.logger().Debug("signal power", "strength", strength, "threshold", c.SignalThreshold)
		if strength < c.SignalThreshold {
			return true, nil
		}
		if time.Since(start) > c.MaxWaitingTime {
			c.logger().Warn("maximum waiting time exceeded, transmitting anyway",
				"elapsed", time.Since(start), "max_waiting_time", c.MaxWaitingTime)
			return true, nil
		}
		if !interruptibleSleep(ctx, c.admissionInterval()) {
			return false, nil
		}
	}
}

type fileResult int

const (
	fileDone fileResult = iota
	fileAborted
	fileFailed
)

// playFile keys PTT, waits for the rig to settle, plays the track to
// completion, and unkeys PTT on every exit path — normal, aborted, or a
// playback error. Scope-guarded via defer: nothing after SetPTT(true)
// can return without it running.
func (c *Controller) playFile(ctx context.Context, track audio.Track) (fileResult, error) {
	if err := c.Rig.SetPTT(true); err != nil {
		return fileFailed, err
	}
	defer func() {
		if err := c.Rig.SetPTT(false); err != nil {
			c.logger().Error("ptt release failed", "err", err)
		}
	}()

	if !interruptibleSleep(ctx, c.settleDelay()) {
		return fileAborted, nil
	}

	if err := track.Play(ctx); err != nil {
		return fileFailed, err
	}
	if ctx.Err() != nil {
		return fileAborted, nil
	}
	return fileDone, nil
}

// interruptibleSleep blocks for d, checking ctx at one-second granularity
// per spec §4.6/§5. It returns false the instant ctx is done, true once
// the full duration has elapsed uninterrupted.
func interruptibleSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
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
