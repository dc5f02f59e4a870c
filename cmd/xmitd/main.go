// Command xmitd is an unattended scheduled-transmission daemon: it reads
// a library of transmission sets, watches the library for changes, and
// keys a transceiver to play audio files on the schedule each set's
// schedule.csv describes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/kd8rig/xmitd/internal/audio"
	"github.com/kd8rig/xmitd/internal/config"
	"github.com/kd8rig/xmitd/internal/daemon"
	"github.com/kd8rig/xmitd/internal/rig"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath = pflag.StringP("config", "c", "", "Path to the YAML configuration file (required).")
	var fakeRig = pflag.Bool("fake-rig", false, "Use an in-memory fake transceiver instead of rig_address. For rehearsal without hardware.")
	var fakeAudio = pflag.Bool("fake-audio", false, "Use an in-memory fake audio device instead of audio_device_name. For rehearsal without hardware.")
	var logLevel = pflag.String("log-level", "", "Override the configured log level (debug, info, warn, error).")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - unattended scheduled-transmission daemon.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: xmitd --config <path> [options]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "xmitd: --config is required")
		pflag.Usage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xmitd: %s\n", err)
		return 1
	}
	if *fakeRig {
		cfg.FakeRig = true
	}
	if *fakeAudio {
		cfg.FakeAudio = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xmitd: invalid log level %q: %s\n", cfg.LogLevel, err)
		return 1
	}
	logger.SetLevel(level)
	logger.Info("check_interval is not used; reloads are driven by the filesystem watcher", "check_interval", cfg.CheckInterval())

	r := buildRig(cfg)
	d, err := buildDevice(cfg)
	if err != nil {
		logger.Error("failed to construct audio device", "err", err)
		return 1
	}

	sup, err := daemon.New(cfg, r, d, logger)
	if err != nil {
		logger.Error("failed to build supervisor", "err", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown requested", "signal", sig)
		cancel()
	}()

	if err := sup.Run(ctx); err != nil {
		logger.Error("daemon exited with error", "err", err)
		return 1
	}
	return 0
}

func buildRig(cfg *config.Config) rig.Rig {
	if cfg.FakeRig {
		return rig.NewFakeRig()
	}
	return rig.NewNetRig()
}

func buildDevice(cfg *config.Config) (audio.Device, error) {
	if cfg.FakeAudio {
		return audio.NewFakeDevice(), nil
	}
	return audio.NewPortaudioDevice()
}
