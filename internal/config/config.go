// Package config loads and validates the daemon's YAML configuration
// file, in the same gopkg.in/yaml.v3 idiom the teacher uses for its
// tocalls.yaml device-identifier table.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrFatalConfig is returned for any configuration problem the daemon
// cannot start without: a missing required field, or a library root
// that does not exist on disk (spec §4.7 — this is fatal, not retried).
type ErrFatalConfig struct {
	Reason string
}

func (e *ErrFatalConfig) Error() string { return "fatal config: " + e.Reason }

// Config is the on-disk shape of xmitd's YAML configuration file.
type Config struct {
	TransmissionSetsPath string `yaml:"transmission_sets_path"`
	RigAddress           string `yaml:"rig_address"`
	AudioDeviceName      string `yaml:"audio_device_name"`
	SignalPowerThreshold int    `yaml:"signal_power_threshold"`
	MaxWaitingTimeSec    int    `yaml:"max_waiting_time"`

	// CheckIntervalSec is parsed and retained for operator familiarity
	// with the legacy polling-based deployments it came from, but it is
	// never used to drive a ticker: the filesystem watcher is always
	// active in this implementation.
	CheckIntervalSec int `yaml:"check_interval"`

	FakeRig   bool   `yaml:"fake_rig"`
	FakeAudio bool   `yaml:"fake_audio"`
	LogLevel  string `yaml:"log_level"`
}

// MaxWaitingTime is SignalPowerThreshold's companion admission-policy
// knob, as a time.Duration.
func (c *Config) MaxWaitingTime() time.Duration {
	return time.Duration(c.MaxWaitingTimeSec) * time.Second
}

// CheckInterval is retained for logging only; see CheckIntervalSec.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSec) * time.Second
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ErrFatalConfig{Reason: fmt.Sprintf("reading %s: %s", path, err)}
	}

	c := &Config{
		SignalPowerThreshold: 30,
		MaxWaitingTimeSec:    300,
		CheckIntervalSec:     30,
		LogLevel:             "info",
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, &ErrFatalConfig{Reason: fmt.Sprintf("parsing %s: %s", path, err)}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.TransmissionSetsPath == "" {
		return &ErrFatalConfig{Reason: "transmission_sets_path is required"}
	}
	info, err := os.Stat(c.TransmissionSetsPath)
	if err != nil {
		return &ErrFatalConfig{Reason: fmt.Sprintf("transmission_sets_path %q does not exist: %s", c.TransmissionSetsPath, err)}
	}
	if !info.IsDir() {
		return &ErrFatalConfig{Reason: fmt.Sprintf("transmission_sets_path %q is not a directory", c.TransmissionSetsPath)}
	}

	if !c.FakeRig && c.RigAddress == "" {
		return &ErrFatalConfig{Reason: "rig_address is required unless fake_rig is set"}
	}
	if !c.FakeAudio && c.AudioDeviceName == "" {
		return &ErrFatalConfig{Reason: "audio_device_name is required unless fake_audio is set"}
	}
	if c.SignalPowerThreshold < 0 {
		return &ErrFatalConfig{Reason: "signal_power_threshold must be >= 0"}
	}
	if c.MaxWaitingTimeSec <= 0 {
		return &ErrFatalConfig{Reason: "max_waiting_time must be > 0"}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ErrFatalConfig{Reason: fmt.Sprintf("unknown log_level %q", c.LogLevel)}
	}

	return nil
}
