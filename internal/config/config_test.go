package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xmitd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	setsDir := t.TempDir()
	path := writeConfig(t, `
transmission_sets_path: `+setsDir+`
rig_address: "127.0.0.1:4532"
audio_device_name: "USB Audio"
signal_power_threshold: 30
max_waiting_time: 300
log_level: debug
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, setsDir, c.TransmissionSetsPath)
	assert.Equal(t, "127.0.0.1:4532", c.RigAddress)
	assert.Equal(t, 30, c.SignalPowerThreshold)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	setsDir := t.TempDir()
	path := writeConfig(t, `
transmission_sets_path: `+setsDir+`
rig_address: "127.0.0.1:4532"
audio_device_name: "USB Audio"
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, c.SignalPowerThreshold)
	assert.Equal(t, 300, c.MaxWaitingTimeSec)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_MissingLibraryRootIsFatal(t *testing.T) {
	path := writeConfig(t, `
transmission_sets_path: /does/not/exist
rig_address: "127.0.0.1:4532"
audio_device_name: "USB Audio"
`)

	_, err := Load(path)
	require.Error(t, err)
	var fatal *ErrFatalConfig
	assert.ErrorAs(t, err, &fatal)
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	var fatal *ErrFatalConfig
	assert.ErrorAs(t, err, &fatal)
}

func TestLoad_FakeRigSkipsAddressRequirement(t *testing.T) {
	setsDir := t.TempDir()
	path := writeConfig(t, `
transmission_sets_path: `+setsDir+`
fake_rig: true
fake_audio: true
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.FakeRig)
	assert.True(t, c.FakeAudio)
}

func TestLoad_UnknownLogLevelIsFatal(t *testing.T) {
	setsDir := t.TempDir()
	path := writeConfig(t, `
transmission_sets_path: `+setsDir+`
fake_rig: true
fake_audio: true
log_level: verbose
`)

	_, err := Load(path)
	require.Error(t, err)
}
