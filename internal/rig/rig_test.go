package rig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"USB": ModePacketUSB,
		"LSB": ModePacketLSB,
		"FM":  ModeFM,
		"FMN": ModeNarrowFM,
		"AM":  ModeAM,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseMode_Unknown(t *testing.T) {
	_, err := ParseMode("CW")
	assert.ErrorIs(t, err, ErrMode)
}

func TestFakeRig_PTTEndsOff(t *testing.T) {
	r := NewFakeRig()
	require.NoError(t, r.Open("irrelevant"))
	assert.True(t, r.PTTOff())

	require.NoError(t, r.SetPTT(true))
	assert.False(t, r.PTTOff())

	require.NoError(t, r.SetPTT(false))
	assert.True(t, r.PTTOff())
	assert.Equal(t, []bool{true, false}, r.PTTEvents)
}

func TestFakeRig_LinkErrorPropagates(t *testing.T) {
	r := NewFakeRig()
	require.NoError(t, r.Open("irrelevant"))
	r.LinkErr = &ErrLink{Op: "test", Err: assertErr{}}

	err := r.SetFrequency(14_000_000)
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated link failure" }
