package rig

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRigctld is a minimal stand-in for a real rigctld server, just
// enough of the NET rigctl text protocol to exercise NetRig: it answers
// "f" with a fixed frequency, "l STRENGTH" with -30, and every other
// command with "RPRT 0".
func fakeRigctld(t *testing.T, freqHz string) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				r := bufio.NewReader(conn)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					line = strings.TrimSpace(line)
					switch {
					case line == "f":
						conn.Write([]byte(freqHz + "\nRPRT 0\n"))
					case line == "l STRENGTH":
						conn.Write([]byte("-30\nRPRT 0\n"))
					default:
						conn.Write([]byte("RPRT 0\n"))
					}
				}
			}()
		}
	}()
	return ln.Addr().String(), func() {
		close(done)
		ln.Close()
	}
}

func TestNetRig_OpenValidatesFrequency(t *testing.T) {
	addr, stop := fakeRigctld(t, "14074000")
	defer stop()

	r := NewNetRig()
	require.NoError(t, r.Open(addr))
	defer r.Close()
}

func TestNetRig_OpenRejectsNonsenseFrequency(t *testing.T) {
	addr, stop := fakeRigctld(t, "50") // below 100 kHz floor
	defer stop()

	r := NewNetRig()
	err := r.Open(addr)
	require.Error(t, err)
	var linkErr *ErrLink
	assert.ErrorAs(t, err, &linkErr)
}

func TestNetRig_SetAndQuery(t *testing.T) {
	addr, stop := fakeRigctld(t, "14074000")
	defer stop()

	r := NewNetRig()
	require.NoError(t, r.Open(addr))
	defer r.Close()

	require.NoError(t, r.SetFrequency(7_100_000))
	require.NoError(t, r.SetMode(ModeFM))
	require.NoError(t, r.SetPower(0.1))
	require.NoError(t, r.SetPTT(true))
	require.NoError(t, r.SetPTT(false))

	strength, err := r.SignalStrength()
	require.NoError(t, err)
	assert.Equal(t, -30, strength)
}

func TestNetRig_OpenFailsOnUnreachableAddress(t *testing.T) {
	r := NewNetRig()
	err := r.Open("127.0.0.1:1") // nothing listens on a privileged port 1
	assert.Error(t, err)
}

func TestNetRig_CloseIsSafeOnUnopenedHandle(t *testing.T) {
	r := NewNetRig()
	assert.NoError(t, r.Close())
}
