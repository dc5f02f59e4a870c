package rig

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetRig talks the rigctld "NET rigctl" text line protocol over TCP — the
// same wire format Hamlib's RIG_MODEL_NETRIGCTL backend speaks, confirmed
// against the reference deployment's hamlibnetradio.py. Commands are
// newline-terminated single letters with space-separated arguments;
// responses are newline-terminated values, with multi-value responses
// printed one per line and a trailing "RPRT 0" on success or "RPRT <n>"
// (n != 0) on failure.
type NetRig struct {
	conn    net.Conn
	rw      *bufio.ReadWriter
	timeout time.Duration
}

// NewNetRig constructs a NetRig with the adapter's default per-call
// timeout (2s, per spec §5's "bounded by the adapter's own timeout").
func NewNetRig() *NetRig {
	return &NetRig{timeout: 2 * time.Second}
}

func (r *NetRig) Open(address string) error {
	conn, err := net.DialTimeout("tcp", address, r.timeout)
	if err != nil {
		return &ErrLink{Op: "open", Err: err}
	}
	r.conn = conn
	r.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	hz, err := r.getFrequency()
	if err != nil {
		conn.Close()
		r.conn = nil
		return &ErrLink{Op: "open: validate", Err: err}
	}
	if hz < minSaneFreqHz {
		conn.Close()
		r.conn = nil
		return &ErrLink{Op: "open: validate", Err: fmt.Errorf("nonsense frequency %d Hz", hz)}
	}
	return nil
}

// Close is always safe on a partially-open handle.
func (r *NetRig) Close() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	r.rw = nil
	return err
}

func (r *NetRig) deadline() time.Time { return time.Now().Add(r.timeout) }

// command sends one rigctld command line and returns its response lines,
// stripped of the trailing "RPRT n" status.
func (r *NetRig) command(line string) ([]string, error) {
	if r.conn == nil {
		return nil, &ErrLink{Op: line, Err: fmt.Errorf("not connected")}
	}
	if err := r.conn.SetDeadline(r.deadline()); err != nil {
		return nil, &ErrLink{Op: line, Err: err}
	}

	if _, err := r.rw.WriteString(line + "\n"); err != nil {
		return nil, &ErrLink{Op: line, Err: err}
	}
	if err := r.rw.Flush(); err != nil {
		return nil, &ErrLink{Op: line, Err: err}
	}

	var out []string
	for {
		resp, err := r.rw.ReadString('\n')
		resp = strings.TrimSpace(resp)
		if resp != "" {
			if strings.HasPrefix(resp, "RPRT") {
				fields := strings.Fields(resp)
				if len(fields) == 2 && fields[1] != "0" {
					return nil, &ErrLink{Op: line, Err: fmt.Errorf("rig reported error %s", fields[1])}
				}
				return out, nil
			}
			out = append(out, resp)
		}
		if err != nil {
			return nil, &ErrLink{Op: line, Err: err}
		}
	}
}

func (r *NetRig) getFrequency() (int64, error) {
	lines, err := r.command("f")
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("empty frequency response")
	}
	hz, err := strconv.ParseInt(lines[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed frequency %q: %w", lines[0], err)
	}
	return hz, nil
}

func (r *NetRig) SetFrequency(hz int64) error {
	_, err := r.command(fmt.Sprintf("F %d", hz))
	return err
}

func (r *NetRig) SetMode(mode Mode) error {
	// Passband width 0 tells rigctld to use the mode's default filter.
	_, err := r.command(fmt.Sprintf("M %s 0", mode))
	return err
}

// SetPower accepts a fraction of full scale in [0,1], matching rigctld's
// RFPOWER level convention.
func (r *NetRig) SetPower(fraction float64) error {
	_, err := r.command(fmt.Sprintf("L RFPOWER %.3f", fraction))
	return err
}

// SetPTT is idempotent: issuing the same PTT state twice is harmless.
func (r *NetRig) SetPTT(on bool) error {
	v := 0
	if on {
		v = 1
	}
	_, err := r.command(fmt.Sprintf("T %d", v))
	return err
}

func (r *NetRig) SignalStrength() (int, error) {
	lines, err := r.command("l STRENGTH")
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, &ErrLink{Op: "l STRENGTH", Err: fmt.Errorf("empty response")}
	}
	v, err := strconv.Atoi(lines[0])
	if err != nil {
		return 0, &ErrLink{Op: "l STRENGTH", Err: fmt.Errorf("malformed strength %q: %w", lines[0], err)}
	}
	return v, nil
}
