// Package schedule reads the per-folder schedule.csv tables, expands them
// into concrete dated occurrences, and maintains the merged, overlap-free
// index the daemon queries to decide what to transmit.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "02.01.2006"
	timeLayout = "15:04"

	defaultPower = 5
	defaultPause = 60
)

// columns a schedule.csv must carry. Order in the file does not matter;
// unknown extra columns are ignored.
var requiredColumns = []string{
	"Start Date",
	"End Date",
	"Start Time",
	"Duration (minutes)",
	"Frequency (MHz)",
	"Mode",
}

// optional columns; missing entirely is fine, empty per-row falls back to
// the defaults above.
var optionalColumns = []string{
	"Power (W)",
	"Pause (sec)",
}

// row is one parsed (but not yet date-expanded) line of a schedule.csv.
type row struct {
	startDate time.Time
	endDate   time.Time
	startTime time.Time // only the HH:MM part is meaningful
	duration  time.Duration
	frequency float64 // MHz
	mode      string
	power     int
	pause     int
}

// ParseWarning is a non-fatal, single-row parse failure. The caller is
// expected to log it at debug level and continue with the remaining rows.
type ParseWarning struct {
	File string
	Line int
	Err  error
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("%s:%d: %s", w.File, w.Line, w.Err)
}

func (w *ParseWarning) Unwrap() error { return w.Err }

func warn(file string, line int, format string, args ...any) *ParseWarning {
	return &ParseWarning{File: file, Line: line, Err: fmt.Errorf(format, args...)}
}

// parseRow applies the per-row rules of spec §4.1, in order. A nil row with
// a nil error means "silently skip" (e.g. an entirely blank line); a nil
// row with a non-nil error means the row was malformed and should be
// logged at debug level.
func parseRow(file string, line int, rec map[string]string) (*row, error) {
	startDateStr := strings.TrimSpace(rec["Start Date"])
	if startDateStr == "" {
		return nil, nil
	}

	startDate, err := time.ParseInLocation(dateLayout, startDateStr, time.Local)
	if err != nil {
		return nil, warn(file, line, "bad Start Date %q: %w", startDateStr, err)
	}

	endDateStr := strings.TrimSpace(rec["End Date"])
	endDate, err := time.ParseInLocation(dateLayout, endDateStr, time.Local)
	if err != nil {
		return nil, warn(file, line, "bad End Date %q: %w", endDateStr, err)
	}

	startTimeStr := strings.TrimSpace(rec["Start Time"])
	startTime, err := time.Parse(timeLayout, startTimeStr)
	if err != nil {
		return nil, warn(file, line, "bad Start Time %q: %w", startTimeStr, err)
	}

	durationMin, err := strconv.Atoi(strings.TrimSpace(rec["Duration (minutes)"]))
	if err != nil {
		return nil, warn(file, line, "bad Duration %q: %w", rec["Duration (minutes)"], err)
	}

	freqStr := strings.ReplaceAll(strings.TrimSpace(rec["Frequency (MHz)"]), ",", ".")
	frequency, err := strconv.ParseFloat(freqStr, 64)
	if err != nil {
		return nil, warn(file, line, "bad Frequency %q: %w", rec["Frequency (MHz)"], err)
	}
	if frequency <= 0 {
		return nil, warn(file, line, "frequency must be positive, got %v", frequency)
	}

	if durationMin <= 0 {
		return nil, warn(file, line, "duration must be positive, got %d", durationMin)
	}
	if endDate.Before(startDate) {
		return nil, warn(file, line, "End Date %v is before Start Date %v", endDate, startDate)
	}

	power := defaultPower
	if s := strings.TrimSpace(rec["Power (W)"]); s != "" {
		power, err = strconv.Atoi(s)
		if err != nil {
			return nil, warn(file, line, "bad Power %q: %w", s, err)
		}
	}
	if power < 0 || power > 100 {
		return nil, warn(file, line, "power out of range [0,100]: %d", power)
	}

	pause := defaultPause
	if s := strings.TrimSpace(rec["Pause (sec)"]); s != "" {
		pause, err = strconv.Atoi(s)
		if err != nil {
			return nil, warn(file, line, "bad Pause %q: %w", s, err)
		}
	}
	if pause < 0 {
		return nil, warn(file, line, "pause must be >= 0, got %d", pause)
	}

	return &row{
		startDate: startDate,
		endDate:   endDate,
		startTime: startTime,
		duration:  time.Duration(durationMin) * time.Minute,
		frequency: frequency,
		mode:      strings.ToUpper(strings.TrimSpace(rec["Mode"])),
		power:     power,
		pause:     pause,
	}, nil
}

// expand turns one row into zero or more Occurrences, one per retained
// calendar day in [startDate, endDate]. An occurrence whose end has
// already passed relative to now is discarded (spec §9 open question:
// start-in-the-past-but-end-in-the-future occurrences are kept).
func (r *row) expand(setFolder string, now time.Time) []Occurrence {
	var occs []Occurrence
	for d := r.startDate; !d.After(r.endDate); d = d.AddDate(0, 0, 1) {
		start := time.Date(d.Year(), d.Month(), d.Day(),
			r.startTime.Hour(), r.startTime.Minute(), 0, 0, time.Local)
		end := start.Add(r.duration)
		if end.Before(now) {
			continue
		}
		occs = append(occs, Occurrence{
			SetFolder: setFolder,
			Start:     start,
			End:       end,
			Frequency: r.frequency,
			Mode:      r.mode,
			Power:     r.power,
			Pause:     time.Duration(r.pause) * time.Second,
		})
	}
	return occs
}
