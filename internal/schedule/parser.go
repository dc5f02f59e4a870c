package schedule

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"
)

// ErrLoadFile wraps a whole-file failure (unreadable file, missing header
// column). The caller logs it as a warning and continues with the other
// sets in the library — a single malformed table must not prevent the
// rest from loading.
type ErrLoadFile struct {
	File string
	Err  error
}

func (e *ErrLoadFile) Error() string {
	return fmt.Sprintf("load %s: %s", e.File, e.Err)
}

func (e *ErrLoadFile) Unwrap() error { return e.Err }

// ParseFile reads one schedule.csv and expands its rows into occurrences.
// Row-level failures are collected and returned alongside any successfully
// parsed occurrences rather than aborting the file; a header problem (or
// an I/O error) aborts the whole file and is returned as *ErrLoadFile with
// a nil occurrence slice.
func ParseFile(path string, now time.Time) ([]Occurrence, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &ErrLoadFile{File: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, &ErrLoadFile{File: path, Err: fmt.Errorf("reading header: %w", err)}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, &ErrLoadFile{File: path, Err: fmt.Errorf("missing required column %q", col)}
		}
	}

	var occs []Occurrence
	var warnings []error
	line := 1
	for {
		rec, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			// A single truly unreadable line (e.g. bad quoting) is a row
			// failure, not a file failure — skip it and keep going.
			warnings = append(warnings, warn(path, line, "read error: %w", err))
			continue
		}

		fields := make(map[string]string, len(index))
		for _, col := range requiredColumns {
			if i := index[col]; i < len(rec) {
				fields[col] = rec[i]
			}
		}
		for _, col := range optionalColumns {
			if i, ok := index[col]; ok && i < len(rec) {
				fields[col] = rec[i]
			}
		}

		parsed, err := parseRow(path, line, fields)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		if parsed == nil {
			continue // blank Start Date: silently skipped per spec
		}

		occs = append(occs, parsed.expand(setFolderOf(path), now)...)
	}

	return occs, warnings, nil
}
