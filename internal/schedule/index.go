package schedule

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const scheduleFileName = "schedule.csv"

func setFolderOf(scheduleCSVPath string) string {
	return filepath.Dir(scheduleCSVPath)
}

// ErrOverlap is a hard load error: two occurrences across the library
// overlap in time. The caller must retain its previous Index rather than
// swap in the one that produced this error.
type ErrOverlap struct {
	A, B Occurrence
}

func (e *ErrOverlap) Error() string {
	return fmt.Sprintf("overlapping occurrences: %s and %s", e.A, e.B)
}

// Index is the library-wide, sorted, overlap-free set of occurrences.
type Index struct {
	occurrences []Occurrence
}

// Load enumerates the immediate subdirectories of root, parses every
// schedule.csv it finds, concatenates and sorts the resulting occurrences,
// and checks the no-overlap invariant. A missing root is a caller error
// (the daemon treats it as FATAL_CONFIG, not something Load retries). A
// per-file parse problem is logged by the caller via the returned
// warnings slice; it never prevents the rest of the library from loading.
// Overlap across sets is the only condition that fails the whole load.
func Load(root string, now time.Time) (*Index, []error, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, err
	}

	var all []Occurrence
	var warnings []error

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		csvPath := filepath.Join(root, entry.Name(), scheduleFileName)
		if _, err := os.Stat(csvPath); err != nil {
			continue // no schedule.csv in this set: not an error, just skip it
		}

		occs, rowWarnings, err := ParseFile(csvPath, now)
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		warnings = append(warnings, rowWarnings...)
		all = append(all, occs...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})

	for i := 0; i+1 < len(all); i++ {
		if all[i].End.After(all[i+1].Start) || all[i].Start.Equal(all[i+1].Start) {
			return nil, warnings, &ErrOverlap{A: all[i], B: all[i+1]}
		}
	}

	return &Index{occurrences: all}, warnings, nil
}

// ActiveAt returns the unique occurrence with Start <= now < End, if any.
// Uniqueness is guaranteed by the no-overlap invariant enforced at Load
// time.
func (idx *Index) ActiveAt(now time.Time) (Occurrence, bool) {
	if idx == nil {
		return Occurrence{}, false
	}
	for _, occ := range idx.occurrences {
		if !now.Before(occ.Start) && now.Before(occ.End) {
			return occ, true
		}
		if occ.Start.After(now) {
			break // sorted by Start: nothing further can match
		}
	}
	return Occurrence{}, false
}

// NextStartAfter returns the smallest Start strictly greater than now, if
// any occurrence starts in the future.
func (idx *Index) NextStartAfter(now time.Time) (time.Time, bool) {
	if idx == nil {
		return time.Time{}, false
	}
	for _, occ := range idx.occurrences {
		if occ.Start.After(now) {
			return occ.Start, true
		}
	}
	return time.Time{}, false
}

// Occurrences returns a copy of the sorted occurrence list, for tests and
// diagnostics.
func (idx *Index) Occurrences() []Occurrence {
	if idx == nil {
		return nil
	}
	out := make([]Occurrence, len(idx.occurrences))
	copy(out, idx.occurrences)
	return out
}
