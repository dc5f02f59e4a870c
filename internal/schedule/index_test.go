package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeSet(t *testing.T, root, setName, body string) {
	t.Helper()
	dir := filepath.Join(root, setName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, scheduleFileName), []byte(header+body), 0o644))
}

func TestLoad_EmptyLibrary(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	idx, warnings, err := Load(root, now)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	_, ok := idx.ActiveAt(now)
	assert.False(t, ok)
	_, ok = idx.NextStartAfter(now)
	assert.False(t, ok)
}

func TestLoad_SingleFutureOccurrence(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "A", "01.01.2030;01.01.2030;10:00;15;14.074;USB;10;30\n")
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	idx, _, err := Load(root, now)
	require.NoError(t, err)

	before := time.Date(2030, 1, 1, 9, 59, 59, 0, time.Local)
	_, ok := idx.ActiveAt(before)
	assert.False(t, ok, "not yet active a second before start")

	at := time.Date(2030, 1, 1, 10, 0, 0, 0, time.Local)
	occ, ok := idx.ActiveAt(at)
	require.True(t, ok)
	assert.Equal(t, "USB", occ.Mode)
}

func TestLoad_OverlapAcrossSetsRejected(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "A", "01.01.2030;01.01.2030;10:00;15;14.074;USB;10;30\n")
	writeSet(t, root, "B", "01.01.2030;01.01.2030;10:05;15;14.074;USB;10;30\n")
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	idx, _, err := Load(root, now)
	require.Error(t, err)
	assert.Nil(t, idx)
	var overlapErr *ErrOverlap
	assert.ErrorAs(t, err, &overlapErr)
}

func TestLoad_EqualStartTimesTreatedAsOverlap(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "A", "01.01.2030;01.01.2030;10:00;15;14.074;USB;10;30\n")
	writeSet(t, root, "B", "01.01.2030;01.01.2030;10:00;15;7.100;AM;10;30\n")
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	_, _, err := Load(root, now)
	require.Error(t, err)
}

func TestLoad_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeSet(t, root, "A", "01.01.2030;03.01.2030;10:00;15;14.074;USB;10;30\n")
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	idx1, _, err := Load(root, now)
	require.NoError(t, err)
	idx2, _, err := Load(root, now)
	require.NoError(t, err)

	assert.Equal(t, idx1.Occurrences(), idx2.Occurrences())
}

func TestLoad_OneMalformedFileDoesNotBlockOthers(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "bad"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "bad", scheduleFileName), []byte("garbage, not a schedule\n"), 0o644))
	writeSet(t, root, "good", "01.01.2030;01.01.2030;10:00;15;14.074;USB;10;30\n")
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local)

	idx, warnings, err := Load(root, now)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	assert.Len(t, idx.Occurrences(), 1)
}

// TestActiveAt_AtMostOneMatch is the property-based form of invariant 4:
// for any set of non-overlapping occurrences and any instant, at most one
// occurrence is active.
func TestActiveAt_AtMostOneMatch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "n")
		base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.Local)

		var occs []Occurrence
		cursor := base
		for i := 0; i < n; i++ {
			gapMin := rapid.IntRange(0, 120).Draw(t, "gap")
			durMin := rapid.IntRange(1, 60).Draw(t, "dur")
			start := cursor.Add(time.Duration(gapMin) * time.Minute)
			end := start.Add(time.Duration(durMin) * time.Minute)
			occs = append(occs, Occurrence{SetFolder: "x", Start: start, End: end, Mode: "USB"})
			cursor = end
		}

		idx := &Index{occurrences: occs}
		probeMin := rapid.IntRange(-60, int(cursor.Sub(base)/time.Minute)+60).Draw(t, "probe")
		probe := base.Add(time.Duration(probeMin) * time.Minute)

		matches := 0
		for _, occ := range occs {
			if !probe.Before(occ.Start) && probe.Before(occ.End) {
				matches++
			}
		}

		_, ok := idx.ActiveAt(probe)
		if matches == 0 {
			assert.False(t, ok)
		} else {
			assert.True(t, ok)
		}
		assert.LessOrEqual(t, matches, 1, "non-overlapping construction must never itself produce >1 match")
	})
}
