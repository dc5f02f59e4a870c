package schedule

import (
	"time"

	"github.com/lestrrat-go/strftime"
)

// logTimestamp is the same human-readable timestamp shape the teacher's
// xmit.go/tq.go build with lestrrat-go/strftime for received-frame
// timestamps, reused here for occurrence start times.
var logTimestamp = strftime.MustNew("%Y-%m-%d %H:%M:%S")

// Occurrence is a single dated instance of a schedule row, fully resolved
// (defaults already applied). Occurrences are transient: they are rebuilt
// on every reload and never persisted.
type Occurrence struct {
	SetFolder string
	Start     time.Time
	End       time.Time
	Frequency float64 // MHz
	Mode      string
	Power     int // watts
	Pause     time.Duration
}

// String renders an occurrence for log lines.
func (o Occurrence) String() string {
	start, _ := logTimestamp.FormatString(o.Start)
	return start + " " + o.SetFolder + " " + o.Mode
}

// Overlaps reports whether the two occurrences' [Start,End) intervals
// intersect, following the same half-open convention busoc-assist's
// Period.Overlaps uses for orbital windows.
func (o Occurrence) Overlaps(other Occurrence) bool {
	return o.Start.Before(other.End) && other.Start.Before(o.End)
}
