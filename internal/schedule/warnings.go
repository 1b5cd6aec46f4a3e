package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/derekprior/kickoff/internal/pairing"
)

type WarningKind string

const (
	// UnsatisfiableSlot marks a match committed although one of its teams
	// had not rested long enough.
	UnsatisfiableSlot WarningKind = "unsatisfiable_slot"
	// CapacityShortfall marks a day that closed below capacity while
	// pairings were still waiting.
	CapacityShortfall WarningKind = "capacity_shortfall"
)

// Warning records a compromise the scheduler made. Warnings never abort a
// run; callers decide whether a relaxed schedule is acceptable.
type Warning struct {
	Kind  WarningKind
	Stage string
	Date  time.Time

	// Set for UnsatisfiableSlot.
	Time      string
	Match     string
	Team      string
	Required  int
	Actual    int
	Shortfall int

	// Set for CapacityShortfall.
	Scheduled int
	Capacity  int
	Waiting   int
}

func (w Warning) String() string {
	switch w.Kind {
	case UnsatisfiableSlot:
		return fmt.Sprintf("%s %s: %s rests %d of %d required days before %s (short by %d)",
			w.Date.Format("01/02"), w.Time, w.Team, w.Actual, w.Required, w.Match, w.Shortfall)
	case CapacityShortfall:
		return fmt.Sprintf("%s: %d of %d slots filled, %d pairings still waiting",
			w.Date.Format("01/02"), w.Scheduled, w.Capacity, w.Waiting)
	default:
		return fmt.Sprintf("%s %s", w.Date.Format("01/02"), w.Kind)
	}
}

// ExhaustionError reports that a stage could not be completed within its
// horizon even with rest constraints relaxed. No schedule is returned.
type ExhaustionError struct {
	Stage       string
	Horizon     int
	Unscheduled []pairing.Pairing
}

func (e *ExhaustionError) Error() string {
	msg := fmt.Sprintf("could not schedule %s within %d days: %d pairings left",
		e.Stage, e.Horizon, len(e.Unscheduled))
	if len(e.Unscheduled) == 0 {
		return msg
	}
	names := make([]string, 0, len(e.Unscheduled))
	for _, p := range e.Unscheduled {
		names = append(names, p.String())
	}
	return msg + " (" + strings.Join(names, ", ") + ")"
}
