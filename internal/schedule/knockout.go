package schedule

import (
	"time"

	"github.com/derekprior/kickoff/internal/pairing"
)

// KnockoutStage lays placeholder pairings over full-capacity days starting
// at start. A final partial day takes the most desirable slots. Knockout
// matches carry no rest or fairness bookkeeping.
func (s *Scheduler) KnockoutStage(name string, placeholders []pairing.Placeholder, start time.Time, firstMatch int) *StageResult {
	capacity := s.cfg.Capacity()
	cal := NewCalendar(start, s.cfg.TimeSlots, capacity, capacity)

	var assignments []Assignment
	match := firstMatch
	for day := 0; len(placeholders) > 0; day++ {
		slots := cal.DaySlots(day)
		n := min(len(placeholders), len(slots))
		slots = slots[len(slots)-n:]
		for i, slot := range slots {
			p := placeholders[i]
			assignments = append(assignments, Assignment{
				Match:    match,
				Stage:    name,
				Home:     p.Home,
				Away:     p.Away,
				HomeName: p.Home,
				AwayName: p.Away,
				Slot:     slot,
			})
			match++
		}
		placeholders = placeholders[n:]
	}

	return &StageResult{
		Assignments: assignments,
		Summary:     summarize(name, assignments, -1),
	}
}
