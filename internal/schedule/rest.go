package schedule

import (
	"fmt"
	"time"

	"github.com/derekprior/kickoff/internal/pairing"
)

// RestTracker records each team's most recent match date and answers
// whether a team has rested long enough to play on a given date.
type RestTracker struct {
	required map[string]int
	last     map[string]time.Time
}

// NewRestTracker builds a tracker for the teams of the given groups, each
// bound to its group's rest requirement.
func NewRestTracker(groups []pairing.Group) *RestTracker {
	r := &RestTracker{
		required: make(map[string]int),
		last:     make(map[string]time.Time),
	}
	for _, g := range groups {
		for _, t := range g.Teams {
			r.required[t.ID] = g.RestDays
		}
	}
	return r
}

// CanPlay reports whether team may play on date.
func (r *RestTracker) CanPlay(team string, date time.Time) bool {
	return r.RestDaysRemaining(team, date) == 0
}

// RestDaysRemaining returns how many more days team would need to rest
// before date satisfies its requirement. Zero means it can play.
func (r *RestTracker) RestDaysRemaining(team string, date time.Time) int {
	last, ok := r.last[team]
	if !ok {
		return 0
	}
	remaining := r.required[team] - daysBetween(last, date)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RestSoFar returns the whole days since team last played and whether it
// has played at all.
func (r *RestTracker) RestSoFar(team string, date time.Time) (int, bool) {
	last, ok := r.last[team]
	if !ok {
		return 0, false
	}
	return daysBetween(last, date), true
}

// Required returns the rest requirement of team.
func (r *RestTracker) Required(team string) int {
	return r.required[team]
}

// Record stores date as the team's latest match. Dates only move forward;
// recording a team twice on one day means it was double-booked.
func (r *RestTracker) Record(team string, date time.Time) {
	if last, ok := r.last[team]; ok && !date.After(last) {
		panic(fmt.Sprintf("rest tracker: %s already recorded on %s, cannot record %s",
			team, last.Format("2006-01-02"), date.Format("2006-01-02")))
	}
	r.last[team] = date
}
