package validator

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/kickoff/internal/config"
	"github.com/derekprior/kickoff/internal/excel"
	"github.com/derekprior/kickoff/internal/pairing"
	"github.com/derekprior/kickoff/internal/schedule"
)

// Violation represents a constraint violation found during validation.
type Violation struct {
	Row     int
	Type    string // "error" or "warning"
	Message string
}

// Validate reads a schedule workbook and checks it against the tournament
// config.
func Validate(cfg *config.Config, path string) ([]Violation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	assignments, err := excel.ReadAssignments(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading assignments")
	}
	warnings, err := excel.ReadWarnings(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading warnings")
	}

	return Check(cfg, assignments, warnings), nil
}

// Check validates a schedule already in memory. Rest shortfalls that were
// recorded as warnings when the schedule was built are reported as
// warnings; any other broken rule is an error.
func Check(cfg *config.Config, assignments []schedule.Assignment, warnings []schedule.Warning) []Violation {
	matches := parse(assignments)

	var violations []Violation

	// Hard constraints
	violations = append(violations, checkCompleteness(cfg, matches)...)
	violations = append(violations, checkDoubleBooking(matches)...)
	violations = append(violations, checkSlotCollisions(cfg, matches)...)
	violations = append(violations, checkDayCapacity(cfg, matches)...)
	violations = append(violations, checkOpeningDay(cfg, matches)...)
	violations = append(violations, checkStageOrder(cfg, matches)...)

	// Rest is an error unless the relaxation was recorded
	violations = append(violations, checkRest(cfg, matches, warnings)...)

	// Soft constraints
	violations = append(violations, checkPremiumBalance(cfg, matches)...)

	return violations
}

type parsedMatch struct {
	Row   int
	Match int
	Stage string
	Group string
	Date  time.Time
	Time  string
	Home  string
	Away  string
}

func (m parsedMatch) label() string {
	return fmt.Sprintf("Match %d", m.Match)
}

// parse flattens assignments in schedule sheet order; Row is the sheet row
// the match is written to.
func parse(assignments []schedule.Assignment) []parsedMatch {
	out := make([]parsedMatch, 0, len(assignments))
	for i, a := range assignments {
		home, away := a.HomeName, a.AwayName
		if home == "" {
			home = a.Home
		}
		if away == "" {
			away = a.Away
		}
		out = append(out, parsedMatch{
			Row:   i + 2,
			Match: a.Match,
			Stage: a.Stage,
			Group: a.Group,
			Date:  a.Slot.Date,
			Time:  a.Slot.Time,
			Home:  home,
			Away:  away,
		})
	}
	return out
}

func groupMatches(matches []parsedMatch) []parsedMatch {
	var out []parsedMatch
	for _, m := range matches {
		if m.Stage == config.GroupStage {
			out = append(out, m)
		}
	}
	return out
}

func checkCompleteness(cfg *config.Config, matches []parsedMatch) []Violation {
	type matchup struct{ a, b string }
	key := func(a, b string) matchup {
		if a > b {
			a, b = b, a
		}
		return matchup{a, b}
	}

	seen := make(map[matchup][]int)
	for _, m := range groupMatches(matches) {
		k := key(m.Home, m.Away)
		seen[k] = append(seen[k], m.Row)
	}

	var violations []Violation
	expected := make(map[matchup]bool)
	for _, p := range pairing.RoundRobin(pairing.FromConfig(cfg)) {
		k := key(p.Home.Name, p.Away.Name)
		expected[k] = true
		rows := seen[k]
		switch {
		case len(rows) == 0:
			violations = append(violations, Violation{
				Type:    "error",
				Message: fmt.Sprintf("%s vs %s (group %s) is not scheduled", p.Home.Name, p.Away.Name, p.Group),
			})
		case len(rows) > 1:
			violations = append(violations, Violation{
				Row:     rows[1],
				Type:    "error",
				Message: fmt.Sprintf("%s vs %s is scheduled %d times", p.Home.Name, p.Away.Name, len(rows)),
			})
		}
	}
	for _, m := range groupMatches(matches) {
		if !expected[key(m.Home, m.Away)] {
			violations = append(violations, Violation{
				Row:     m.Row,
				Type:    "error",
				Message: fmt.Sprintf("%s: %s vs %s is not a group pairing", m.label(), m.Home, m.Away),
			})
		}
	}

	for _, st := range cfg.Stages {
		if !slices.ContainsFunc(matches, func(m parsedMatch) bool { return m.Stage == st.Name }) {
			violations = append(violations, Violation{
				Type:    "error",
				Message: fmt.Sprintf("stage %s has no matches", st.Name),
			})
		}
	}
	return violations
}

func checkDoubleBooking(matches []parsedMatch) []Violation {
	type teamDay struct {
		team string
		date time.Time
	}
	counts := make(map[teamDay][]int)
	var order []teamDay
	for _, m := range matches {
		for _, team := range []string{m.Home, m.Away} {
			td := teamDay{team, m.Date}
			if _, ok := counts[td]; !ok {
				order = append(order, td)
			}
			counts[td] = append(counts[td], m.Row)
		}
	}

	var violations []Violation
	for _, td := range order {
		if rows := counts[td]; len(rows) > 1 {
			violations = append(violations, Violation{
				Row:     rows[1],
				Type:    "error",
				Message: fmt.Sprintf("%s plays %d matches on %s", td.team, len(rows), td.date.Format("01/02")),
			})
		}
	}
	return violations
}

func checkSlotCollisions(cfg *config.Config, matches []parsedMatch) []Violation {
	type slotKey struct {
		date time.Time
		time string
	}
	seen := make(map[slotKey]parsedMatch)

	var violations []Violation
	for _, m := range matches {
		if !slices.Contains(cfg.TimeSlots, m.Time) {
			violations = append(violations, Violation{
				Row:     m.Row,
				Type:    "error",
				Message: fmt.Sprintf("%s is at %s, which is not a configured time slot", m.label(), m.Time),
			})
		}
		sk := slotKey{m.Date, m.Time}
		if prev, ok := seen[sk]; ok {
			violations = append(violations, Violation{
				Row:  m.Row,
				Type: "error",
				Message: fmt.Sprintf("%s and %s share the %s %s slot",
					prev.label(), m.label(), m.Date.Format("01/02"), m.Time),
			})
			continue
		}
		seen[sk] = m
	}
	return violations
}

func checkDayCapacity(cfg *config.Config, matches []parsedMatch) []Violation {
	start := cfg.Tournament.StartDate.Time
	counts := make(map[time.Time]int)
	var days []time.Time
	for _, m := range matches {
		if counts[m.Date] == 0 {
			days = append(days, m.Date)
		}
		counts[m.Date]++
	}

	var violations []Violation
	for _, d := range days {
		capacity := cfg.Capacity()
		if d.Equal(start) {
			capacity = cfg.OpeningCapacity()
		}
		if counts[d] > capacity {
			violations = append(violations, Violation{
				Type:    "error",
				Message: fmt.Sprintf("%d matches on %s (capacity %d)", counts[d], d.Format("01/02"), capacity),
			})
		}
	}
	return violations
}

func checkOpeningDay(cfg *config.Config, matches []parsedMatch) []Violation {
	start := cfg.Tournament.StartDate.Time
	if start.IsZero() || len(cfg.TimeSlots) == 0 {
		return nil
	}
	premium := cfg.TimeSlots[len(cfg.TimeSlots)-1]

	var violations []Violation
	opening := 0
	for _, m := range groupMatches(matches) {
		switch {
		case m.Date.Before(start):
			violations = append(violations, Violation{
				Row:     m.Row,
				Type:    "error",
				Message: fmt.Sprintf("%s on %s is before the tournament starts", m.label(), m.Date.Format("01/02")),
			})
		case m.Date.Equal(start):
			opening++
			if cfg.OpeningCapacity() == 1 && m.Time != premium {
				violations = append(violations, Violation{
					Row:     m.Row,
					Type:    "error",
					Message: fmt.Sprintf("opening match %s is at %s, want the %s slot", m.label(), m.Time, premium),
				})
			}
		}
	}
	if opening == 0 && len(groupMatches(matches)) > 0 {
		violations = append(violations, Violation{
			Type:    "error",
			Message: fmt.Sprintf("no match on the opening day %s", start.Format("01/02")),
		})
	}
	return violations
}

func checkStageOrder(cfg *config.Config, matches []parsedMatch) []Violation {
	first := make(map[string]time.Time)
	last := make(map[string]time.Time)
	for _, m := range matches {
		if f, ok := first[m.Stage]; !ok || m.Date.Before(f) {
			first[m.Stage] = m.Date
		}
		if m.Date.After(last[m.Stage]) {
			last[m.Stage] = m.Date
		}
	}

	var violations []Violation
	prev := config.GroupStage
	for _, st := range cfg.Stages {
		end, okPrev := last[prev]
		begin, ok := first[st.Name]
		if okPrev && ok {
			earliest := end.AddDate(0, 0, st.GapDays)
			if begin.Before(earliest) {
				violations = append(violations, Violation{
					Type: "error",
					Message: fmt.Sprintf("%s starts %s, earliest allowed is %s (%d days after %s)",
						st.Name, begin.Format("01/02"), earliest.Format("01/02"), st.GapDays, prev),
				})
			}
		}
		prev = st.Name
	}
	return violations
}

func checkRest(cfg *config.Config, matches []parsedMatch, warnings []schedule.Warning) []Violation {
	required := make(map[string]int)
	for _, g := range pairing.FromConfig(cfg) {
		for _, t := range g.Teams {
			required[t.Name] = g.RestDays
		}
	}

	type relaxation struct{ team, match string }
	recorded := make(map[relaxation]bool)
	for _, w := range warnings {
		if w.Kind == schedule.UnsatisfiableSlot {
			recorded[relaxation{w.Team, w.Match}] = true
		}
	}

	teamMatches := make(map[string][]parsedMatch)
	for _, m := range groupMatches(matches) {
		teamMatches[m.Home] = append(teamMatches[m.Home], m)
		teamMatches[m.Away] = append(teamMatches[m.Away], m)
	}
	teams := make([]string, 0, len(teamMatches))
	for team := range teamMatches {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	var violations []Violation
	for _, team := range teams {
		list := teamMatches[team]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
		for i := 1; i < len(list); i++ {
			days := int(list[i].Date.Sub(list[i-1].Date).Hours() / 24)
			if days == 0 || days >= required[team] {
				continue
			}
			v := Violation{
				Row:  list[i].Row,
				Type: "error",
				Message: fmt.Sprintf("%s rests %d days before %s (min %d)",
					team, days, list[i].label(), required[team]),
			}
			if recorded[relaxation{team, list[i].label()}] {
				v.Type = "warning"
				v.Message += ", relaxed when scheduled"
			}
			violations = append(violations, v)
		}
	}
	return violations
}

// checkPremiumBalance warns when premium-slot matches are spread unevenly
// between the teams of a group.
func checkPremiumBalance(cfg *config.Config, matches []parsedMatch) []Violation {
	if len(cfg.TimeSlots) == 0 {
		return nil
	}
	premium := cfg.TimeSlots[len(cfg.TimeSlots)-1]

	counts := make(map[string]int)
	for _, m := range groupMatches(matches) {
		if m.Time == premium {
			counts[m.Home]++
			counts[m.Away]++
		}
	}

	var violations []Violation
	for _, g := range cfg.Groups {
		if len(g.Teams) == 0 {
			continue
		}
		lo, hi := counts[g.Teams[0]], counts[g.Teams[0]]
		for _, team := range g.Teams[1:] {
			lo = min(lo, counts[team])
			hi = max(hi, counts[team])
		}
		if hi-lo > 1 {
			violations = append(violations, Violation{
				Type:    "warning",
				Message: fmt.Sprintf("group %s premium slot imbalance: min %d, max %d across teams", g.Name, lo, hi),
			})
		}
	}
	return violations
}
