package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/derekprior/kickoff/internal/config"
	"github.com/derekprior/kickoff/internal/pairing"
)

// Assignment binds a pairing to a slot. Home and Away hold team IDs in the
// group stage and placeholders in knockout stages.
type Assignment struct {
	Match    int
	Stage    string
	Group    string
	Home     string
	Away     string
	HomeName string
	AwayName string
	Slot     Slot
}

// Label returns the match's public name, e.g. "Match 17".
func (a Assignment) Label() string {
	return fmt.Sprintf("Match %d", a.Match)
}

// TeamMetrics holds per-team schedule statistics.
type TeamMetrics struct {
	Games   int
	Premium int
}

// StageSummary describes one scheduled stage.
type StageSummary struct {
	Name    string
	First   time.Time
	Last    time.Time
	Matches int
	// RelaxedFrom is the first day offset on which rest could be relaxed,
	// or -1 when the stage was scheduled strictly.
	RelaxedFrom int
}

// Result is the output of the scheduling process.
type Result struct {
	Assignments []Assignment
	Warnings    []Warning
	Stages      []StageSummary
	TeamMetrics map[string]*TeamMetrics // keyed by team ID
}

// Stage returns the assignments of the named stage in schedule order.
func (r *Result) Stage(name string) []Assignment {
	var out []Assignment
	for _, a := range r.Assignments {
		if a.Stage == name {
			out = append(out, a)
		}
	}
	return out
}

// Scheduler computes fixtures for one tournament config. It holds no state
// between runs; every run builds fresh trackers.
type Scheduler struct {
	cfg    *config.Config
	logger *zap.Logger
}

type Option func(*Scheduler)

// WithLogger sets the logger used for stage summaries and relaxations.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(cfg *config.Config, opts ...Option) *Scheduler {
	s := &Scheduler{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule plans every stage of the tournament described by cfg, taking
// groups and teams from the config itself.
func Schedule(cfg *config.Config) (*Result, error) {
	return New(cfg).Schedule(pairing.FromConfig(cfg))
}

// Schedule plans the group stage followed by every knockout stage.
func (s *Scheduler) Schedule(groups []pairing.Group) (*Result, error) {
	return s.From(config.GroupStage, groups, nil)
}

// StageNames returns the group stage followed by the knockout stages in
// tournament order.
func (s *Scheduler) StageNames() []string {
	names := []string{config.GroupStage}
	for _, st := range s.cfg.Stages {
		names = append(names, st.Name)
	}
	return names
}

// From plans the named stage and every stage after it from a clean slate.
// prior holds previously scheduled assignments; only those of earlier
// stages are read, to find where the next stage starts and what its
// bracket refers to.
func (s *Scheduler) From(stage string, groups []pairing.Group, prior []Assignment) (*Result, error) {
	order := s.StageNames()
	first := slices.Index(order, stage)
	if first < 0 {
		return nil, errors.Newf("unknown stage %q", stage)
	}

	var history []Assignment
	nextMatch := 1
	for _, a := range prior {
		if slices.Index(order[:first], a.Stage) < 0 {
			continue
		}
		history = append(history, a)
		if a.Match >= nextMatch {
			nextMatch = a.Match + 1
		}
	}

	result := &Result{}
	for i := first; i < len(order); i++ {
		var out *StageResult
		if i == 0 {
			var err error
			out, err = s.GroupStage(groups, nextMatch)
			if err != nil {
				return nil, err
			}
		} else {
			st, _, _ := s.cfg.Stage(order[i])
			prev := stageAssignments(order[i-1], history, result.Assignments)
			if len(prev) == 0 {
				return nil, errors.Newf("stage %q follows %q, which has no scheduled matches", st.Name, order[i-1])
			}
			tmpl, err := pairing.Get(st.Template)
			if err != nil {
				return nil, errors.Wrapf(err, "stage %q", st.Name)
			}
			labels := make([]string, 0, len(prev))
			for _, a := range prev {
				labels = append(labels, a.Label())
			}
			placeholders, err := tmpl.Placeholders(pairing.TemplateInput{Stage: st, Groups: groups, Previous: labels})
			if err != nil {
				return nil, errors.Wrapf(err, "building bracket for %q", st.Name)
			}
			start := prev[len(prev)-1].Slot.Date.AddDate(0, 0, st.GapDays)
			out = s.KnockoutStage(st.Name, placeholders, start, nextMatch)
		}

		result.Assignments = append(result.Assignments, out.Assignments...)
		result.Warnings = append(result.Warnings, out.Warnings...)
		result.Stages = append(result.Stages, out.Summary)
		nextMatch += len(out.Assignments)

		s.logger.Info("stage scheduled",
			zap.String("stage", out.Summary.Name),
			zap.Int("matches", out.Summary.Matches),
			zap.Time("first", out.Summary.First),
			zap.Time("last", out.Summary.Last),
			zap.Int("warnings", len(out.Warnings)))
	}

	result.TeamMetrics = buildMetrics(groups, slices.Concat(history, result.Assignments), len(s.cfg.TimeSlots)-1)
	return result, nil
}

// stageAssignments returns the named stage's assignments from history and
// the current run, ordered by match number.
func stageAssignments(name string, history, current []Assignment) []Assignment {
	var out []Assignment
	for _, set := range [][]Assignment{history, current} {
		for _, a := range set {
			if a.Stage == name {
				out = append(out, a)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Assignment) int {
		return a.Match - b.Match
	})
	return out
}

// StageResult is the outcome of scheduling a single stage.
type StageResult struct {
	Assignments []Assignment
	Warnings    []Warning
	Summary     StageSummary
}

func summarize(name string, assignments []Assignment, relaxedFrom int) StageSummary {
	sum := StageSummary{Name: name, Matches: len(assignments), RelaxedFrom: relaxedFrom}
	for _, a := range assignments {
		if sum.First.IsZero() || a.Slot.Date.Before(sum.First) {
			sum.First = a.Slot.Date
		}
		if a.Slot.Date.After(sum.Last) {
			sum.Last = a.Slot.Date
		}
	}
	return sum
}

// GroupStage schedules every round-robin pairing of groups, numbering
// matches from firstMatch. A strict greedy pass is tried first; if it
// overruns the horizon, further passes allow rest to be relaxed from
// progressively earlier days until one fits.
func (s *Scheduler) GroupStage(groups []pairing.Group, firstMatch int) (*StageResult, error) {
	pairings := pairing.RoundRobin(groups)
	horizon := s.cfg.Horizon()

	var last *groupRun
	for relaxFrom := horizon; relaxFrom >= 0; relaxFrom-- {
		run := s.newGroupRun(groups, pairings, firstMatch, relaxFrom)
		if run.execute() {
			relaxed := -1
			if relaxFrom < horizon {
				relaxed = relaxFrom
			}
			for _, w := range run.warnings {
				if w.Kind == UnsatisfiableSlot {
					s.logger.Warn("rest constraint relaxed",
						zap.String("team", w.Team),
						zap.String("match", w.Match),
						zap.Int("required", w.Required),
						zap.Int("actual", w.Actual))
				}
			}
			return &StageResult{
				Assignments: run.assignments,
				Warnings:    run.warnings,
				Summary:     summarize(config.GroupStage, run.assignments, relaxed),
			}, nil
		}
		if relaxFrom == horizon {
			s.logger.Info("strict pass overran horizon, relaxing rest",
				zap.Int("horizon_days", horizon),
				zap.Int("unscheduled", len(run.remaining)))
		}
		last = run
	}

	return nil, errors.WithStack(&ExhaustionError{
		Stage:       config.GroupStage,
		Horizon:     horizon,
		Unscheduled: last.remaining,
	})
}

// groupRun is one greedy pass over the group stage.
type groupRun struct {
	logger    *zap.Logger
	horizon   int
	relaxFrom int

	cal  *Calendar
	rest *RestTracker
	fair *FairnessTracker

	remaining []pairing.Pairing
	nextMatch int

	assignments []Assignment
	warnings    []Warning
}

func (s *Scheduler) newGroupRun(groups []pairing.Group, pairings []pairing.Pairing, firstMatch, relaxFrom int) *groupRun {
	cal := NewCalendar(s.cfg.Tournament.StartDate.Time, s.cfg.TimeSlots, s.cfg.Capacity(), s.cfg.OpeningCapacity())
	return &groupRun{
		logger:    s.logger,
		horizon:   s.cfg.Horizon(),
		relaxFrom: relaxFrom,
		cal:       cal,
		rest:      NewRestTracker(groups),
		fair:      NewFairnessTracker(cal.PremiumTier()),
		remaining: slices.Clone(pairings),
		nextMatch: firstMatch,
	}
}

// execute runs the pass and reports whether every pairing fit within the
// horizon.
func (r *groupRun) execute() bool {
	for len(r.remaining) > 0 {
		if r.cal.Day() >= r.horizon {
			return false
		}
		r.fillDay()
	}
	return true
}

func (r *groupRun) fillDay() {
	day := r.cal.Day()
	capacity := r.cal.Capacity(day)
	playing := make(map[string]bool)
	scheduled := 0

	for i := 0; i < capacity; i++ {
		if len(r.remaining) == 0 {
			return
		}
		slot := r.cal.Current()
		r.cal.Advance()

		idx, relaxed := r.pick(slot, playing)
		if idx < 0 {
			continue
		}
		r.commit(idx, slot, relaxed, playing)
		scheduled++
	}

	if len(r.remaining) > 0 && scheduled < capacity {
		r.warnings = append(r.warnings, Warning{
			Kind:      CapacityShortfall,
			Stage:     config.GroupStage,
			Date:      r.cal.DateForOffset(day),
			Scheduled: scheduled,
			Capacity:  capacity,
			Waiting:   len(r.remaining),
		})
	}
}

// pick returns the index of the pairing to place in slot, or -1. The
// second result is true when the pairing breaks a rest requirement.
func (r *groupRun) pick(slot Slot, playing map[string]bool) (int, bool) {
	var eligible []int
	for i, p := range r.remaining {
		if playing[p.Home.ID] || playing[p.Away.ID] {
			continue
		}
		if r.rest.CanPlay(p.Home.ID, slot.Date) && r.rest.CanPlay(p.Away.ID, slot.Date) {
			eligible = append(eligible, i)
		}
	}

	if len(eligible) > 0 {
		if slot.Tier == r.cal.PremiumTier() {
			return r.pickPremium(eligible), false
		}
		return r.pickByPace(eligible), false
	}

	if slot.DayOffset < r.relaxFrom {
		return -1, false
	}
	return r.pickRelaxed(slot, playing), true
}

// pickPremium prefers a pairing whose teams never had the premium slot,
// then the lowest combined premium count.
func (r *groupRun) pickPremium(eligible []int) int {
	best, bestCount := -1, 0
	for _, i := range eligible {
		p := r.remaining[i]
		home, away := r.fair.PremiumCount(p.Home.ID), r.fair.PremiumCount(p.Away.ID)
		if home == 0 && away == 0 {
			return i
		}
		if best < 0 || home+away < bestCount {
			best, bestCount = i, home+away
		}
	}
	return best
}

// pickByPace prefers the pairing whose teams have played the fewest matches.
func (r *groupRun) pickByPace(eligible []int) int {
	best, bestPlayed := -1, 0
	for _, i := range eligible {
		p := r.remaining[i]
		played := r.fair.Played(p.Home.ID) + r.fair.Played(p.Away.ID)
		if best < 0 || played < bestPlayed {
			best, bestPlayed = i, played
		}
	}
	return best
}

// pickRelaxed ignores rest but never double-books a team on one day. It
// picks the smallest total rest shortfall, then the most rest so far.
func (r *groupRun) pickRelaxed(slot Slot, playing map[string]bool) int {
	best, bestShort, bestRest := -1, 0, 0
	for i, p := range r.remaining {
		if playing[p.Home.ID] || playing[p.Away.ID] {
			continue
		}
		short := r.rest.RestDaysRemaining(p.Home.ID, slot.Date) + r.rest.RestDaysRemaining(p.Away.ID, slot.Date)
		rest := r.restScore(p.Home.ID, slot.Date) + r.restScore(p.Away.ID, slot.Date)
		if best < 0 || short < bestShort || (short == bestShort && rest > bestRest) {
			best, bestShort, bestRest = i, short, rest
		}
	}
	return best
}

func (r *groupRun) restScore(team string, date time.Time) int {
	days, played := r.rest.RestSoFar(team, date)
	if !played {
		return r.horizon
	}
	return days
}

func (r *groupRun) commit(idx int, slot Slot, relaxed bool, playing map[string]bool) {
	p := r.remaining[idx]
	a := Assignment{
		Match:    r.nextMatch,
		Stage:    config.GroupStage,
		Group:    p.Group,
		Home:     p.Home.ID,
		Away:     p.Away.ID,
		HomeName: p.Home.Name,
		AwayName: p.Away.Name,
		Slot:     slot,
	}
	r.nextMatch++

	teams := []pairing.Team{p.Home, p.Away}
	if relaxed {
		for _, t := range teams {
			short := r.rest.RestDaysRemaining(t.ID, slot.Date)
			if short == 0 {
				continue
			}
			actual, _ := r.rest.RestSoFar(t.ID, slot.Date)
			r.warnings = append(r.warnings, Warning{
				Kind:      UnsatisfiableSlot,
				Stage:     config.GroupStage,
				Date:      slot.Date,
				Time:      slot.Time,
				Match:     a.Label(),
				Team:      t.Name,
				Required:  r.rest.Required(t.ID),
				Actual:    actual,
				Shortfall: short,
			})
		}
	}

	for _, t := range teams {
		r.rest.Record(t.ID, slot.Date)
		r.fair.Record(t.ID, slot.Tier)
		playing[t.ID] = true
	}

	r.logger.Debug("match committed",
		zap.String("match", a.Label()),
		zap.String("pairing", p.String()),
		zap.String("date", slot.Date.Format("2006-01-02")),
		zap.String("time", slot.Time),
		zap.Bool("relaxed", relaxed))

	r.assignments = append(r.assignments, a)
	r.remaining = slices.Delete(r.remaining, idx, idx+1)
}

func buildMetrics(groups []pairing.Group, assignments []Assignment, premiumTier int) map[string]*TeamMetrics {
	metrics := make(map[string]*TeamMetrics)
	for _, g := range groups {
		for _, t := range g.Teams {
			metrics[t.ID] = &TeamMetrics{}
		}
	}
	for _, a := range assignments {
		for _, team := range []string{a.Home, a.Away} {
			m, ok := metrics[team]
			if !ok {
				continue
			}
			m.Games++
			if a.Slot.Tier == premiumTier {
				m.Premium++
			}
		}
	}
	return metrics
}
