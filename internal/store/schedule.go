package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/derekprior/kickoff/internal/schedule"
)

type matchRow struct {
	MatchNumber int    `db:"match_number"`
	Stage       string `db:"stage"`
	GroupName   string `db:"group_name"`
	Home        string `db:"home"`
	Away        string `db:"away"`
	SlotDate    string `db:"slot_date"`
	SlotTime    string `db:"slot_time"`
	Tier        int    `db:"tier"`
	DayOffset   int    `db:"day_offset"`
	RunID       string `db:"run_id"`
}

type warningRow struct {
	RunID      string `db:"run_id"`
	Seq        int    `db:"seq"`
	Kind       string `db:"kind"`
	Stage      string `db:"stage"`
	WarnDate   string `db:"warn_date"`
	SlotTime   string `db:"slot_time"`
	MatchLabel string `db:"match_label"`
	Team       string `db:"team"`
	Required   int    `db:"required"`
	Actual     int    `db:"actual"`
	Shortfall  int    `db:"shortfall"`
	Scheduled  int    `db:"scheduled"`
	Capacity   int    `db:"capacity"`
	Waiting    int    `db:"waiting"`
}

// Run describes one stored scheduling run of a stage.
type Run struct {
	ID          string    `db:"id"`
	Stage       string    `db:"stage"`
	CreatedAt   string    `db:"created_at"`
	Matches     int       `db:"matches"`
	Warnings    int       `db:"warnings"`
	FirstDate   string    `db:"first_date"`
	LastDate    string    `db:"last_date"`
	RelaxedFrom int       `db:"relaxed_from"`
	Created     time.Time `db:"-"`
}

// ReplaceStages stores result, first deleting every stored match and
// warning of the stages it contains. Stages absent from result are left
// untouched. All of it happens in one transaction and is tagged with a
// new run ID, which is returned.
func (s *Store) ReplaceStages(ctx context.Context, result *schedule.Result) (string, error) {
	runID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, st := range result.Stages {
			if err := clearStage(ctx, tx, st.Name); err != nil {
				return err
			}
		}

		const insertMatch = `
INSERT INTO matches (match_number, stage, group_name, home, away, slot_date, slot_time, tier, day_offset, run_id)
VALUES (:match_number, :stage, :group_name, :home, :away, :slot_date, :slot_time, :tier, :day_offset, :run_id)`
		for _, a := range result.Assignments {
			row := matchRow{
				MatchNumber: a.Match,
				Stage:       a.Stage,
				GroupName:   a.Group,
				Home:        a.HomeName,
				Away:        a.AwayName,
				SlotDate:    formatDate(a.Slot.Date),
				SlotTime:    a.Slot.Time,
				Tier:        a.Slot.Tier,
				DayOffset:   a.Slot.DayOffset,
				RunID:       runID,
			}
			if err := namedExec(ctx, tx, insertMatch, row); err != nil {
				return errors.Wrapf(err, "insert %s", a.Label())
			}
		}

		const insertWarning = `
INSERT INTO schedule_warnings (run_id, seq, kind, stage, warn_date, slot_time, match_label, team,
    required, actual, shortfall, scheduled, capacity, waiting)
VALUES (:run_id, :seq, :kind, :stage, :warn_date, :slot_time, :match_label, :team,
    :required, :actual, :shortfall, :scheduled, :capacity, :waiting)`
		for i, w := range result.Warnings {
			row := warningRow{
				RunID:      runID,
				Seq:        i + 1,
				Kind:       string(w.Kind),
				Stage:      w.Stage,
				WarnDate:   formatDate(w.Date),
				SlotTime:   w.Time,
				MatchLabel: w.Match,
				Team:       w.Team,
				Required:   w.Required,
				Actual:     w.Actual,
				Shortfall:  w.Shortfall,
				Scheduled:  w.Scheduled,
				Capacity:   w.Capacity,
				Waiting:    w.Waiting,
			}
			if err := namedExec(ctx, tx, insertWarning, row); err != nil {
				return errors.Wrapf(err, "insert warning %d", i+1)
			}
		}

		const insertRun = `
INSERT INTO schedule_runs (id, stage, created_at, matches, warnings, first_date, last_date, relaxed_from)
VALUES (:id, :stage, :created_at, :matches, :warnings, :first_date, :last_date, :relaxed_from)`
		for _, st := range result.Stages {
			warnings := 0
			for _, w := range result.Warnings {
				if w.Stage == st.Name {
					warnings++
				}
			}
			run := Run{
				ID:          runID,
				Stage:       st.Name,
				CreatedAt:   now,
				Matches:     st.Matches,
				Warnings:    warnings,
				RelaxedFrom: st.RelaxedFrom,
			}
			if st.Matches > 0 {
				run.FirstDate = formatDate(st.First)
				run.LastDate = formatDate(st.Last)
			}
			if err := namedExec(ctx, tx, insertRun, run); err != nil {
				return errors.Wrapf(err, "insert run for %s", st.Name)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("schedule stored",
		zap.String("run_id", runID),
		zap.Int("stages", len(result.Stages)),
		zap.Int("matches", len(result.Assignments)),
		zap.Int("warnings", len(result.Warnings)))
	return runID, nil
}

// ClearStage deletes the stored matches, warnings and runs of a stage, or
// of every stage when stage is empty. It returns the number of matches
// removed.
func (s *Store) ClearStage(ctx context.Context, stage string) (int64, error) {
	var removed int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := "SELECT COUNT(*) FROM matches"
		var args []any
		if stage != "" {
			query += " WHERE stage = ?"
			args = append(args, stage)
		}
		if err := tx.GetContext(ctx, &removed, tx.Rebind(query), args...); err != nil {
			return errors.Wrap(err, "count matches")
		}
		return clearStage(ctx, tx, stage)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("schedule cleared", zap.String("stage", stage), zap.Int64("matches", removed))
	return removed, nil
}

func clearStage(ctx context.Context, tx *sqlx.Tx, stage string) error {
	for _, table := range []string{"schedule_warnings", "matches", "schedule_runs"} {
		query := "DELETE FROM " + table
		var args []any
		if stage != "" {
			query += " WHERE stage = ?"
			args = append(args, stage)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return errors.Wrapf(err, "clearing %s", table)
		}
	}
	return nil
}

// ListAssignments returns the stored matches of a stage, or of every stage
// when stage is empty, ordered by match number.
func (s *Store) ListAssignments(ctx context.Context, stage string) ([]schedule.Assignment, error) {
	query := `SELECT match_number, stage, group_name, home, away, slot_date, slot_time, tier, day_offset, run_id FROM matches`
	var args []any
	if stage != "" {
		query += " WHERE stage = ?"
		args = append(args, stage)
	}
	query += " ORDER BY match_number"

	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select matches")
	}

	out := make([]schedule.Assignment, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.SlotDate)
		if err != nil {
			return nil, err
		}
		out = append(out, schedule.Assignment{
			Match:    row.MatchNumber,
			Stage:    row.Stage,
			Group:    row.GroupName,
			Home:     row.Home,
			Away:     row.Away,
			HomeName: row.Home,
			AwayName: row.Away,
			Slot: schedule.Slot{
				Date:      date,
				Time:      row.SlotTime,
				Tier:      row.Tier,
				DayOffset: row.DayOffset,
			},
		})
	}
	return out, nil
}

// ListWarnings returns the stored warnings of a stage, or of every stage
// when stage is empty, in the order they were raised.
func (s *Store) ListWarnings(ctx context.Context, stage string) ([]schedule.Warning, error) {
	query := `SELECT w.run_id, w.seq, w.kind, w.stage, w.warn_date, w.slot_time, w.match_label, w.team,
    w.required, w.actual, w.shortfall, w.scheduled, w.capacity, w.waiting
FROM schedule_warnings w
JOIN schedule_runs r ON r.id = w.run_id AND r.stage = w.stage`
	var args []any
	if stage != "" {
		query += " WHERE w.stage = ?"
		args = append(args, stage)
	}
	query += " ORDER BY r.created_at, w.run_id, w.seq"

	var rows []warningRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select warnings")
	}

	out := make([]schedule.Warning, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.WarnDate)
		if err != nil {
			return nil, err
		}
		out = append(out, schedule.Warning{
			Kind:      schedule.WarningKind(row.Kind),
			Stage:     row.Stage,
			Date:      date,
			Time:      row.SlotTime,
			Match:     row.MatchLabel,
			Team:      row.Team,
			Required:  row.Required,
			Actual:    row.Actual,
			Shortfall: row.Shortfall,
			Scheduled: row.Scheduled,
			Capacity:  row.Capacity,
			Waiting:   row.Waiting,
		})
	}
	return out, nil
}

// ListRuns returns the stored run of every stage, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	const query = `SELECT id, stage, created_at, matches, warnings, first_date, last_date, relaxed_from
FROM schedule_runs ORDER BY created_at, id`

	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, errors.Wrap(err, "select runs")
	}
	for i := range runs {
		t, err := time.Parse(time.RFC3339, runs[i].CreatedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "run %s created_at", runs[i].ID)
		}
		runs[i].Created = t
	}
	return runs, nil
}
