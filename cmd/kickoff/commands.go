package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/derekprior/kickoff/internal/config"
	"github.com/derekprior/kickoff/internal/excel"
	"github.com/derekprior/kickoff/internal/pairing"
	"github.com/derekprior/kickoff/internal/schedule"
	"github.com/derekprior/kickoff/internal/store"
	"github.com/derekprior/kickoff/internal/validator"
)

func runInit(outputPath string) error {
	if _, err := os.Stat(outputPath); err == nil {
		return errors.Newf("%s already exists; remove it first or use -o to write elsewhere", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(tournamentTemplate), 0644); err != nil {
		return errors.Wrap(err, "writing tournament")
	}

	fmt.Printf("✓ Created %s\n", outputPath)
	return nil
}

func (a *app) runTeamsImport(ctx context.Context) error {
	cfg, err := a.loadTournament()
	if err != nil {
		return err
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	groups := pairing.FromConfig(cfg)
	if err := st.ImportGroups(ctx, groups); err != nil {
		return err
	}

	fmt.Printf("✓ Imported %d teams in %d groups\n", len(cfg.AllTeams()), len(groups))
	fmt.Println("  Any stored schedule was cleared.")
	return nil
}

type generateOptions struct {
	stage  string
	fromDB bool
	dryRun bool
	output string
}

func (a *app) runGenerate(ctx context.Context, opts generateOptions) error {
	cfg, err := a.loadTournament()
	if err != nil {
		return err
	}

	s := schedule.New(cfg, schedule.WithLogger(a.logger))
	order := s.StageNames()
	stage := opts.stage
	if stage == "" {
		stage = config.GroupStage
	}
	first := slices.Index(order, stage)
	if first < 0 {
		return errors.Newf("unknown stage %q (have %s)", stage, strings.Join(order, ", "))
	}

	var st *store.Store
	if opts.fromDB || first > 0 || !opts.dryRun {
		st, err = a.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	groups := pairing.FromConfig(cfg)
	if opts.fromDB {
		groups, err = st.ListGroups(ctx)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			return errors.New("no groups stored. Run `kickoff teams import` first")
		}
		pairing.ApplyRest(groups, cfg.RestDays)
	}

	var prior []schedule.Assignment
	var priorWarnings []schedule.Warning
	if first > 0 {
		stored, err := st.ListAssignments(ctx, "")
		if err != nil {
			return err
		}
		for _, m := range stored {
			if slices.Contains(order[:first], m.Stage) {
				prior = append(prior, m)
			}
		}
		if len(prior) == 0 {
			return errors.Newf("nothing stored before %s; generate the earlier stages first", stage)
		}
		for _, name := range order[:first] {
			ws, err := st.ListWarnings(ctx, name)
			if err != nil {
				return err
			}
			priorWarnings = append(priorWarnings, ws...)
		}
	}

	fmt.Printf("Scheduling %s of %s...\n", strings.Join(order[first:], ", "), tournamentName(cfg))

	result, err := s.From(stage, groups, prior)
	if err != nil {
		var exhausted *schedule.ExhaustionError
		if errors.As(err, &exhausted) {
			fmt.Fprintf(os.Stderr, "✗ %s does not fit in %d days, even with rest relaxed.\n", exhausted.Stage, exhausted.Horizon)
			fmt.Fprintf(os.Stderr, "  Unscheduled pairings (%d):\n", len(exhausted.Unscheduled))
			for _, p := range exhausted.Unscheduled {
				fmt.Fprintf(os.Stderr, "    %s\n", p)
			}
		}
		return err
	}

	fmt.Printf("✓ %d matches scheduled\n", len(result.Assignments))
	printStages(result.Stages)
	printMetrics(groups, result.TeamMetrics)
	printWarnings(result.Warnings)

	if !opts.dryRun {
		runID, err := st.ReplaceStages(ctx, result)
		if err != nil {
			return err
		}
		fmt.Printf("\n✓ Stored as run %s\n", runID)
	}

	if opts.output == "" {
		return nil
	}
	full := &schedule.Result{
		Assignments: slices.Concat(prior, result.Assignments),
		Warnings:    slices.Concat(priorWarnings, result.Warnings),
		Stages:      result.Stages,
		TeamMetrics: result.TeamMetrics,
	}
	f, err := excel.Generate(cfg, full)
	if err != nil {
		return errors.Wrap(err, "generating Excel")
	}
	if err := f.SaveAs(opts.output); err != nil {
		return errors.Wrap(err, "saving file")
	}
	fmt.Printf("✓ Schedule saved to %s\n", opts.output)
	return nil
}

func tournamentName(cfg *config.Config) string {
	if cfg.Tournament.Name == "" {
		return "the tournament"
	}
	return cfg.Tournament.Name
}

func printStages(stages []schedule.StageSummary) {
	fmt.Println("\nStages:")
	for _, st := range stages {
		fmt.Printf("  %-14s %3d matches  %s to %s", st.Name, st.Matches,
			st.First.Format("01/02/2006"), st.Last.Format("01/02/2006"))
		if st.RelaxedFrom >= 0 {
			fmt.Printf("  (rest relaxed from day %d)", st.RelaxedFrom)
		}
		fmt.Println()
	}
}

func printMetrics(groups []pairing.Group, metrics map[string]*schedule.TeamMetrics) {
	if len(metrics) == 0 {
		return
	}
	fmt.Println("\nPer Team Metrics:")
	fmt.Printf("  %-20s %-6s %6s %8s\n", "Team", "Group", "Games", "Premium")
	for _, g := range groups {
		for _, t := range g.Teams {
			m, ok := metrics[t.ID]
			if !ok {
				continue
			}
			fmt.Printf("  %-20s %-6s %6d %8d\n", t.Name, g.Name, m.Games, m.Premium)
		}
	}
}

func printWarnings(warnings []schedule.Warning) {
	if len(warnings) == 0 {
		fmt.Println("\n✓ No warnings")
		return
	}
	fmt.Printf("\nWarnings (%d):\n", len(warnings))
	for _, w := range warnings {
		fmt.Printf("  ⚠ [%s] %s\n", w.Stage, w)
	}
}

func (a *app) runValidate(schedulePath string) error {
	cfg, err := a.loadTournament()
	if err != nil {
		return err
	}

	violations, err := validator.Validate(cfg, schedulePath)
	if err != nil {
		return errors.Wrap(err, "validating")
	}

	errCount := 0
	warnCount := 0
	for _, v := range violations {
		switch v.Type {
		case "error":
			errCount++
			fmt.Printf("✗ Rule violation: %s\n", v.Message)
		case "warning":
			warnCount++
			fmt.Printf("⚠ Guideline violation: %s\n", v.Message)
		}
	}

	fmt.Printf("\nValidation complete: %d rule violations, %d guideline violations\n", errCount, warnCount)

	if err := excel.UpdateTeamSheets(schedulePath, cfg); err != nil {
		return errors.Wrap(err, "updating team sheets")
	}
	fmt.Printf("✓ Team sheets updated in %s\n", schedulePath)

	if errCount > 0 {
		return errors.Newf("%d constraint violations found", errCount)
	}
	return nil
}

func (a *app) runShow(ctx context.Context, stage string) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	assignments, err := st.ListAssignments(ctx, stage)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		fmt.Println("No schedule stored. Run `kickoff schedule generate` first.")
		return nil
	}

	fmt.Println("Runs:")
	for _, r := range runs {
		if stage != "" && r.Stage != stage {
			continue
		}
		fmt.Printf("  %-14s %3d matches %3d warnings  %s  %s\n",
			r.Stage, r.Matches, r.Warnings, r.Created.Local().Format("01/02/2006 15:04"), r.ID)
	}

	fmt.Println("\nMatches:")
	for _, m := range assignments {
		fmt.Printf("  %-9s %-14s %-5s %s %s %s  %s v %s\n",
			m.Label(), m.Stage, m.Group,
			m.Slot.Date.Format("01/02/2006"), m.Slot.Date.Format("Mon"), m.Slot.Time,
			m.HomeName, m.AwayName)
	}

	warnings, err := st.ListWarnings(ctx, stage)
	if err != nil {
		return err
	}
	printWarnings(warnings)
	return nil
}

func (a *app) runClear(ctx context.Context, stage string) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.ClearStage(ctx, stage)
	if err != nil {
		return err
	}
	if stage == "" {
		fmt.Printf("✓ Removed %d matches\n", removed)
	} else {
		fmt.Printf("✓ Removed %d %s matches\n", removed, stage)
	}
	return nil
}
