package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/kickoff/internal/config"
	"github.com/derekprior/kickoff/internal/pairing"
	"github.com/derekprior/kickoff/internal/schedule"
)

func testConfig() *config.Config {
	return &config.Config{
		Tournament: config.Tournament{
			Name:      "Summer Cup",
			StartDate: config.Date{Time: mustParse("2025-06-01")},
		},
		TimeSlots:          []string{"08:00", "10:00", "16:00", "18:00"},
		DayCapacity:        4,
		OpeningDayCapacity: 1,
		RestDays:           config.RestDays{Default: 3, ByGroupSize: map[int]int{4: 3, 5: 2}},
		Groups: []config.Group{
			{Name: "B", Teams: []string{"Eagles", "Hawks", "Falcons", "Owls", "Ravens"}},
			{Name: "A", Teams: []string{"Lions", "Tigers", "Bears", "Wolves"}},
		},
		Stages: []config.Stage{
			{Name: "semifinal", Template: "cross_groups", GapDays: 3},
			{Name: "final", Template: "winners", GapDays: 2},
		},
	}
}

func mustParse(s string) time.Time {
	t, err := parseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "kickoff.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
}

func TestOpenTwiceKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kickoff.db")

	s, err := Open(ctx, DriverSQLite, path, nil)
	require.NoError(t, err)
	require.NoError(t, s.ImportGroups(ctx, pairing.FromConfig(testConfig())))
	require.NoError(t, s.Close())

	s, err = Open(ctx, DriverSQLite, path, nil)
	require.NoError(t, err)
	defer s.Close()

	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestImportAndListGroups(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cfg := testConfig()

	require.NoError(t, s.ImportGroups(ctx, pairing.FromConfig(cfg)))

	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "B", groups[0].ID)
	assert.Equal(t, "A", groups[1].ID)

	lions := groups[1].Teams[0]
	assert.Equal(t, pairing.Team{ID: "Lions", Name: "Lions", Group: "A", Position: 1}, lions)
	require.Len(t, groups[0].Teams, 5)
	assert.Equal(t, "Ravens", groups[0].Teams[4].Name)

	t.Run("groups round-trip into the same pairings", func(t *testing.T) {
		pairing.ApplyRest(groups, cfg.RestDays)
		assert.Equal(t, pairing.RoundRobin(pairing.FromConfig(cfg)), pairing.RoundRobin(groups))
	})

	t.Run("import replaces existing teams", func(t *testing.T) {
		require.NoError(t, s.ImportGroups(ctx, []pairing.Group{{
			ID: "C", Name: "C",
			Teams: []pairing.Team{{ID: "Owls", Name: "Owls", Group: "C", Position: 1}},
		}}))
		groups, err := s.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "C", groups[0].Name)
		assert.Len(t, groups[0].Teams, 1)
	})

	t.Run("empty group survives", func(t *testing.T) {
		require.NoError(t, s.ImportGroups(ctx, []pairing.Group{{ID: "D", Name: "D"}}))
		groups, err := s.ListGroups(ctx)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Empty(t, groups[0].Teams)
	})
}

func TestReplaceStages(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cfg := testConfig()
	groups := pairing.FromConfig(cfg)
	require.NoError(t, s.ImportGroups(ctx, groups))

	result, err := schedule.New(cfg).Schedule(groups)
	require.NoError(t, err)

	runID, err := s.ReplaceStages(ctx, result)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	t.Run("assignments round-trip", func(t *testing.T) {
		stored, err := s.ListAssignments(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, result.Assignments, stored)
	})

	t.Run("filter by stage", func(t *testing.T) {
		semis, err := s.ListAssignments(ctx, "semifinal")
		require.NoError(t, err)
		assert.Equal(t, result.Stage("semifinal"), semis)
	})

	t.Run("warnings round-trip", func(t *testing.T) {
		require.NotEmpty(t, result.Warnings)
		stored, err := s.ListWarnings(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, result.Warnings, stored)
	})

	t.Run("runs recorded per stage", func(t *testing.T) {
		runs, err := s.ListRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		for _, r := range runs {
			assert.Equal(t, runID, r.ID)
			assert.False(t, r.Created.IsZero())
		}
		byStage := map[string]Run{}
		for _, r := range runs {
			byStage[r.Stage] = r
		}
		assert.Equal(t, 16, byStage[config.GroupStage].Matches)
		assert.Equal(t, 1, byStage["final"].Matches)
		assert.Equal(t, -1, byStage[config.GroupStage].RelaxedFrom)
	})

	t.Run("regenerating a stage replaces only that stage and later ones", func(t *testing.T) {
		prior, err := s.ListAssignments(ctx, "")
		require.NoError(t, err)

		cfg.Stages[1].GapDays = 5
		partial, err := schedule.New(cfg).From("final", groups, prior)
		require.NoError(t, err)

		_, err = s.ReplaceStages(ctx, partial)
		require.NoError(t, err)

		stored, err := s.ListAssignments(ctx, "")
		require.NoError(t, err)
		require.Len(t, stored, len(result.Assignments))
		assert.Equal(t, result.Stage(config.GroupStage), filter(stored, config.GroupStage))

		final := filter(stored, "final")
		require.Len(t, final, 1)
		semis := result.Stage("semifinal")
		assert.Equal(t, semis[len(semis)-1].Slot.Date.AddDate(0, 0, 5), final[0].Slot.Date)
	})
}

func TestClearStage(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	cfg := testConfig()

	result, err := schedule.Schedule(cfg)
	require.NoError(t, err)
	_, err = s.ReplaceStages(ctx, result)
	require.NoError(t, err)

	removed, err := s.ClearStage(ctx, "final")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stored, err := s.ListAssignments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, stored, len(result.Assignments)-1)

	removed, err = s.ClearStage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(len(result.Assignments)-1), removed)

	stored, err = s.ListAssignments(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, stored)

	warnings, err := s.ListWarnings(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func filter(assignments []schedule.Assignment, stage string) []schedule.Assignment {
	var out []schedule.Assignment
	for _, a := range assignments {
		if a.Stage == stage {
			out = append(out, a)
		}
	}
	return out
}
