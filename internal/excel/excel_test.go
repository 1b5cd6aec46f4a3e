package excel

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/kickoff/internal/config"
	"github.com/derekprior/kickoff/internal/schedule"
)

func day(m, d int) time.Time {
	return time.Date(2025, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func testData() (*config.Config, *schedule.Result) {
	cfg := &config.Config{
		Tournament: config.Tournament{Name: "Summer Cup", StartDate: config.Date{Time: day(6, 1)}},
		TimeSlots:  []string{"08:00", "10:00", "16:00", "18:00"},
		Groups: []config.Group{
			{Name: "A", Teams: []string{"Lions", "Tigers"}},
			{Name: "B", Teams: []string{"Eagles", "Hawks"}},
		},
		Stages: []config.Stage{{Name: "final", Template: "explicit", GapDays: 2}},
	}

	result := &schedule.Result{
		Assignments: []schedule.Assignment{
			{
				Match: 1, Stage: config.GroupStage, Group: "A",
				Home: "Lions", Away: "Tigers", HomeName: "Lions", AwayName: "Tigers",
				Slot: schedule.Slot{Date: day(6, 1), Time: "18:00", Tier: 3},
			},
			{
				Match: 2, Stage: config.GroupStage, Group: "B",
				Home: "Eagles", Away: "Hawks", HomeName: "Eagles", AwayName: "Hawks",
				Slot: schedule.Slot{Date: day(6, 2), Time: "08:00", DayOffset: 1},
			},
			{
				Match: 3, Stage: "final",
				Home: "Winner Group A", Away: "Winner Group B",
				HomeName: "Winner Group A", AwayName: "Winner Group B",
				Slot: schedule.Slot{Date: day(6, 4), Time: "18:00", Tier: 3},
			},
		},
		Warnings: []schedule.Warning{
			{
				Kind: schedule.UnsatisfiableSlot, Stage: config.GroupStage, Date: day(6, 2), Time: "08:00",
				Match: "Match 2", Team: "Hawks", Required: 3, Actual: 1, Shortfall: 2,
			},
			{
				Kind: schedule.CapacityShortfall, Stage: config.GroupStage, Date: day(6, 2),
				Scheduled: 1, Capacity: 4, Waiting: 2,
			},
		},
	}

	return cfg, result
}

func TestGenerateWorkbook(t *testing.T) {
	cfg, result := testData()

	f, err := Generate(cfg, result)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	t.Run("has Schedule sheet", func(t *testing.T) {
		idx, err := f.GetSheetIndex(ScheduleSheet)
		if err != nil {
			t.Fatalf("GetSheetIndex error: %v", err)
		}
		if idx < 0 {
			t.Error("Schedule sheet not found")
		}
	})

	t.Run("schedule sheet has headers", func(t *testing.T) {
		rows, _ := f.GetRows(ScheduleSheet)
		for i, want := range scheduleHeaders {
			if rows[0][i] != want {
				t.Errorf("header %d = %q, want %q", i, rows[0][i], want)
			}
		}
	})

	t.Run("schedule sheet has match rows", func(t *testing.T) {
		rows, _ := f.GetRows(ScheduleSheet)
		if len(rows) != 4 {
			t.Fatalf("rows = %d, want header plus 3 matches", len(rows))
		}
		want := []string{"1", config.GroupStage, "A", "06/01/2025", "Sun", "18:00", "Lions", "Tigers"}
		for i, w := range want {
			if rows[1][i] != w {
				t.Errorf("row 2 col %d = %q, want %q", i, rows[1][i], w)
			}
		}
		if rows[3][2] != "" || rows[3][6] != "Winner Group A" {
			t.Errorf("knockout row = %v", rows[3])
		}
	})

	t.Run("relaxed match highlighted", func(t *testing.T) {
		relaxed, _ := f.GetCellStyle(ScheduleSheet, "A3")
		normal, _ := f.GetCellStyle(ScheduleSheet, "A2")
		if relaxed == normal {
			t.Error("relaxed match row should be styled differently")
		}
	})

	t.Run("has per-team sheets", func(t *testing.T) {
		for _, team := range []string{"Lions", "Tigers", "Eagles", "Hawks"} {
			idx, err := f.GetSheetIndex(team)
			if err != nil {
				t.Fatalf("GetSheetIndex error: %v", err)
			}
			if idx < 0 {
				t.Errorf("sheet for %s not found", team)
			}
		}
	})

	t.Run("team sheet lists its matches", func(t *testing.T) {
		rows, _ := f.GetRows("Tigers")
		if len(rows) != 2 {
			t.Fatalf("Tigers sheet has %d rows, want 2", len(rows))
		}
		if rows[1][5] != "Lions" || rows[1][6] != "Away" {
			t.Errorf("Tigers match = %v", rows[1])
		}
	})

	t.Run("warnings sheet", func(t *testing.T) {
		rows, _ := f.GetRows(WarningsSheet)
		if len(rows) != 3 {
			t.Fatalf("warnings rows = %d, want 3", len(rows))
		}
		if rows[1][0] != string(schedule.UnsatisfiableSlot) || rows[1][5] != "Hawks" {
			t.Errorf("first warning = %v", rows[1])
		}
	})

	t.Run("default Sheet1 removed", func(t *testing.T) {
		idx, _ := f.GetSheetIndex("Sheet1")
		if idx >= 0 {
			t.Error("Sheet1 should be removed")
		}
	})
}

func TestWriteAndRead(t *testing.T) {
	cfg, result := testData()

	f, err := Generate(cfg, result)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	path := t.TempDir() + "/test.xlsx"
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}

	f2, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	defer f2.Close()

	t.Run("assignments", func(t *testing.T) {
		got, err := ReadAssignments(f2)
		if err != nil {
			t.Fatalf("ReadAssignments() error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("assignments = %d, want 3", len(got))
		}
		for i, a := range got {
			want := result.Assignments[i]
			if a.Match != want.Match || a.Stage != want.Stage || a.Group != want.Group ||
				a.Home != want.HomeName || a.Away != want.AwayName ||
				!a.Slot.Date.Equal(want.Slot.Date) || a.Slot.Time != want.Slot.Time {
				t.Errorf("assignment %d = %+v, want %+v", i, a, want)
			}
		}
	})

	t.Run("warnings", func(t *testing.T) {
		got, err := ReadWarnings(f2)
		if err != nil {
			t.Fatalf("ReadWarnings() error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("warnings = %d, want 2", len(got))
		}
		for i, w := range got {
			if w != result.Warnings[i] {
				t.Errorf("warning %d = %+v, want %+v", i, w, result.Warnings[i])
			}
		}
	})
}

func TestReadWarningsWithoutSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	got, err := ReadWarnings(f)
	if err != nil {
		t.Fatalf("ReadWarnings() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("warnings = %v, want none", got)
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lions", "Lions"},
		{"A/B United", "A_B United"},
		{"Schedule", "Team Schedule"},
		{"Sporting Club of the Northern Coast", "Sporting Club of the Northern C"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.in); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpdateTeamSheets(t *testing.T) {
	cfg, result := testData()

	f, err := Generate(cfg, result)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	path := t.TempDir() + "/edited.xlsx"
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs error: %v", err)
	}

	// Hand edit: Tigers give their opening match to Eagles.
	edit, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	edit.SetCellValue(ScheduleSheet, "H2", "Eagles")
	if err := edit.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	edit.Close()

	if err := UpdateTeamSheets(path, cfg); err != nil {
		t.Fatalf("UpdateTeamSheets() error: %v", err)
	}

	f2, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile error: %v", err)
	}
	defer f2.Close()

	tigers, _ := f2.GetRows("Tigers")
	if len(tigers) != 1 {
		t.Errorf("Tigers sheet rows = %d, want header only", len(tigers))
	}
	eagles, _ := f2.GetRows("Eagles")
	if len(eagles) != 3 {
		t.Errorf("Eagles sheet rows = %d, want header plus 2 matches", len(eagles))
	}
	if idx, _ := f2.GetSheetIndex(WarningsSheet); idx < 0 {
		t.Error("Warnings sheet should survive the update")
	}
}
