package excel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/derekprior/kickoff/internal/config"
	"github.com/derekprior/kickoff/internal/schedule"
)

const (
	ScheduleSheet = "Schedule"
	WarningsSheet = "Warnings"

	dateLayout = "01/02/2006"
)

var scheduleHeaders = []string{"Match", "Stage", "Group", "Date", "Day", "Time", "Home", "Away"}

var warningHeaders = []string{
	"Kind", "Stage", "Date", "Time", "Match", "Team",
	"Required", "Actual", "Shortfall", "Scheduled", "Capacity", "Waiting",
}

// Generate creates an Excel workbook with the full schedule, one sheet per
// team and the warnings raised while scheduling.
func Generate(cfg *config.Config, result *schedule.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetDefaultFont("Arial")

	s := newStyles(f)

	if err := writeScheduleSheet(f, s, result); err != nil {
		return nil, errors.Wrap(err, "writing schedule sheet")
	}

	if err := writeTeamSheets(f, s, cfg, result.Assignments); err != nil {
		return nil, errors.Wrap(err, "writing team sheets")
	}

	if err := writeWarningsSheet(f, s, result.Warnings); err != nil {
		return nil, errors.Wrap(err, "writing warnings sheet")
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

type styles struct {
	header  int
	cell    int
	center  int
	relaxed int
}

func newStyles(f *excelize.File) styles {
	var s styles
	s.header, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 14, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#2E7D32"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.cell, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 14, Family: "Arial"},
	})
	s.center, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 14, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.relaxed, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 14, Family: "Arial"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
	})
	return s
}

func writeHeader(f *excelize.File, s styles, sheet string, headers []string) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	if s.header != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), s.header)
	}
	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeScheduleSheet(f *excelize.File, s styles, result *schedule.Result) error {
	sheet := ScheduleSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeader(f, s, sheet, scheduleHeaders)

	relaxed := make(map[string]bool)
	for _, w := range result.Warnings {
		if w.Kind == schedule.UnsatisfiableSlot {
			relaxed[w.Match] = true
		}
	}

	for i, a := range result.Assignments {
		row := i + 2
		values := []any{
			a.Match, a.Stage, a.Group,
			a.Slot.Date.Format(dateLayout), a.Slot.Date.Format("Mon"), a.Slot.Time,
			a.HomeName, a.AwayName,
		}
		for col, v := range values {
			f.SetCellValue(sheet, cellRef(col+1, row), v)
		}

		style := s.cell
		if relaxed[a.Label()] {
			style = s.relaxed
		}
		if style != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(scheduleHeaders), row), style)
		}
	}

	widths := map[string]float64{"A": 9, "B": 16, "C": 8, "D": 14, "E": 7, "F": 8, "G": 26, "H": 26}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	// Knockout placeholders are greyed out until real teams are known.
	if len(result.Assignments) > 0 {
		lastRow := len(result.Assignments) + 1
		grey, _ := f.NewConditionalStyle(&excelize.Style{
			Font: &excelize.Font{Italic: true, Color: "#808080"},
		})
		for _, col := range []string{"G", "H"} {
			cellRange := fmt.Sprintf("%s2:%s%d", col, col, lastRow)
			formula := fmt.Sprintf(`OR(LEFT(%s2,7)="Winner ",LEFT(%s2,10)="Runner-up ")`, col, col)
			f.SetConditionalFormat(sheet, cellRange, []excelize.ConditionalFormatOptions{
				{Type: "formula", Criteria: formula, Format: &grey},
			})
		}
	}

	return nil
}

// UpdateTeamSheets rebuilds every team sheet of the workbook at path from
// its Schedule sheet, so hand edits to the schedule carry over.
func UpdateTeamSheets(path string, cfg *config.Config) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	defer f.Close()

	assignments, err := ReadAssignments(f)
	if err != nil {
		return err
	}
	for _, team := range cfg.AllTeams() {
		if idx, err := f.GetSheetIndex(SheetName(team)); err == nil && idx >= 0 {
			if err := f.DeleteSheet(SheetName(team)); err != nil {
				return errors.Wrapf(err, "removing sheet for %s", team)
			}
		}
	}
	if err := writeTeamSheets(f, newStyles(f), cfg, assignments); err != nil {
		return errors.Wrap(err, "writing team sheets")
	}
	return f.Save()
}

func writeTeamSheets(f *excelize.File, s styles, cfg *config.Config, assignments []schedule.Assignment) error {
	headers := []string{"Match", "Stage", "Date", "Day", "Time", "Opponent", "Home/Away"}

	for _, team := range cfg.AllTeams() {
		sheet := SheetName(team)
		if _, err := f.NewSheet(sheet); err != nil {
			return errors.Wrapf(err, "team %q", team)
		}
		writeHeader(f, s, sheet, headers)

		type teamMatch struct {
			match    int
			stage    string
			date     time.Time
			time     string
			opponent string
			homeAway string
		}
		var matches []teamMatch
		for _, a := range assignments {
			if a.HomeName == team {
				matches = append(matches, teamMatch{
					match: a.Match, stage: a.Stage, date: a.Slot.Date, time: a.Slot.Time,
					opponent: a.AwayName, homeAway: "Home",
				})
			} else if a.AwayName == team {
				matches = append(matches, teamMatch{
					match: a.Match, stage: a.Stage, date: a.Slot.Date, time: a.Slot.Time,
					opponent: a.HomeName, homeAway: "Away",
				})
			}
		}
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].match < matches[j].match
		})

		for i, m := range matches {
			row := i + 2
			values := []any{
				m.match, m.stage, m.date.Format(dateLayout), m.date.Format("Mon"),
				m.time, m.opponent, m.homeAway,
			}
			for col, v := range values {
				f.SetCellValue(sheet, cellRef(col+1, row), v)
			}
			if s.cell != 0 {
				f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), s.cell)
			}
		}

		widths := map[string]float64{"A": 9, "B": 16, "C": 14, "D": 7, "E": 8, "F": 22, "G": 12}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}

	return nil
}

func writeWarningsSheet(f *excelize.File, s styles, warnings []schedule.Warning) error {
	sheet := WarningsSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeader(f, s, sheet, warningHeaders)

	for i, w := range warnings {
		row := i + 2
		values := []any{
			string(w.Kind), w.Stage, w.Date.Format(dateLayout), w.Time, w.Match, w.Team,
		}
		switch w.Kind {
		case schedule.UnsatisfiableSlot:
			values = append(values, w.Required, w.Actual, w.Shortfall)
		case schedule.CapacityShortfall:
			values = append(values, "", "", "", w.Scheduled, w.Capacity, w.Waiting)
		}
		for col, v := range values {
			f.SetCellValue(sheet, cellRef(col+1, row), v)
		}
		if s.center != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(warningHeaders), row), s.center)
		}
	}

	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "B", 16)
	f.SetColWidth(sheet, "C", "C", 14)
	f.SetColWidth(sheet, "D", "L", 11)
	return nil
}

// SheetName returns a valid worksheet name for a team. Excel limits names
// to 31 characters and rejects a handful of punctuation marks.
func SheetName(team string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, team)
	if name == ScheduleSheet || name == WarningsSheet {
		name = "Team " + name
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// ReadAssignments parses the Schedule sheet back into assignments. Only
// the columns written by Generate are recovered: slot tiers and day
// offsets depend on the tournament config and are left zero.
func ReadAssignments(f *excelize.File) ([]schedule.Assignment, error) {
	rows, err := f.GetRows(ScheduleSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s sheet", ScheduleSheet)
	}
	if len(rows) == 0 {
		return nil, errors.Newf("%s sheet is empty", ScheduleSheet)
	}

	var out []schedule.Assignment
	for i, row := range rows[1:] {
		if len(row) < len(scheduleHeaders) || row[0] == "" {
			continue
		}
		line := i + 2
		match, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: match number", line)
		}
		date, err := time.Parse(dateLayout, row[3])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: date", line)
		}
		out = append(out, schedule.Assignment{
			Match:    match,
			Stage:    row[1],
			Group:    row[2],
			Home:     row[6],
			Away:     row[7],
			HomeName: row[6],
			AwayName: row[7],
			Slot:     schedule.Slot{Date: date, Time: row[5]},
		})
	}
	return out, nil
}

// ReadWarnings parses the Warnings sheet. A workbook without one has no
// warnings.
func ReadWarnings(f *excelize.File) ([]schedule.Warning, error) {
	if idx, err := f.GetSheetIndex(WarningsSheet); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(WarningsSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s sheet", WarningsSheet)
	}

	var out []schedule.Warning
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || row[0] == "" {
			continue
		}
		cell := func(col int) string {
			if col < len(row) {
				return row[col]
			}
			return ""
		}
		num := func(col int) int {
			n, _ := strconv.Atoi(cell(col))
			return n
		}

		date, err := time.Parse(dateLayout, cell(2))
		if err != nil {
			return nil, errors.Wrapf(err, "warnings row %d: date", i+1)
		}
		out = append(out, schedule.Warning{
			Kind:      schedule.WarningKind(cell(0)),
			Stage:     cell(1),
			Date:      date,
			Time:      cell(3),
			Match:     cell(4),
			Team:      cell(5),
			Required:  num(6),
			Actual:    num(7),
			Shortfall: num(8),
			Scheduled: num(9),
			Capacity:  num(10),
			Waiting:   num(11),
		})
	}
	return out, nil
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
