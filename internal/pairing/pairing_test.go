package pairing

import (
	"fmt"
	"strings"
	"testing"

	"github.com/derekprior/kickoff/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		TimeSlots: []string{"08:00", "10:00", "16:00", "18:00"},
		RestDays: config.RestDays{
			Default:     3,
			ByGroupSize: map[int]int{4: 3, 5: 2},
		},
		Groups: []config.Group{
			{Name: "B", Teams: []string{"Eagles", "Hawks", "Falcons", "Owls", "Ravens"}},
			{Name: "A", Teams: []string{"Lions", "Tigers", "Bears", "Wolves"}},
		},
	}
}

func TestFromConfig(t *testing.T) {
	groups := FromConfig(testConfig())

	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}

	t.Run("rest days follow group size", func(t *testing.T) {
		if groups[0].RestDays != 2 {
			t.Errorf("group B rest = %d, want 2", groups[0].RestDays)
		}
		if groups[1].RestDays != 3 {
			t.Errorf("group A rest = %d, want 3", groups[1].RestDays)
		}
	})

	t.Run("positions start at one", func(t *testing.T) {
		for i, team := range groups[1].Teams {
			if team.Position != i+1 {
				t.Errorf("%s position = %d, want %d", team.Name, team.Position, i+1)
			}
			if team.Group != "A" {
				t.Errorf("%s group = %q, want A", team.Name, team.Group)
			}
		}
	})
}

func TestApplyRest(t *testing.T) {
	groups := []Group{
		{ID: "A", Teams: make([]Team, 4)},
		{ID: "B", Teams: make([]Team, 6)},
	}
	ApplyRest(groups, testConfig().RestDays)

	if groups[0].RestDays != 3 {
		t.Errorf("4-team rest = %d, want 3", groups[0].RestDays)
	}
	if groups[1].RestDays != 3 {
		t.Errorf("6-team rest = %d, want default 3", groups[1].RestDays)
	}
}

func TestRoundRobin(t *testing.T) {
	pairings := RoundRobin(FromConfig(testConfig()))

	t.Run("total pairing count", func(t *testing.T) {
		// C(4,2) + C(5,2) = 6 + 10
		if len(pairings) != 16 {
			t.Errorf("pairings = %d, want 16", len(pairings))
		}
	})

	t.Run("every team meets every group rival once", func(t *testing.T) {
		type pair struct{ a, b string }
		seen := make(map[pair]int)
		for _, p := range pairings {
			a, b := p.Home.ID, p.Away.ID
			if a > b {
				a, b = b, a
			}
			seen[pair{a, b}]++
			if p.Home.Group != p.Away.Group {
				t.Errorf("%s pairs teams from different groups", p)
			}
		}
		for k, n := range seen {
			if n != 1 {
				t.Errorf("%s vs %s appears %d times", k.a, k.b, n)
			}
		}
	})

	t.Run("ordered by group then position", func(t *testing.T) {
		if pairings[0].Group != "A" || pairings[len(pairings)-1].Group != "B" {
			t.Fatalf("first group %q, last group %q", pairings[0].Group, pairings[len(pairings)-1].Group)
		}
		want := []string{
			"Lions v Tigers", "Lions v Bears", "Lions v Wolves",
			"Tigers v Bears", "Tigers v Wolves", "Bears v Wolves",
		}
		for i, w := range want {
			if pairings[i].String() != w {
				t.Errorf("pairing %d = %s, want %s", i, pairings[i], w)
			}
		}
	})

	t.Run("rest days carried from group", func(t *testing.T) {
		for _, p := range pairings {
			want := 3
			if p.Group == "B" {
				want = 2
			}
			if p.RestDays != want {
				t.Errorf("%s rest = %d, want %d", p, p.RestDays, want)
			}
		}
	})
}

func TestRoundRobinSmallGroups(t *testing.T) {
	groups := []Group{
		{ID: "A", Name: "A"},
		{ID: "B", Name: "B", Teams: []Team{{ID: "Solo", Name: "Solo", Group: "B", Position: 1}}},
		{ID: "C", Name: "C", Teams: []Team{
			{ID: "X", Name: "X", Group: "C", Position: 1},
			{ID: "Y", Name: "Y", Group: "C", Position: 2},
		}},
	}
	pairings := RoundRobin(groups)
	if len(pairings) != 1 {
		t.Fatalf("pairings = %d, want 1", len(pairings))
	}
	if pairings[0].String() != "X v Y" {
		t.Errorf("pairing = %s, want X v Y", pairings[0])
	}
}

func TestTemplates(t *testing.T) {
	groups := FromConfig(&config.Config{
		Groups: []config.Group{
			{Name: "A", Teams: []string{"a1", "a2"}},
			{Name: "B", Teams: []string{"b1", "b2"}},
			{Name: "C", Teams: []string{"c1", "c2"}},
			{Name: "D", Teams: []string{"d1", "d2"}},
		},
	})

	t.Run("cross groups", func(t *testing.T) {
		tmpl, err := Get("cross_groups")
		if err != nil {
			t.Fatal(err)
		}
		got, err := tmpl.Placeholders(TemplateInput{Stage: config.Stage{Name: "qf"}, Groups: groups})
		if err != nil {
			t.Fatal(err)
		}
		want := []Placeholder{
			{Home: "Winner Group A", Away: "Runner-up Group B"},
			{Home: "Winner Group B", Away: "Runner-up Group A"},
			{Home: "Winner Group C", Away: "Runner-up Group D"},
			{Home: "Winner Group D", Away: "Runner-up Group C"},
		}
		if len(got) != len(want) {
			t.Fatalf("placeholders = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("placeholder %d = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("cross groups rejects odd group count", func(t *testing.T) {
		tmpl, _ := Get("cross_groups")
		if _, err := tmpl.Placeholders(TemplateInput{Groups: groups[:3]}); err == nil {
			t.Error("expected error for three groups")
		}
	})

	t.Run("winners", func(t *testing.T) {
		tmpl, _ := Get("winners")
		got, err := tmpl.Placeholders(TemplateInput{
			Stage:    config.Stage{Name: "sf"},
			Previous: []string{"Match 7", "Match 8", "Match 9", "Match 10"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("placeholders = %d, want 2", len(got))
		}
		if got[1].Home != "Winner Match 9" || got[1].Away != "Winner Match 10" {
			t.Errorf("second placeholder = %s", got[1])
		}
	})

	t.Run("winners rejects a single match", func(t *testing.T) {
		tmpl, _ := Get("winners")
		_, err := tmpl.Placeholders(TemplateInput{
			Stage:    config.Stage{Name: "superfinal"},
			Previous: []string{"Match 19"},
		})
		if err == nil {
			t.Fatal("expected error for one previous match")
		}
		if detail := fmt.Sprintf("%+v", err); !strings.Contains(detail, "knockout.go") {
			t.Errorf("error carries no stack trace: %s", detail)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		tmpl, _ := Get("explicit")
		got, err := tmpl.Placeholders(TemplateInput{Stage: config.Stage{
			Name:     "final",
			Pairings: []config.Pairing{{Home: "Winner SF1", Away: "Winner SF2"}},
		}})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Home != "Winner SF1" {
			t.Errorf("placeholders = %v", got)
		}
	})

	t.Run("unknown template", func(t *testing.T) {
		if _, err := Get("lottery"); err == nil {
			t.Error("expected error for unknown template")
		}
	})
}
