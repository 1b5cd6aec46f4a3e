package pairing

import (
	"fmt"
	"sort"

	"github.com/derekprior/kickoff/internal/config"
)

// Team is a tournament entrant. Position only orders teams inside their
// group; it never affects scheduling decisions.
type Team struct {
	ID       string
	Name     string
	Group    string
	Position int
}

// Group is a fixed partition of teams that play a round-robin.
type Group struct {
	ID       string
	Name     string
	Teams    []Team
	RestDays int
}

// Pairing is one unordered round-robin matchup. Home is always the team
// with the lower position.
type Pairing struct {
	Home     Team
	Away     Team
	Group    string
	RestDays int
}

func (p Pairing) String() string {
	return fmt.Sprintf("%s v %s", p.Home.Name, p.Away.Name)
}

// FromConfig builds groups from the tournament config. Team and group IDs
// are their names, which the config guarantees to be unique.
func FromConfig(cfg *config.Config) []Group {
	groups := make([]Group, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		group := Group{ID: g.Name, Name: g.Name}
		for i, name := range g.Teams {
			group.Teams = append(group.Teams, Team{ID: name, Name: name, Group: g.Name, Position: i + 1})
		}
		groups = append(groups, group)
	}
	ApplyRest(groups, cfg.RestDays)
	return groups
}

// ApplyRest sets each group's rest requirement from its team count.
func ApplyRest(groups []Group, rule config.RestDays) {
	for i := range groups {
		groups[i].RestDays = rule.For(len(groups[i].Teams))
	}
}

// RoundRobin returns every unique pairing inside each group, ordered by
// group ID and then by the teams' positions. Groups with fewer than two
// teams contribute nothing.
func RoundRobin(groups []Group) []Pairing {
	ordered := make([]Group, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	var pairings []Pairing
	for _, g := range ordered {
		teams := make([]Team, len(g.Teams))
		copy(teams, g.Teams)
		sort.SliceStable(teams, func(i, j int) bool {
			return teams[i].Position < teams[j].Position
		})

		for i := 0; i < len(teams); i++ {
			for j := i + 1; j < len(teams); j++ {
				pairings = append(pairings, Pairing{
					Home:     teams[i],
					Away:     teams[j],
					Group:    g.ID,
					RestDays: g.RestDays,
				})
			}
		}
	}
	return pairings
}
