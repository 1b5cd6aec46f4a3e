package config

import (
	"fmt"
	"maps"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// GroupStage is the stage name used for the round-robin group matches.
const GroupStage = "group_stage"

const (
	defaultHorizonDays        = 60
	defaultOpeningDayCapacity = 1
)

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse("2006-01-02", value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

type Tournament struct {
	Name      string `yaml:"name"`
	StartDate Date   `yaml:"start_date"`
	// HorizonDays bounds how many calendar days the group stage may use.
	HorizonDays int `yaml:"horizon_days" validate:"gte=0"`
}

// RestDays maps a group's team count to the minimum number of whole days
// between two matches of the same team.
type RestDays struct {
	Default     int         `yaml:"default" validate:"gte=0"`
	ByGroupSize map[int]int `yaml:"by_group_size"`
}

// DefaultRestDays is the rest rule used when a tournament file has no
// rest_days section: five-team groups rest 2 days, all others 3.
func DefaultRestDays() RestDays {
	return RestDays{Default: 3, ByGroupSize: map[int]int{5: 2}}
}

// UnmarshalYAML replaces the whole rule, so a rest_days section never
// inherits entries from DefaultRestDays.
func (r *RestDays) UnmarshalYAML(value *yaml.Node) error {
	type plain RestDays
	var out plain
	if err := value.Decode(&out); err != nil {
		return err
	}
	*r = RestDays(out)
	return nil
}

// For returns the rest requirement for a group with teamCount teams.
func (r RestDays) For(teamCount int) int {
	if days, ok := r.ByGroupSize[teamCount]; ok {
		return days
	}
	return r.Default
}

type Group struct {
	Name  string   `yaml:"name" validate:"required"`
	Teams []string `yaml:"teams"`
}

// Pairing is one knockout matchup between two placeholders, e.g.
// "Winner Group A" against "Runner-up Group B".
type Pairing struct {
	Home string `yaml:"home" validate:"required"`
	Away string `yaml:"away" validate:"required"`
}

type Stage struct {
	Name     string    `yaml:"name" validate:"required"`
	Template string    `yaml:"template" validate:"oneof=explicit cross_groups winners"`
	GapDays  int       `yaml:"gap_days" validate:"gte=1"`
	Pairings []Pairing `yaml:"pairings" validate:"dive"`
}

type Config struct {
	Tournament         Tournament `yaml:"tournament"`
	TimeSlots          []string   `yaml:"time_slots" validate:"min=1"`
	DayCapacity        int        `yaml:"day_capacity" validate:"gte=0"`
	OpeningDayCapacity int        `yaml:"opening_day_capacity" validate:"gte=0"`
	RestDays           RestDays   `yaml:"rest_days"`
	Groups             []Group    `yaml:"groups" validate:"min=1,dive"`
	Stages             []Stage    `yaml:"stages" validate:"dive"`
}

// ConfigurationError lists every problem found in a tournament config.
// No schedule is attempted while one is present.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// AllTeams returns all team names across all groups.
func (c *Config) AllTeams() []string {
	var teams []string
	for _, g := range c.Groups {
		teams = append(teams, g.Teams...)
	}
	return teams
}

// Capacity returns the number of matches a regular day can host.
func (c *Config) Capacity() int {
	if c.DayCapacity == 0 {
		return len(c.TimeSlots)
	}
	return c.DayCapacity
}

// OpeningCapacity returns the number of matches on the first day of the
// group stage.
func (c *Config) OpeningCapacity() int {
	if c.OpeningDayCapacity == 0 {
		return defaultOpeningDayCapacity
	}
	return c.OpeningDayCapacity
}

// Horizon returns the number of days the group stage may span.
func (c *Config) Horizon() int {
	if c.Tournament.HorizonDays == 0 {
		return defaultHorizonDays
	}
	return c.Tournament.HorizonDays
}

// Stage returns the named knockout stage and its index.
func (c *Config) Stage(name string) (Stage, int, bool) {
	for i, s := range c.Stages {
		if s.Name == name {
			return s, i, true
		}
	}
	return Stage{}, -1, false
}

// LoadFromBytes parses YAML bytes into a Config and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Config{RestDays: DefaultRestDays()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return LoadFromBytes(data)
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the config and returns a *ConfigurationError listing
// every problem found.
func (c *Config) Validate() error {
	var problems []string

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.Wrap(err, "validating config")
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	if c.Tournament.StartDate.Time.IsZero() {
		problems = append(problems, "tournament.start_date is required")
	}

	seenTimes := make(map[string]bool)
	for _, t := range c.TimeSlots {
		if _, err := time.Parse("15:04", t); err != nil {
			problems = append(problems, fmt.Sprintf("time slot %q is not HH:MM", t))
		}
		if seenTimes[t] {
			problems = append(problems, fmt.Sprintf("time slot %q listed twice", t))
		}
		seenTimes[t] = true
	}
	if c.Capacity() > len(c.TimeSlots) {
		problems = append(problems, fmt.Sprintf("day_capacity %d exceeds the %d configured time slots", c.Capacity(), len(c.TimeSlots)))
	}
	if c.OpeningCapacity() > c.Capacity() {
		problems = append(problems, fmt.Sprintf("opening_day_capacity %d exceeds day_capacity %d", c.OpeningCapacity(), c.Capacity()))
	}

	for _, size := range slices.Sorted(maps.Keys(c.RestDays.ByGroupSize)) {
		if days := c.RestDays.ByGroupSize[size]; size < 0 || days < 0 {
			problems = append(problems, fmt.Sprintf("rest_days.by_group_size %d: %d must not be negative", size, days))
		}
	}

	seenGroups := make(map[string]bool)
	seenTeams := make(map[string]string)
	for _, g := range c.Groups {
		if seenGroups[g.Name] {
			problems = append(problems, fmt.Sprintf("group %q defined twice", g.Name))
		}
		seenGroups[g.Name] = true
		if len(g.Teams) == 0 {
			problems = append(problems, fmt.Sprintf("group %q has no teams", g.Name))
		}
		for _, team := range g.Teams {
			if prev, ok := seenTeams[team]; ok {
				problems = append(problems, fmt.Sprintf("team %q appears in both %q and %q groups", team, prev, g.Name))
				continue
			}
			seenTeams[team] = g.Name
		}
	}

	// matches is the size of the previous knockout stage, -1 when unknown.
	seenStages := map[string]bool{GroupStage: true}
	matches := -1
	for i, s := range c.Stages {
		if seenStages[s.Name] {
			problems = append(problems, fmt.Sprintf("stage name %q is reserved or used twice", s.Name))
		}
		seenStages[s.Name] = true
		switch s.Template {
		case "explicit":
			if len(s.Pairings) == 0 {
				problems = append(problems, fmt.Sprintf("stage %q: explicit template needs pairings", s.Name))
			}
			matches = len(s.Pairings)
		case "cross_groups":
			if len(c.Groups) < 2 || len(c.Groups)%2 != 0 {
				problems = append(problems, fmt.Sprintf("stage %q: cross_groups needs an even number of groups, have %d", s.Name, len(c.Groups)))
				matches = -1
				break
			}
			matches = len(c.Groups)
		case "winners":
			switch {
			case i == 0:
				problems = append(problems, fmt.Sprintf("stage %q: winners template needs a previous knockout stage", s.Name))
				matches = -1
			case matches < 0:
			case matches < 2 || matches%2 != 0:
				problems = append(problems, fmt.Sprintf("stage %q: winners needs an even number of previous matches, have %d", s.Name, matches))
				matches = -1
			default:
				matches /= 2
			}
		default:
			matches = -1
		}
	}

	if len(problems) > 0 {
		return errors.WithStack(&ConfigurationError{Problems: problems})
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}
