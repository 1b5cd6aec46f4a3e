package pairing

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/derekprior/kickoff/internal/config"
)

// Placeholder is a knockout matchup between teams that are not known yet,
// identified by bracket position ("Winner Group A", "Winner Match 17").
type Placeholder struct {
	Home string
	Away string
}

func (p Placeholder) String() string {
	return fmt.Sprintf("%s v %s", p.Home, p.Away)
}

// TemplateInput is what a bracket template may draw on.
type TemplateInput struct {
	Stage  config.Stage
	Groups []Group
	// Previous holds the match labels of the preceding knockout stage in
	// schedule order.
	Previous []string
}

// Template generates the placeholder pairings of a knockout stage.
type Template interface {
	Placeholders(in TemplateInput) ([]Placeholder, error)
}

// Get returns a Template by name.
func Get(name string) (Template, error) {
	switch name {
	case "explicit":
		return &Explicit{}, nil
	case "cross_groups":
		return &CrossGroups{}, nil
	case "winners":
		return &Winners{}, nil
	default:
		return nil, errors.Newf("unknown bracket template: %q", name)
	}
}

// Explicit uses the pairings listed in the stage config as they are.
type Explicit struct{}

func (t *Explicit) Placeholders(in TemplateInput) ([]Placeholder, error) {
	if len(in.Stage.Pairings) == 0 {
		return nil, errors.Newf("stage %q lists no pairings", in.Stage.Name)
	}
	out := make([]Placeholder, 0, len(in.Stage.Pairings))
	for _, p := range in.Stage.Pairings {
		out = append(out, Placeholder{Home: p.Home, Away: p.Away})
	}
	return out, nil
}

// CrossGroups takes groups in consecutive pairs and crosses their top two:
// the winner of each group meets the runner-up of the other.
type CrossGroups struct{}

func (t *CrossGroups) Placeholders(in TemplateInput) ([]Placeholder, error) {
	if len(in.Groups) < 2 || len(in.Groups)%2 != 0 {
		return nil, errors.Newf("stage %q: cross_groups needs an even number of groups, have %d", in.Stage.Name, len(in.Groups))
	}
	var out []Placeholder
	for i := 0; i < len(in.Groups); i += 2 {
		a, b := in.Groups[i].Name, in.Groups[i+1].Name
		out = append(out,
			Placeholder{Home: "Winner Group " + a, Away: "Runner-up Group " + b},
			Placeholder{Home: "Winner Group " + b, Away: "Runner-up Group " + a},
		)
	}
	return out, nil
}

// Winners pairs consecutive matches of the previous stage.
type Winners struct{}

func (t *Winners) Placeholders(in TemplateInput) ([]Placeholder, error) {
	if len(in.Previous) < 2 || len(in.Previous)%2 != 0 {
		return nil, errors.Newf("stage %q: winners needs an even number of previous matches, have %d", in.Stage.Name, len(in.Previous))
	}
	var out []Placeholder
	for i := 0; i < len(in.Previous); i += 2 {
		out = append(out, Placeholder{
			Home: "Winner " + in.Previous[i],
			Away: "Winner " + in.Previous[i+1],
		})
	}
	return out, nil
}
