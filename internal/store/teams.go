package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/derekprior/kickoff/internal/pairing"
)

// ImportGroups replaces every group and team. Any stored schedule refers
// to the old teams, so it is cleared as well.
func (s *Store) ImportGroups(ctx context.Context, groups []pairing.Group) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"schedule_warnings", "matches", "schedule_runs", "teams", "team_groups"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return errors.Wrapf(err, "clearing %s", table)
			}
		}

		const insertGroup = `INSERT INTO team_groups (name, position) VALUES (:name, :position)`
		const insertTeam = `INSERT INTO teams (name, group_name, position) VALUES (:name, :group_name, :position)`

		for i, g := range groups {
			if err := namedExec(ctx, tx, insertGroup, map[string]any{
				"name":     g.Name,
				"position": i + 1,
			}); err != nil {
				return errors.Wrapf(err, "insert group %s", g.Name)
			}
			for _, t := range g.Teams {
				if err := namedExec(ctx, tx, insertTeam, map[string]any{
					"name":       t.Name,
					"group_name": g.Name,
					"position":   t.Position,
				}); err != nil {
					return errors.Wrapf(err, "insert team %s", t.Name)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("groups imported", zap.Int("groups", len(groups)))
	return nil
}

// ListGroups returns the stored groups in import order with their teams
// ordered by position. Rest requirements are not stored; callers apply
// the tournament's rest rule with pairing.ApplyRest.
func (s *Store) ListGroups(ctx context.Context) ([]pairing.Group, error) {
	const query = `
SELECT g.name AS group_name, g.position AS group_position, t.name AS name, t.position AS position
FROM team_groups g
LEFT JOIN teams t ON t.group_name = g.name
ORDER BY g.position, t.position`

	var rows []struct {
		GroupName     string  `db:"group_name"`
		GroupPosition int     `db:"group_position"`
		Name          *string `db:"name"`
		Position      *int    `db:"position"`
	}
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "select groups")
	}

	var groups []pairing.Group
	for _, row := range rows {
		if len(groups) == 0 || groups[len(groups)-1].ID != row.GroupName {
			groups = append(groups, pairing.Group{ID: row.GroupName, Name: row.GroupName})
		}
		if row.Name == nil {
			continue
		}
		g := &groups[len(groups)-1]
		g.Teams = append(g.Teams, pairing.Team{
			ID:       *row.Name,
			Name:     *row.Name,
			Group:    row.GroupName,
			Position: *row.Position,
		})
	}
	return groups, nil
}
