package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// CreateFilterConfig validates fc's chain against the registered filterconfig
// schemas, records the highest matching version and stores it.
func (s *Store) CreateFilterConfig(ctx context.Context, fc *model.FilterConfig) error {
	normalizeChain(fc.Chain.Filters)
	chain, err := json.Marshal(fc.Chain)
	if err != nil {
		return err
	}
	if fc.SchemaVersion, err = s.schemas.Match(SchemaFilterConfig, chain); err != nil {
		return fmt.Errorf("filter config %q: %w", fc.Name, err)
	}
	if fc.Requirements == nil {
		fc.Requirements = []model.Requirement{}
	}
	reqs, err := json.Marshal(fc.Requirements)
	if err != nil {
		return err
	}
	fc.DateCreated = s.now()
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO filterconfig (name, filterconfig, requirements, active, schema_version, date_created)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		fc.Name, string(chain), string(reqs), fc.Active, fc.SchemaVersion, fc.DateCreated,
	).Scan(&fc.ID)
	return classify(err)
}

// normalizeChain replaces nil configs with empty objects so they encode as {}.
func normalizeChain(specs []model.FilterSpec) {
	for i := range specs {
		if specs[i].Config == nil {
			specs[i].Config = map[string]interface{}{}
		}
		normalizeChain(specs[i].Exceptions)
	}
}

// AssignFilterConfig makes a filter config available to a user group at the
// given position.
func (s *Store) AssignFilterConfig(ctx context.Context, usergroupID, filterConfigID int64, ordering int) error {
	if _, err := s.FilterConfig(ctx, filterConfigID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usergroupfilterconfig (usergroup_id, filterconfig_id, ordering) VALUES (?, ?, ?)`,
		usergroupID, filterConfigID, int64(ordering))
	return classify(err)
}

const filterConfigColumns = `fc.id, fc.name, fc.filterconfig, fc.requirements, fc.active,
	fc.schema_version, fc.date_created`

// FilterConfig loads one filter config.
func (s *Store) FilterConfig(ctx context.Context, id int64) (*model.FilterConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+filterConfigColumns+` FROM filterconfig fc WHERE fc.id = ?`, id)
	if err != nil {
		return nil, classify(err)
	}
	fcs, err := scanFilterConfigs(rows)
	if err != nil {
		return nil, err
	}
	if len(fcs) == 0 {
		return nil, fmt.Errorf("filter config %d: %w", id, apperr.ErrMissingReference)
	}
	return fcs[0], nil
}

// FilterConfigByName loads the newest active filter config with the name.
func (s *Store) FilterConfigByName(ctx context.Context, name string) (*model.FilterConfig, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM filterconfig WHERE name = ? AND active ORDER BY id DESC LIMIT 1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("filter config %q: %w", name, apperr.ErrMissingReference)
	}
	if err != nil {
		return nil, classify(err)
	}
	return s.FilterConfig(ctx, id)
}

// UserGroupFilterConfigs returns the active filter configs of a user group
// in assignment order.
func (s *Store) UserGroupFilterConfigs(ctx context.Context, usergroupID int64) ([]*model.FilterConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+filterConfigColumns+`
		FROM usergroupfilterconfig ug
		JOIN filterconfig fc ON fc.id = ug.filterconfig_id
		WHERE ug.usergroup_id = ? AND fc.active
		ORDER BY ug.ordering, fc.id`, usergroupID)
	if err != nil {
		return nil, classify(err)
	}
	return scanFilterConfigs(rows)
}

func scanFilterConfigs(rows *sql.Rows) ([]*model.FilterConfig, error) {
	defer rows.Close()
	var out []*model.FilterConfig
	for rows.Next() {
		var fc model.FilterConfig
		var chain, reqs string
		var version int64
		if err := rows.Scan(&fc.ID, &fc.Name, &chain, &reqs, &fc.Active, &version, &fc.DateCreated); err != nil {
			return nil, err
		}
		fc.SchemaVersion = int(version)
		if err := json.Unmarshal([]byte(chain), &fc.Chain); err != nil {
			return nil, fmt.Errorf("filter config %d: %w", fc.ID, err)
		}
		if err := json.Unmarshal([]byte(reqs), &fc.Requirements); err != nil {
			return nil, fmt.Errorf("filter config %d requirements: %w", fc.ID, err)
		}
		out = append(out, &fc)
	}
	return out, rows.Err()
}
