package store

import (
	"database/sql"
	"fmt"

	"github.com/theirongolddev/evmboard/internal/model"
)

// AddResource stores a labor or equipment allocation.
func (s *Store) AddResource(r model.Resource) (int64, error) {
	if r.Kind != model.Labor && r.Kind != model.Equipment {
		return 0, fmt.Errorf("resource type %q: want labor or equipment", r.Kind)
	}
	if err := s.requireProject(r.Project); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`INSERT INTO resources
		(project_name, resource_type, name, quantity, daily_rate, start_date, end_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Project, string(r.Kind), r.Name, r.Quantity, r.DailyRate,
		dateValue(r.StartDate), dateValue(r.EndDate), r.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("adding resource for %q: %w", r.Project, err)
	}
	return res.LastInsertId()
}

// Resources returns a project's allocations, optionally of one kind.
func (s *Store) Resources(project string, kind model.ResourceKind) ([]model.Resource, error) {
	query := `SELECT id, project_name, resource_type, name, quantity, daily_rate, start_date, end_date, notes
		FROM resources WHERE project_name = ?`
	args := []any{project}
	if kind != "" {
		query += " AND resource_type = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY start_date, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading resources for %q: %w", project, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Resource
	for rows.Next() {
		var r model.Resource
		var kindStr string
		var start, end, notes sql.NullString
		if err := rows.Scan(&r.ID, &r.Project, &kindStr, &r.Name, &r.Quantity, &r.DailyRate,
			&start, &end, &notes); err != nil {
			return nil, err
		}
		r.Kind = model.ResourceKind(kindStr)
		r.StartDate = parseDate(start)
		r.EndDate = parseDate(end)
		r.Notes = nullString(notes)
		out = append(out, r)
	}
	return out, rows.Err()
}
