package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"

	"go.uber.org/zap"
)

// AddProgress stores a progress entry for an existing project.
func (s *Store) AddProgress(e model.ProgressEntry) (int64, error) {
	if e.EntryDate.IsZero() {
		return 0, fmt.Errorf("progress for %q: entry date is required", e.Project)
	}
	if err := s.requireProject(e.Project); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(`INSERT INTO progress
		(project_name, entry_date, planned_completion, planned_cost, actual_completion, actual_cost, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Project, dateValue(e.EntryDate), e.PlannedCompletion, e.PlannedCost,
		e.ActualCompletion, e.ActualCost, e.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("adding progress for %q: %w", e.Project, err)
	}
	return res.LastInsertId()
}

// AddProgressBatch stores many entries in one transaction. Every referenced
// project must already exist.
func (s *Store) AddProgressBatch(entries []model.ProgressEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO progress
		(project_name, entry_date, planned_completion, planned_cost, actual_completion, actual_cost, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Project, dateValue(e.EntryDate), e.PlannedCompletion, e.PlannedCost,
			e.ActualCompletion, e.ActualCost, e.Notes); err != nil {
			return fmt.Errorf("adding progress for %q: %w", e.Project, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("progress batch saved", zap.Int("rows", len(entries)))
	return nil
}

// Progress returns a project's entries ordered by date.
func (s *Store) Progress(project string) ([]model.ProgressEntry, error) {
	rows, err := s.db.Query(`SELECT id, project_name, entry_date, planned_completion, planned_cost,
		actual_completion, actual_cost, notes
		FROM progress WHERE project_name = ? ORDER BY entry_date, id`, project)
	if err != nil {
		return nil, fmt.Errorf("loading progress for %q: %w", project, err)
	}
	defer func() { _ = rows.Close() }()
	return scanProgressRows(rows)
}

// ProgressByProject batch-loads every progress entry keyed by project name.
func (s *Store) ProgressByProject() (map[string][]model.ProgressEntry, error) {
	rows, err := s.db.Query(`SELECT id, project_name, entry_date, planned_completion, planned_cost,
		actual_completion, actual_cost, notes
		FROM progress ORDER BY project_name, entry_date, id`)
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries, err := scanProgressRows(rows)
	if err != nil {
		return nil, err
	}
	byProject := make(map[string][]model.ProgressEntry)
	for _, e := range entries {
		byProject[e.Project] = append(byProject[e.Project], e)
	}
	return byProject, nil
}

// DeleteProgress removes all entries for a project and reports how many.
func (s *Store) DeleteProgress(project string) (int64, error) {
	res, err := s.db.Exec("DELETE FROM progress WHERE project_name = ?", project)
	if err != nil {
		return 0, fmt.Errorf("deleting progress for %q: %w", project, err)
	}
	return res.RowsAffected()
}

// CashFlow returns progress joined with project budgets, optionally limited
// to one project and an inclusive date range, ordered by project and date.
func (s *Store) CashFlow(project string, from, to time.Time) ([]model.CashFlowRow, error) {
	query := `SELECT pr.project_name, pr.entry_date, pr.planned_cost, pr.actual_cost,
		pr.planned_completion, pr.actual_completion, p.total_budget
		FROM progress pr JOIN projects p ON p.project_name = pr.project_name
		WHERE 1 = 1`
	var args []any
	if project != "" {
		query += " AND pr.project_name = ?"
		args = append(args, project)
	}
	if !from.IsZero() {
		query += " AND pr.entry_date >= ?"
		args = append(args, from.Format(model.DateLayout))
	}
	if !to.IsZero() {
		query += " AND pr.entry_date <= ?"
		args = append(args, to.Format(model.DateLayout))
	}
	query += " ORDER BY pr.project_name, pr.entry_date, pr.id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading cash flow: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CashFlowRow
	for rows.Next() {
		var r model.CashFlowRow
		var date sql.NullString
		if err := rows.Scan(&r.Project, &date, &r.PlannedCost, &r.ActualCost,
			&r.PlannedCompletion, &r.ActualCompletion, &r.TotalBudget); err != nil {
			return nil, err
		}
		r.EntryDate = parseDate(date)
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanProgressRows(rows *sql.Rows) ([]model.ProgressEntry, error) {
	var entries []model.ProgressEntry
	for rows.Next() {
		var e model.ProgressEntry
		var date, notes sql.NullString
		if err := rows.Scan(&e.ID, &e.Project, &date, &e.PlannedCompletion, &e.PlannedCost,
			&e.ActualCompletion, &e.ActualCost, &notes); err != nil {
			return nil, err
		}
		e.EntryDate = parseDate(date)
		e.Notes = nullString(notes)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) requireProject(name string) error {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM projects WHERE project_name = ?", name).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return nil
}
