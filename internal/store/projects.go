package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"

	"go.uber.org/zap"
)

const projectColumns = `p.id, p.project_name, p.project_code, p.purchase_order, p.category_id,
	COALESCE(c.category_name, ''), p.executing_company, p.consulting_company, p.contractor,
	p.project_manager, p.start_date, p.end_date, p.total_budget, p.location, p.project_type,
	p.description, p.display_order, p.created_at`

// UpsertProject inserts p, or updates the project with the same name.
// The stored id and creation time of an existing project are kept.
func (s *Store) UpsertProject(p model.Project) (int64, error) {
	created := nowString()
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC().Format(time.RFC3339)
	}

	var catID sql.NullInt64
	if p.CategoryID != nil {
		catID = sql.NullInt64{Int64: *p.CategoryID, Valid: true}
	}

	var id int64
	err := s.db.QueryRow(`INSERT INTO projects
		(project_name, project_code, purchase_order, category_id, executing_company,
		 consulting_company, contractor, project_manager, start_date, end_date,
		 total_budget, location, project_type, description, display_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_name) DO UPDATE SET
		 project_code = excluded.project_code,
		 purchase_order = excluded.purchase_order,
		 category_id = excluded.category_id,
		 executing_company = excluded.executing_company,
		 consulting_company = excluded.consulting_company,
		 contractor = excluded.contractor,
		 project_manager = excluded.project_manager,
		 start_date = excluded.start_date,
		 end_date = excluded.end_date,
		 total_budget = excluded.total_budget,
		 location = excluded.location,
		 project_type = excluded.project_type,
		 description = excluded.description,
		 display_order = excluded.display_order
		RETURNING id`,
		strings.TrimSpace(p.Name), p.Code, p.PurchaseOrder, catID, p.ExecutingCompany,
		p.ConsultingCompany, p.Contractor, p.ProjectManager, dateValue(p.StartDate), dateValue(p.EndDate),
		p.TotalBudget, p.Location, p.Type, p.Description, p.DisplayOrder, created,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving project %q: %w", p.Name, err)
	}
	s.log.Debug("project saved", zap.String("project", p.Name), zap.Int64("id", id))
	return id, nil
}

// Projects returns all projects ordered by category, display order and
// newest first.
func (s *Store) Projects() ([]model.Project, error) {
	rows, err := s.db.Query(`SELECT ` + projectColumns + `
		FROM projects p LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY COALESCE(c.category_name, ''), p.display_order, p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Project returns the project called name, or ErrNotFound.
func (s *Store) Project(name string) (model.Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+`
		FROM projects p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.project_name = ?`, name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	return p, err
}

// ProjectsByCategory groups projects by category name. Projects without a
// category are listed under "Uncategorized".
func (s *Store) ProjectsByCategory() (map[string][]model.Project, error) {
	projects, err := s.Projects()
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]model.Project)
	for _, p := range projects {
		key := p.CategoryName
		if key == "" {
			key = model.UncategorizedName
		}
		groups[key] = append(groups[key], p)
	}
	return groups, nil
}

// MoveProject assigns a project to a category and display position.
// A nil categoryID clears the category.
func (s *Store) MoveProject(name string, categoryID *int64, order int) error {
	var catID sql.NullInt64
	if categoryID != nil {
		catID = sql.NullInt64{Int64: *categoryID, Valid: true}
	}
	res, err := s.db.Exec(`UPDATE projects SET category_id = ?, display_order = ? WHERE project_name = ?`,
		catID, order, name)
	if err != nil {
		return fmt.Errorf("moving project %q: %w", name, err)
	}
	return requireAffected(res, "project", name)
}

// DeleteProject removes a project together with its progress and resources.
func (s *Store) DeleteProject(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM progress WHERE project_name = ?", name); err != nil {
		return fmt.Errorf("deleting progress: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM resources WHERE project_name = ?", name); err != nil {
		return fmt.Errorf("deleting resources: %w", err)
	}
	res, err := tx.Exec("DELETE FROM projects WHERE project_name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if err := requireAffected(res, "project", name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("project deleted", zap.String("project", name))
	return nil
}

// Categories returns all categories ordered by name.
func (s *Store) Categories() ([]model.Category, error) {
	rows, err := s.db.Query(`SELECT id, category_name, description, created_at
		FROM categories ORDER BY category_name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		var desc sql.NullString
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &desc, &created); err != nil {
			return nil, err
		}
		c.Description = nullString(desc)
		c.CreatedAt = parseTimestamp(created)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// AddCategory creates a category and returns its id.
func (s *Store) AddCategory(name, description string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("category name is required")
	}
	res, err := s.db.Exec(`INSERT INTO categories (category_name, description, created_at)
		VALUES (?, ?, ?) ON CONFLICT(category_name) DO NOTHING`, name, description, nowString())
	if err != nil {
		return 0, fmt.Errorf("adding category %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("category %q: %w", name, ErrDuplicate)
	}
	return res.LastInsertId()
}

// CategoryID looks up a category by name.
func (s *Store) CategoryID(name string) (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM categories WHERE category_name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	return id, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (model.Project, error) {
	var p model.Project
	var code, po, exec, consult, contractor, manager, loc, typ, desc sql.NullString
	var start, end sql.NullString
	var catID sql.NullInt64
	var created string

	err := sc.Scan(
		&p.ID, &p.Name, &code, &po, &catID,
		&p.CategoryName, &exec, &consult, &contractor,
		&manager, &start, &end, &p.TotalBudget, &loc, &typ,
		&desc, &p.DisplayOrder, &created,
	)
	if err != nil {
		return p, err
	}

	p.Code = nullString(code)
	p.PurchaseOrder = nullString(po)
	if catID.Valid {
		id := catID.Int64
		p.CategoryID = &id
	}
	p.ExecutingCompany = nullString(exec)
	p.ConsultingCompany = nullString(consult)
	p.Contractor = nullString(contractor)
	p.ProjectManager = nullString(manager)
	p.StartDate = parseDate(start)
	p.EndDate = parseDate(end)
	p.Location = nullString(loc)
	p.Type = nullString(typ)
	p.Description = nullString(desc)
	p.CreatedAt = parseTimestamp(created)
	return p, nil
}

func requireAffected(res sql.Result, kind, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
	}
	return nil
}
