package store

import (
	"database/sql"
	"fmt"

	"github.com/encero/chores-tracker-sub000/internal/model"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.ChoreTemplate, error) {
	var t model.ChoreTemplate
	err := scanner.Scan(&t.ID, &t.Title, &t.Description, &t.Icon, &t.DefaultReward, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const templateCols = `id, title, description, icon, default_reward, created_at, updated_at`

func (s *TemplateStore) Create(title, description, icon string, defaultReward int64) (*model.ChoreTemplate, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_templates (title, description, icon, default_reward) VALUES (?, ?, ?, ?)`,
		title, description, icon, defaultReward,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) GetByID(id int64) (*model.ChoreTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM chore_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) List() ([]model.ChoreTemplate, error) {
	rows, err := s.db.Query(`SELECT ` + templateCols + ` FROM chore_templates ORDER BY title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.ChoreTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (s *TemplateStore) Update(id int64, title, description, icon string, defaultReward int64) (*model.ChoreTemplate, error) {
	_, err := s.db.Exec(
		`UPDATE chore_templates SET title = ?, description = ?, icon = ?, default_reward = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, icon, defaultReward, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a template together with its schedules and their instances.
func (s *TemplateStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chore_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
