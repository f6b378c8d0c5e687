package store

import (
	"database/sql"
	"fmt"

	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/recurrence"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// ScheduleParams holds the writable fields of a scheduled chore.
type ScheduleParams struct {
	TemplateID int64
	Reward     int64
	IsJoined   bool
	Recurrence recurrence.Rule
	ChildIDs   []int64
	IsOptional bool
}

func scanSchedule(scanner interface{ Scan(...any) error }) (*model.ScheduledChore, error) {
	var sc model.ScheduledChore
	var joined, active, optional int
	var recType, recDays string
	var endDate sql.NullString

	err := scanner.Scan(
		&sc.ID, &sc.TemplateID, &sc.Title, &sc.Reward, &joined,
		&recType, &recDays, &sc.Recurrence.StartDate, &endDate,
		&active, &optional, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sc.IsJoined = joined != 0
	sc.IsActive = active != 0
	sc.IsOptional = optional != 0
	sc.Recurrence.Type = recurrence.Type(recType)
	sc.Recurrence.Days = recurrence.ParseDays(recDays)
	if endDate.Valid {
		sc.Recurrence.EndDate = endDate.String
	}
	return &sc, nil
}

const scheduleCols = `s.id, s.template_id, t.title, s.reward, s.is_joined,
	s.recurrence_type, s.recurrence_days, s.start_date, s.end_date,
	s.is_active, s.is_optional, s.created_at, s.updated_at`

const scheduleFrom = ` FROM scheduled_chores s JOIN chore_templates t ON t.id = s.template_id`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *ScheduleStore) Create(p ScheduleParams) (*model.ScheduledChore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO scheduled_chores (template_id, reward, is_joined, recurrence_type, recurrence_days, start_date, end_date, is_optional)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TemplateID, p.Reward, boolInt(p.IsJoined),
		string(p.Recurrence.Type), recurrence.FormatDays(p.Recurrence.Days),
		p.Recurrence.StartDate, nullString(p.Recurrence.EndDate), boolInt(p.IsOptional),
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceScheduleChildren(tx, id, p.ChildIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule: %w", err)
	}
	return s.GetByID(id)
}

func replaceScheduleChildren(tx *sql.Tx, scheduleID int64, childIDs []int64) error {
	if _, err := tx.Exec(`DELETE FROM scheduled_chore_children WHERE scheduled_chore_id = ?`, scheduleID); err != nil {
		return fmt.Errorf("clear schedule children: %w", err)
	}
	for i, childID := range childIDs {
		_, err := tx.Exec(
			`INSERT INTO scheduled_chore_children (scheduled_chore_id, child_id, position) VALUES (?, ?, ?)`,
			scheduleID, childID, i,
		)
		if err != nil {
			return fmt.Errorf("insert schedule child %d: %w", childID, err)
		}
	}
	return nil
}

func (s *ScheduleStore) GetByID(id int64) (*model.ScheduledChore, error) {
	row := s.db.QueryRow(`SELECT `+scheduleCols+scheduleFrom+` WHERE s.id = ?`, id)
	sc, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	children, err := s.childIDs()
	if err != nil {
		return nil, err
	}
	sc.ChildIDs = children[sc.ID]
	return sc, nil
}

// List returns every schedule, newest first.
func (s *ScheduleStore) List() ([]model.ScheduledChore, error) {
	return s.list(`SELECT ` + scheduleCols + scheduleFrom + ` ORDER BY s.id DESC`)
}

// ListActive returns the active schedules in creation order.
func (s *ScheduleStore) ListActive() ([]model.ScheduledChore, error) {
	return s.list(`SELECT ` + scheduleCols + scheduleFrom + ` WHERE s.is_active = 1 ORDER BY s.id ASC`)
}

func (s *ScheduleStore) list(query string, args ...any) ([]model.ScheduledChore, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	var schedules []model.ScheduledChore
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *sc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	children, err := s.childIDs()
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].ChildIDs = children[schedules[i].ID]
	}
	return schedules, nil
}

// childIDs maps schedule id to its children in assignment order.
func (s *ScheduleStore) childIDs() (map[int64][]int64, error) {
	rows, err := s.db.Query(`SELECT scheduled_chore_id, child_id FROM scheduled_chore_children ORDER BY scheduled_chore_id, position`)
	if err != nil {
		return nil, fmt.Errorf("list schedule children: %w", err)
	}
	defer rows.Close()

	m := make(map[int64][]int64)
	for rows.Next() {
		var scheduleID, childID int64
		if err := rows.Scan(&scheduleID, &childID); err != nil {
			return nil, fmt.Errorf("scan schedule child: %w", err)
		}
		m[scheduleID] = append(m[scheduleID], childID)
	}
	return m, rows.Err()
}

func (s *ScheduleStore) Update(id int64, p ScheduleParams) (*model.ScheduledChore, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE scheduled_chores SET template_id = ?, reward = ?, is_joined = ?, recurrence_type = ?,
		 recurrence_days = ?, start_date = ?, end_date = ?, is_optional = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.TemplateID, p.Reward, boolInt(p.IsJoined),
		string(p.Recurrence.Type), recurrence.FormatDays(p.Recurrence.Days),
		p.Recurrence.StartDate, nullString(p.Recurrence.EndDate), boolInt(p.IsOptional), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	if err := replaceScheduleChildren(tx, id, p.ChildIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule: %w", err)
	}
	return s.GetByID(id)
}

func (s *ScheduleStore) SetActive(id int64, active bool) error {
	_, err := s.db.Exec(
		`UPDATE scheduled_chores SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolInt(active), id,
	)
	if err != nil {
		return fmt.Errorf("set schedule active: %w", err)
	}
	return nil
}

// Delete removes a schedule; its instances and participants cascade.
func (s *ScheduleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM scheduled_chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
