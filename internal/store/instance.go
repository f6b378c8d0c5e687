package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/reward"
)

type InstanceStore struct {
	db *sql.DB
}

func NewInstanceStore(db *sql.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

// InstanceFilter narrows List. Zero values match everything.
type InstanceFilter struct {
	Date    string
	ChildID int64
	Status  model.InstanceStatus
}

// Settlement is the outcome of rating one participant.
type Settlement struct {
	ParticipantID int64
	ChildID       int64
	Quality       reward.Quality
	EffortPercent *float64
	Earned        int64
	Note          string
}

// Completion closes an instance after its ratings are applied. An empty
// Quality leaves the overall quality unset.
type Completion struct {
	Quality reward.Quality
	At      time.Time
}

func scanInstance(scanner interface{ Scan(...any) error }) (*model.ChoreInstance, error) {
	var inst model.ChoreInstance
	var joined int
	var status string
	var quality sql.NullString
	var completedAt sql.NullTime

	err := scanner.Scan(
		&inst.ID, &inst.ScheduledChoreID, &inst.Title, &inst.DueDate, &joined,
		&status, &inst.TotalReward, &quality, &completedAt, &inst.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inst.IsJoined = joined != 0
	inst.Status = model.InstanceStatus(status)
	if quality.Valid {
		q := reward.Quality(quality.String)
		inst.Quality = &q
	}
	if completedAt.Valid {
		inst.CompletedAt = &completedAt.Time
	}
	return &inst, nil
}

const instanceCols = `i.id, i.scheduled_chore_id, t.title, i.due_date, i.is_joined,
	i.status, i.total_reward, i.quality, i.completed_at, i.created_at`

const instanceFrom = ` FROM chore_instances i
	JOIN scheduled_chores s ON s.id = i.scheduled_chore_id
	JOIN chore_templates t ON t.id = s.template_id`

func scanParticipant(scanner interface{ Scan(...any) error }) (*model.ChoreParticipant, error) {
	var p model.ChoreParticipant
	var status string
	var effort sql.NullFloat64
	var earned sql.NullInt64
	var quality sql.NullString
	var doneAt sql.NullTime

	err := scanner.Scan(&p.ID, &p.InstanceID, &p.ChildID, &p.ChildName, &status, &effort, &earned, &quality, &doneAt)
	if err != nil {
		return nil, err
	}

	p.Status = model.ParticipantStatus(status)
	if effort.Valid {
		p.EffortPercent = &effort.Float64
	}
	if earned.Valid {
		p.EarnedReward = &earned.Int64
	}
	if quality.Valid {
		q := reward.Quality(quality.String)
		p.Quality = &q
	}
	if doneAt.Valid {
		p.DoneAt = &doneAt.Time
	}
	return &p, nil
}

const participantCols = `p.id, p.instance_id, p.child_id, c.name, p.status, p.effort_percent, p.earned_reward, p.quality, p.done_at`

// InsertIfAbsent materialises the instance of sc due on dueDate together with
// one participant per schedule child. When the instance already exists the
// insert is a no-op and created is false.
func (s *InstanceStore) InsertIfAbsent(sc *model.ScheduledChore, dueDate string) (inst *model.ChoreInstance, created bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO chore_instances (scheduled_chore_id, due_date, is_joined, total_reward)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (scheduled_chore_id, due_date) DO NOTHING`,
		sc.ID, dueDate, boolInt(sc.IsJoined), sc.Reward,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert instance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	if n == 1 {
		id, err := result.LastInsertId()
		if err != nil {
			return nil, false, fmt.Errorf("last insert id: %w", err)
		}
		for _, childID := range sc.ChildIDs {
			if _, err := tx.Exec(
				`INSERT INTO chore_participants (instance_id, child_id) VALUES (?, ?)`,
				id, childID,
			); err != nil {
				return nil, false, fmt.Errorf("insert participant %d: %w", childID, err)
			}
		}
		created = true
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit instance: %w", err)
	}

	inst, err = s.GetBySchedule(sc.ID, dueDate)
	if err != nil {
		return nil, false, err
	}
	return inst, created, nil
}

func (s *InstanceStore) GetByID(id int64) (*model.ChoreInstance, error) {
	return s.getOne(`SELECT `+instanceCols+instanceFrom+` WHERE i.id = ?`, id)
}

func (s *InstanceStore) GetBySchedule(scheduleID int64, dueDate string) (*model.ChoreInstance, error) {
	return s.getOne(`SELECT `+instanceCols+instanceFrom+` WHERE i.scheduled_chore_id = ? AND i.due_date = ?`, scheduleID, dueDate)
}

func (s *InstanceStore) getOne(query string, args ...any) (*model.ChoreInstance, error) {
	inst, err := scanInstance(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}

	participants, err := s.participants([]int64{inst.ID})
	if err != nil {
		return nil, err
	}
	inst.Participants = participants[inst.ID]
	return inst, nil
}

// List returns instances matching f ordered by due date.
func (s *InstanceStore) List(f InstanceFilter) ([]model.ChoreInstance, error) {
	var where []string
	var args []any
	if f.Date != "" {
		where = append(where, "i.due_date = ?")
		args = append(args, f.Date)
	}
	if f.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, string(f.Status))
	}
	if f.ChildID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM chore_participants cp WHERE cp.instance_id = i.id AND cp.child_id = ?)")
		args = append(args, f.ChildID)
	}

	query := `SELECT ` + instanceCols + instanceFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.due_date ASC, i.id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}

	var instances []model.ChoreInstance
	var ids []int64
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, *inst)
		ids = append(ids, inst.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return instances, nil
	}
	participants, err := s.participants(ids)
	if err != nil {
		return nil, err
	}
	for i := range instances {
		instances[i].Participants = participants[instances[i].ID]
	}
	return instances, nil
}

func (s *InstanceStore) participants(instanceIDs []int64) (map[int64][]model.ChoreParticipant, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(instanceIDs)), ",")
	args := make([]any, len(instanceIDs))
	for i, id := range instanceIDs {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+participantCols+` FROM chore_participants p
		 JOIN children c ON c.id = p.child_id
		 WHERE p.instance_id IN (`+placeholders+`)
		 ORDER BY p.instance_id, p.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	m := make(map[int64][]model.ChoreParticipant)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		m[p.InstanceID] = append(m[p.InstanceID], *p)
	}
	return m, rows.Err()
}

// SetParticipantStatus moves one participant between pending and done. It
// only applies while the instance is pending and the participant unrated;
// updated is false otherwise.
func (s *InstanceStore) SetParticipantStatus(instanceID, childID int64, status model.ParticipantStatus) (updated bool, err error) {
	var doneAt any
	if status == model.ParticipantDone {
		doneAt = time.Now().UTC()
	}

	result, err := s.db.Exec(
		`UPDATE chore_participants SET status = ?, done_at = ?
		 WHERE instance_id = ? AND child_id = ? AND earned_reward IS NULL
		   AND EXISTS (SELECT 1 FROM chore_instances WHERE id = ? AND status = 'pending')`,
		string(status), doneAt, instanceID, childID, instanceID,
	)
	if err != nil {
		return false, fmt.Errorf("set participant status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkMissedBefore moves pending instances due before cutoff that nobody
// marked done to missed. Returns the number of instances changed.
func (s *InstanceStore) MarkMissedBefore(cutoff string) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE chore_instances SET status = 'missed'
		 WHERE status = 'pending' AND due_date < ?
		   AND NOT EXISTS (
		     SELECT 1 FROM chore_participants p
		     WHERE p.instance_id = chore_instances.id AND (p.status = 'done' OR p.earned_reward IS NOT NULL)
		   )`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("mark missed instances: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ApplyRating records settlements and credits each earned amount to the
// child's balance in one transaction. A participant that was rated
// concurrently aborts the whole batch with ErrAlreadyRated. When complete is
// non-nil the instance moves to completed.
func (s *InstanceStore) ApplyRating(instanceID int64, settlements []Settlement, complete *Completion) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, st := range settlements {
		var effort any
		if st.EffortPercent != nil {
			effort = *st.EffortPercent
		}
		result, err := tx.Exec(
			`UPDATE chore_participants SET quality = ?, effort_percent = ?, earned_reward = ?
			 WHERE id = ? AND instance_id = ? AND earned_reward IS NULL`,
			string(st.Quality), effort, st.Earned, st.ParticipantID, instanceID,
		)
		if err != nil {
			return fmt.Errorf("rate participant %d: %w", st.ParticipantID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("rate participant %d: %w", st.ParticipantID, ErrAlreadyRated)
		}

		if st.Earned != 0 {
			participantID := st.ParticipantID
			if _, err := appendTransaction(tx, st.ChildID, st.Earned, model.TxReward, &participantID, st.Note); err != nil {
				return err
			}
		}
	}

	if complete != nil {
		result, err := tx.Exec(
			`UPDATE chore_instances SET status = 'completed', quality = ?, completed_at = ?
			 WHERE id = ? AND status = 'pending'`,
			nullString(string(complete.Quality)), complete.At.UTC(), instanceID,
		)
		if err != nil {
			return fmt.Errorf("complete instance: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("complete instance %d: %w", instanceID, ErrNotPending)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rating: %w", err)
	}
	return nil
}
