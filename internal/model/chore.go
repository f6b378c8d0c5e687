package model

import (
	"time"

	"github.com/encero/chores-tracker-sub000/internal/recurrence"
	"github.com/encero/chores-tracker-sub000/internal/reward"
)

type ChoreTemplate struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	DefaultReward int64     `json:"default_reward"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ScheduledChore struct {
	ID         int64           `json:"id"`
	TemplateID int64           `json:"template_id"`
	Title      string          `json:"title"`
	Reward     int64           `json:"reward"`
	IsJoined   bool            `json:"is_joined"`
	Recurrence recurrence.Rule `json:"recurrence"`
	ChildIDs   []int64         `json:"child_ids"`
	IsActive   bool            `json:"is_active"`
	IsOptional bool            `json:"is_optional"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type InstanceStatus string

const (
	InstancePending   InstanceStatus = "pending"
	InstanceCompleted InstanceStatus = "completed"
	InstanceMissed    InstanceStatus = "missed"
)

type ChoreInstance struct {
	ID               int64              `json:"id"`
	ScheduledChoreID int64              `json:"scheduled_chore_id"`
	Title            string             `json:"title"`
	DueDate          string             `json:"due_date"`
	IsJoined         bool               `json:"is_joined"`
	Status           InstanceStatus     `json:"status"`
	TotalReward      int64              `json:"total_reward"`
	Quality          *reward.Quality    `json:"quality,omitempty"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	Participants     []ChoreParticipant `json:"participants"`
}

// Participant returns the participant row for childID, or nil.
func (i *ChoreInstance) Participant(childID int64) *ChoreParticipant {
	for k := range i.Participants {
		if i.Participants[k].ChildID == childID {
			return &i.Participants[k]
		}
	}
	return nil
}

type ParticipantStatus string

const (
	ParticipantPending ParticipantStatus = "pending"
	ParticipantDone    ParticipantStatus = "done"
)

type ChoreParticipant struct {
	ID            int64             `json:"id"`
	InstanceID    int64             `json:"instance_id"`
	ChildID       int64             `json:"child_id"`
	ChildName     string            `json:"child_name"`
	Status        ParticipantStatus `json:"status"`
	EffortPercent *float64          `json:"effort_percent,omitempty"`
	EarnedReward  *int64            `json:"earned_reward,omitempty"`
	Quality       *reward.Quality   `json:"quality,omitempty"`
	DoneAt        *time.Time        `json:"done_at,omitempty"`
}

// Rated reports whether a reward has been settled for this participant.
func (p *ChoreParticipant) Rated() bool {
	return p.EarnedReward != nil
}
