package chore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/observability"
	"github.com/encero/chores-tracker-sub000/internal/recurrence"
	"github.com/encero/chores-tracker-sub000/internal/reward"
	"github.com/encero/chores-tracker-sub000/internal/store"
)

// Service owns schedule maintenance and the rating workflow.
type Service struct {
	children  *store.ChildStore
	templates *store.TemplateStore
	schedules *store.ScheduleStore
	instances *store.InstanceStore
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(children *store.ChildStore, templates *store.TemplateStore, schedules *store.ScheduleStore, instances *store.InstanceStore, logger *slog.Logger) *Service {
	return &Service{
		children:  children,
		templates: templates,
		schedules: schedules,
		instances: instances,
		logger:    logger,
		now:       time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (s *Service) validateSchedule(p store.ScheduleParams) error {
	if err := recurrence.Validate(p.Recurrence); err != nil {
		return invalid("%v", err)
	}
	if p.Reward < 0 {
		return invalid("reward cannot be negative")
	}
	if len(p.ChildIDs) == 0 {
		return invalid("at least one child is required")
	}
	seen := make(map[int64]bool, len(p.ChildIDs))
	for _, id := range p.ChildIDs {
		if seen[id] {
			return invalid("child %d listed twice", id)
		}
		seen[id] = true
	}
	if p.IsJoined && len(p.ChildIDs) < 2 {
		return invalid("joined chores need at least two children")
	}

	tmpl, err := s.templates.GetByID(p.TemplateID)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return fmt.Errorf("template %d: %w", p.TemplateID, ErrNotFound)
	}

	missing, err := s.children.Missing(p.ChildIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("child %d: %w", missing[0], ErrNotFound)
	}
	return nil
}

func (s *Service) CreateSchedule(ctx context.Context, p store.ScheduleParams) (*model.ScheduledChore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validateSchedule(p); err != nil {
		return nil, err
	}
	sc, err := s.schedules.Create(p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule created", "schedule_id", sc.ID, "recurrence", sc.Recurrence.Describe())
	return sc, nil
}

// UpdateSchedule rewrites a schedule. Existing instances keep the reward
// and participants they were created with.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, p store.ScheduleParams) (*model.ScheduledChore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	existing, err := s.schedules.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	if err := s.validateSchedule(p); err != nil {
		return nil, err
	}
	return s.schedules.Update(id, p)
}

func (s *Service) DeleteSchedule(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existing, err := s.schedules.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("schedule %d: %w", id, ErrNotFound)
	}
	return s.schedules.Delete(id)
}

func (s *Service) loadInstance(id int64) (*model.ChoreInstance, error) {
	inst, err := s.instances.GetByID(id)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("instance %d: %w", id, ErrNotFound)
	}
	return inst, nil
}

// SetParticipantDone marks one participant done or back to pending. Other
// participants and the instance status are never touched.
func (s *Service) SetParticipantDone(ctx context.Context, instanceID, childID int64, done bool) (*model.ChoreInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inst, err := s.loadInstance(instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != model.InstancePending {
		return nil, fmt.Errorf("instance %d is %s: %w", instanceID, inst.Status, ErrNotPending)
	}
	p := inst.Participant(childID)
	if p == nil {
		return nil, fmt.Errorf("child %d on instance %d: %w", childID, instanceID, ErrNotParticipant)
	}
	if p.Rated() {
		return nil, fmt.Errorf("child %d on instance %d: %w", childID, instanceID, ErrAlreadyRated)
	}

	status := model.ParticipantPending
	if done {
		status = model.ParticipantDone
	}
	updated, err := s.instances.SetParticipantStatus(instanceID, childID, status)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, fmt.Errorf("instance %d: %w", instanceID, ErrNotPending)
	}
	return s.loadInstance(instanceID)
}

// Rating is the parent's verdict for one participant.
type Rating struct {
	ChildID int64          `json:"child_id"`
	Quality reward.Quality `json:"quality"`
}

// RateInput is one rating submission. An empty Efforts on a joined instance
// means the equal split.
type RateInput struct {
	InstanceID     int64
	Ratings        []Rating
	Efforts        reward.Efforts
	Force          bool
	OverallQuality reward.Quality
}

// Rate settles the given participants and credits their balances. The
// instance completes once every participant is rated, or immediately when
// Force is set; participants left unrated by a forced completion earn
// nothing.
func (s *Service) Rate(ctx context.Context, in RateInput) (*model.ChoreInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inst, err := s.loadInstance(in.InstanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != model.InstancePending {
		return nil, fmt.Errorf("instance %d is %s: %w", inst.ID, inst.Status, ErrNotPending)
	}
	if len(in.Ratings) == 0 && !in.Force {
		return nil, invalid("no ratings given")
	}
	if in.OverallQuality != "" && !in.OverallQuality.Valid() {
		return nil, invalid("unknown quality %q", in.OverallQuality)
	}

	var efforts map[int64]float64
	if inst.IsJoined && len(in.Ratings) > 0 {
		efforts, err = effortsFor(inst, in.Efforts)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[int64]bool, len(in.Ratings))
	settlements := make([]store.Settlement, 0, len(in.Ratings))
	for _, r := range in.Ratings {
		if !r.Quality.Valid() {
			return nil, invalid("unknown quality %q", r.Quality)
		}
		if seen[r.ChildID] {
			return nil, invalid("child %d rated twice", r.ChildID)
		}
		seen[r.ChildID] = true

		p := inst.Participant(r.ChildID)
		if p == nil {
			return nil, fmt.Errorf("child %d on instance %d: %w", r.ChildID, inst.ID, ErrNotParticipant)
		}
		if p.Rated() {
			return nil, fmt.Errorf("child %d on instance %d: %w", r.ChildID, inst.ID, ErrAlreadyRated)
		}

		st := store.Settlement{
			ParticipantID: p.ID,
			ChildID:       r.ChildID,
			Quality:       r.Quality,
			Note:          inst.Title + " (" + inst.DueDate + ")",
		}
		if inst.IsJoined {
			effort := efforts[r.ChildID]
			st.EffortPercent = &effort
			st.Earned = reward.EarnedReward(inst.TotalReward, effort, r.Quality, true)
		} else {
			st.Earned = reward.EarnedReward(inst.TotalReward, 100, r.Quality, false)
		}
		settlements = append(settlements, st)
	}

	allRated := true
	for _, p := range inst.Participants {
		if !p.Rated() && !seen[p.ChildID] {
			allRated = false
			break
		}
	}

	var completion *store.Completion
	if allRated || in.Force {
		q := in.OverallQuality
		if q == "" && len(in.Ratings) > 0 {
			q = in.Ratings[len(in.Ratings)-1].Quality
		}
		completion = &store.Completion{Quality: q, At: s.now()}
	}

	if err := s.instances.ApplyRating(inst.ID, settlements, completion); err != nil {
		if errors.Is(err, ErrAlreadyRated) || errors.Is(err, ErrNotPending) {
			return nil, err
		}
		return nil, fmt.Errorf("apply rating: %w", err)
	}

	for _, st := range settlements {
		observability.RecordRating(string(st.Quality), st.Earned)
	}
	s.logger.Info("instance rated",
		"instance_id", inst.ID,
		"ratings", len(settlements),
		"completed", completion != nil,
	)
	return s.loadInstance(inst.ID)
}

// effortsFor checks a submitted effort distribution against the instance's
// participants. Participants rated by an earlier submission keep the share
// they were paid on. An empty submission keeps those shares and splits the
// rest equally.
func effortsFor(inst *model.ChoreInstance, submitted reward.Efforts) (map[int64]float64, error) {
	efforts := submitted
	if len(efforts) == 0 {
		efforts = remainderSplit(inst)
	}

	m := efforts.Map()
	if len(m) != len(efforts) || len(m) != len(inst.Participants) {
		return nil, ErrInvalidEffort
	}
	for _, p := range inst.Participants {
		share, ok := m[p.ChildID]
		if !ok {
			return nil, ErrInvalidEffort
		}
		if p.Rated() && p.EffortPercent != nil && math.Abs(share-*p.EffortPercent) > reward.DefaultTolerance {
			return nil, ErrInvalidEffort
		}
	}
	for _, share := range efforts {
		if share.Percent < 0 {
			return nil, ErrInvalidEffort
		}
	}
	if !reward.ValidateTotal(efforts, reward.DefaultTolerance) {
		return nil, ErrInvalidEffort
	}
	return m, nil
}

// remainderSplit is the equal split, adjusted for participants whose share
// is already settled.
func remainderSplit(inst *model.ChoreInstance) reward.Efforts {
	var (
		settled reward.Efforts
		open    []int64
		used    float64
	)
	for _, p := range inst.Participants {
		if p.Rated() && p.EffortPercent != nil {
			settled = append(settled, reward.Share{ChildID: p.ChildID, Percent: *p.EffortPercent})
			used += *p.EffortPercent
			continue
		}
		open = append(open, p.ChildID)
	}
	if len(settled) == 0 {
		return reward.InitializeEqual(open)
	}

	out := settled
	for _, id := range open {
		out = append(out, reward.Share{ChildID: id, Percent: (100 - used) / float64(len(open))})
	}
	return out
}

// Preview returns the reward table shown next to the rating controls.
// Without efforts a joined instance uses the stored shares when every
// participant has one, otherwise the equal split.
func (s *Service) Preview(ctx context.Context, instanceID int64, efforts reward.Efforts) ([]reward.PreviewRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inst, err := s.loadInstance(instanceID)
	if err != nil {
		return nil, err
	}

	if len(efforts) == 0 {
		efforts = storedEfforts(inst)
	}
	return reward.Preview(inst.TotalReward, efforts, inst.IsJoined), nil
}

func storedEfforts(inst *model.ChoreInstance) reward.Efforts {
	ids := make([]int64, 0, len(inst.Participants))
	stored := make(reward.Efforts, 0, len(inst.Participants))
	for _, p := range inst.Participants {
		ids = append(ids, p.ChildID)
		if p.EffortPercent != nil {
			stored = append(stored, reward.Share{ChildID: p.ChildID, Percent: *p.EffortPercent})
		}
	}
	if inst.IsJoined && len(stored) == len(ids) {
		return stored
	}
	return reward.InitializeEqual(ids)
}
